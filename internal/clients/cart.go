package clients

import (
	"context"
	"net/http"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type CartClient struct{ c *Client }

func NewCartClient(c *Client) *CartClient { return &CartClient{c: c} }

type addItemRequest struct {
	MenuID   int64 `json:"menuId"`
	Quantity int   `json:"quantity"`
}

func (cc *CartClient) Get(ctx context.Context, s session.Session) (cart.Cart, error) {
	c, _, err := call[cart.Cart](ctx, cc.c, s, http.MethodGet, "cart", nil, nil)
	return c, err
}

func (cc *CartClient) AddItem(ctx context.Context, s session.Session, menuID int64, quantity int) error {
	_, _, err := call[ack](ctx, cc.c, s, http.MethodPost, "cart/items", nil, addItemRequest{MenuID: menuID, Quantity: quantity})
	return err
}

func (cc *CartClient) Increment(ctx context.Context, s session.Session, menuID int64) error {
	_, _, err := call[ack](ctx, cc.c, s, http.MethodPut, "cart/items/increment/"+strconv.FormatInt(menuID, 10), nil, nil)
	return err
}

func (cc *CartClient) Decrement(ctx context.Context, s session.Session, menuID int64) error {
	_, _, err := call[ack](ctx, cc.c, s, http.MethodPut, "cart/items/decrement/"+strconv.FormatInt(menuID, 10), nil, nil)
	return err
}

func (cc *CartClient) RemoveItem(ctx context.Context, s session.Session, cartItemID int64) error {
	_, _, err := call[ack](ctx, cc.c, s, http.MethodDelete, "cart/items/"+strconv.FormatInt(cartItemID, 10), nil, nil)
	return err
}

func (cc *CartClient) Clear(ctx context.Context, s session.Session) error {
	_, _, err := call[ack](ctx, cc.c, s, http.MethodDelete, "cart", nil, nil)
	return err
}
