package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

type updateOrderRequest struct {
	ID          int64        `json:"id"`
	OrderStatus order.Status `json:"orderStatus"`
}

// Checkout converts the caller's cart into an order. The backend may
// acknowledge without echoing the order, in which case the returned order
// has a zero ID.
func (oc *OrderClient) Checkout(ctx context.Context, s session.Session) (order.Order, string, error) {
	o, msg, err := call[*order.Order](ctx, oc.c, s, http.MethodPost, "orders/checkout", nil, struct{}{})
	if err != nil || o == nil {
		return order.Order{}, msg, err
	}
	return *o, msg, nil
}

func (oc *OrderClient) ListMine(ctx context.Context, s session.Session) ([]order.Order, error) {
	out, _, err := call[[]order.Order](ctx, oc.c, s, http.MethodGet, "orders/me", nil, nil)
	return out, err
}

func (oc *OrderClient) Get(ctx context.Context, s session.Session, orderID int64) (order.Order, error) {
	o, _, err := call[order.Order](ctx, oc.c, s, http.MethodGet, "orders/"+strconv.FormatInt(orderID, 10), nil, nil)
	return o, err
}

func (oc *OrderClient) Update(ctx context.Context, s session.Session, orderID int64, status order.Status) (order.Order, error) {
	o, _, err := call[order.Order](ctx, oc.c, s, http.MethodPut, "orders/update", nil, updateOrderRequest{ID: orderID, OrderStatus: status})
	return o, err
}

func (oc *OrderClient) ListAll(ctx context.Context, s session.Session, f order.Filter) (order.Page, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("orderStatus", string(f.Status))
	}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("size", strconv.Itoa(f.Size))

	p, _, err := call[order.Page](ctx, oc.c, s, http.MethodGet, "orders/all", q, nil)
	return p, err
}
