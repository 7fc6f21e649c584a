package clients

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type PaymentClient struct{ c *Client }

func NewPaymentClient(c *Client) *PaymentClient { return &PaymentClient{c: c} }

type payRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	OrderID int64           `json:"orderId"`
}

// Pay asks the backend to mint a gateway transaction handle for the order.
func (pc *PaymentClient) Pay(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (string, error) {
	handle, _, err := call[string](ctx, pc.c, s, http.MethodPost, "payments/pay", nil, payRequest{Amount: amount, OrderID: orderID})
	return handle, err
}

// Update reports a gateway outcome for an order.
func (pc *PaymentClient) Update(ctx context.Context, s session.Session, r payment.Report) error {
	_, _, err := call[ack](ctx, pc.c, s, http.MethodPut, "payments/update", nil, r)
	return err
}

func (pc *PaymentClient) List(ctx context.Context, s session.Session) ([]payment.Payment, error) {
	out, _, err := call[[]payment.Payment](ctx, pc.c, s, http.MethodGet, "payments/all", nil, nil)
	return out, err
}

func (pc *PaymentClient) Get(ctx context.Context, s session.Session, paymentID int64) (payment.Payment, error) {
	p, _, err := call[payment.Payment](ctx, pc.c, s, http.MethodGet, "payments/"+strconv.FormatInt(paymentID, 10), nil, nil)
	return p, err
}
