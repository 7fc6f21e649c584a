package checkout

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const defaultMessage = "Order placed successfully"

type CartReader interface {
	Fetch(ctx context.Context, s session.Session) (cart.Cart, error)
}

// OrderPlacer is the order collaborator. The backend snapshots the cart,
// creates the order and empties the cart as one operation.
type OrderPlacer interface {
	Checkout(ctx context.Context, s session.Session) (order.Order, string, error)
	ListMine(ctx context.Context, s session.Session) ([]order.Order, error)
}

type Result struct {
	OrderID int64       `json:"orderId"`
	Message string      `json:"message"`
	Order   order.Order `json:"order"`
}

type Orchestrator struct {
	carts  CartReader
	orders OrderPlacer
	logger logrus.FieldLogger
}

func NewOrchestrator(carts CartReader, orders OrderPlacer, logger logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{carts: carts, orders: orders, logger: logger}
}

// Checkout turns the caller's cart into an order. An empty cart fails with
// EmptyCart before the order backend is contacted.
func (o *Orchestrator) Checkout(ctx context.Context, s session.Session) (Result, error) {
	if err := s.Require(session.PlaceOrder); err != nil {
		return Result{}, err
	}

	c, err := o.carts.Fetch(ctx, s)
	if err != nil {
		return Result{}, err
	}
	if c.Empty() {
		return Result{}, apperr.New(apperr.ErrEmptyCart, "your cart is empty")
	}

	placed, msg, err := o.orders.Checkout(ctx, s)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: %w", err)
	}
	if placed.ID == 0 {
		if placed, err = o.latest(ctx, s); err != nil {
			return Result{}, err
		}
	}
	if msg == "" {
		msg = defaultMessage
	}

	log := o.logger.WithFields(logrus.Fields{
		"order_id": placed.ID,
		"owner":    s.Identity.Subject(),
		"total":    placed.TotalAmount.StringFixed(2),
	})
	if placed.Status != order.StatusInitialized || placed.PaymentStatus.Started() {
		log.WithFields(logrus.Fields{
			"order_status":   placed.Status,
			"payment_status": placed.PaymentStatus,
		}).Warn("new order is not in its initial state")
	}
	if !placed.TotalAmount.IsZero() && !placed.TotalAmount.Equal(c.TotalAmount) {
		log.WithField("cart_total", c.TotalAmount.StringFixed(2)).Warn("order total differs from cart total")
	}
	log.Info("order placed")

	return Result{OrderID: placed.ID, Message: msg, Order: placed}, nil
}

// latest reads back the newest initialized order when the backend
// acknowledged checkout without returning it.
func (o *Orchestrator) latest(ctx context.Context, s session.Session) (order.Order, error) {
	orders, err := o.orders.ListMine(ctx, s)
	if err != nil {
		return order.Order{}, fmt.Errorf("read placed order: %w", err)
	}
	var found order.Order
	for _, od := range orders {
		if od.Status != order.StatusInitialized {
			continue
		}
		if found.ID == 0 || od.OrderDate.After(found.OrderDate.Time) || (od.OrderDate.Equal(found.OrderDate.Time) && od.ID > found.ID) {
			found = od
		}
	}
	if found.ID == 0 {
		return order.Order{}, apperr.New(apperr.ErrBackend, "order was placed but could not be read back")
	}
	return found, nil
}
