package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type OrderReader interface {
	Get(ctx context.Context, s session.Session, orderID int64) (order.Order, error)
}

// Backend is the payment collaborator.
type Backend interface {
	// Pay mints a gateway transaction handle for the order.
	Pay(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (string, error)
	Update(ctx context.Context, s session.Session, r Report) error
}

// Intent is the result of the initiate stage.
type Intent struct {
	Attempt Attempt
}

type Initiator struct {
	orders   OrderReader
	backend  Backend
	attempts AttemptStore
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewInitiator(orders OrderReader, backend Backend, attempts AttemptStore, logger logrus.FieldLogger) *Initiator {
	return &Initiator{orders: orders, backend: backend, attempts: attempts, logger: logger, now: time.Now}
}

// Initiate asks the backend for a fresh transaction handle. Re-initiating
// before any confirmation replaces the pending attempt; no money has moved.
func (in *Initiator) Initiate(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (Intent, error) {
	if err := s.Require(session.Pay); err != nil {
		return Intent{}, err
	}
	if orderID <= 0 {
		return Intent{}, apperr.New(apperr.ErrInvalid, "order id is required")
	}
	if !amount.IsPositive() {
		return Intent{}, apperr.New(apperr.ErrInvalid, "amount must be a positive number")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return Intent{}, apperr.New(apperr.ErrInvalid, "amount can have at most two decimal places")
	}

	o, err := in.orders.Get(ctx, s, orderID)
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrForbidden):
		return Intent{}, apperr.Wrap(apperr.ErrPaymentInit, "order not found for this account", err)
	case err != nil:
		return Intent{}, fmt.Errorf("load order %d: %w", orderID, err)
	}

	if err := payable(o, amount); err != nil {
		return Intent{}, err
	}

	existing, err := in.attempts.ForOrder(ctx, orderID)
	if err != nil {
		return Intent{}, fmt.Errorf("load payment attempts: %w", err)
	}
	if _, err := CheckOpen(existing); err != nil {
		return Intent{}, openError(err)
	}

	handle, err := in.backend.Pay(ctx, s, orderID, amount)
	if err != nil {
		return Intent{}, apperr.Wrap(apperr.ErrPaymentInit, apperr.Message(err), err)
	}
	if handle == "" {
		return Intent{}, apperr.New(apperr.ErrPaymentInit, "payment backend returned no transaction handle")
	}

	now := in.now().UTC()
	a, err := in.attempts.Open(ctx, Attempt{
		ID:             uuid.New(),
		OrderID:        orderID,
		Owner:          s.Identity.Subject(),
		Amount:         amount,
		Handle:         handle,
		Gateway:        OutcomePending,
		Reconciliation: Unreported,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Intent{}, openError(err)
	}

	in.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"attempt_id": a.ID,
		"amount":     amount.StringFixed(2),
	}).Info("payment initiated")
	return Intent{Attempt: a}, nil
}

func payable(o order.Order, amount decimal.Decimal) error {
	if o.PaymentStatus == order.PaymentCompleted {
		return apperr.New(apperr.ErrPaymentInit, "order is already paid")
	}
	if o.Status.Absorbing() {
		return apperr.New(apperr.ErrPaymentInit, fmt.Sprintf("order is %s and can no longer be paid", o.Status))
	}
	if amount.GreaterThan(o.TotalAmount) {
		return apperr.New(apperr.ErrPaymentInit, "amount exceeds the order total")
	}
	return nil
}

func openError(err error) error {
	switch {
	case errors.Is(err, ErrUnreconciledCharge):
		return apperr.Wrap(apperr.ErrPaymentInit, "a previous payment for this order is awaiting reconciliation", err)
	case errors.Is(err, ErrAttemptInProgress):
		return apperr.Wrap(apperr.ErrPaymentInit, "a payment for this order is already being processed", err)
	default:
		return fmt.Errorf("open payment attempt: %w", err)
	}
}
