package payment

import (
	"context"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Lister interface {
	List(ctx context.Context, s session.Session) ([]Payment, error)
	Get(ctx context.Context, s session.Session, paymentID int64) (Payment, error)
}

// Directory serves the admin payment views.
type Directory struct {
	payments Lister
	attempts AttemptStore
}

func NewDirectory(payments Lister, attempts AttemptStore) *Directory {
	return &Directory{payments: payments, attempts: attempts}
}

func (d *Directory) List(ctx context.Context, s session.Session) ([]Payment, error) {
	if err := s.Require(session.ViewPayments); err != nil {
		return nil, err
	}
	out, err := d.payments.List(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func (d *Directory) Get(ctx context.Context, s session.Session, paymentID int64) (Payment, error) {
	if err := s.Require(session.ViewPayments); err != nil {
		return Payment{}, err
	}
	if paymentID <= 0 {
		return Payment{}, apperr.New(apperr.ErrInvalid, "payment id is required")
	}
	p, err := d.payments.Get(ctx, s, paymentID)
	if err != nil {
		return Payment{}, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return p, nil
}

// Unreconciled lists attempts whose gateway outcome never reached the backend.
func (d *Directory) Unreconciled(ctx context.Context, s session.Session) ([]Attempt, error) {
	if err := s.Require(session.ViewPayments); err != nil {
		return nil, err
	}
	out, err := d.attempts.ListUnreconciled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unreconciled attempts: %w", err)
	}
	return out, nil
}

// Attempts returns the caller's attempts for one of their orders.
func (d *Directory) Attempts(ctx context.Context, s session.Session, orderID int64) ([]Attempt, error) {
	if err := s.Require(session.Pay); err != nil {
		return nil, err
	}
	all, err := d.attempts.ForOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]Attempt, 0, len(all))
	for _, a := range all {
		if a.Owner == s.Identity.Subject() {
			out = append(out, a)
		}
	}
	return out, nil
}
