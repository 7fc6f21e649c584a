package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// Backend is the cart collaborator. Mutations only acknowledge; the Store
// reads the cart back after each of them.
type Backend interface {
	Get(ctx context.Context, s session.Session) (Cart, error)
	AddItem(ctx context.Context, s session.Session, menuID int64, quantity int) error
	Increment(ctx context.Context, s session.Session, menuID int64) error
	Decrement(ctx context.Context, s session.Session, menuID int64) error
	RemoveItem(ctx context.Context, s session.Session, cartItemID int64) error
	Clear(ctx context.Context, s session.Session) error
}

type Store struct {
	backend Backend
	logger  logrus.FieldLogger
}

func NewStore(backend Backend, logger logrus.FieldLogger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Fetch returns the caller's cart. A caller without a cart gets an empty one.
func (st *Store) Fetch(ctx context.Context, s session.Session) (Cart, error) {
	if err := s.Require(session.ManageCart); err != nil {
		return Cart{}, err
	}

	c, err := st.backend.Get(ctx, s)
	if errors.Is(err, apperr.ErrNotFound) {
		return Cart{Owner: s.Identity.Subject(), Items: []Item{}, TotalAmount: decimal.Zero}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("fetch cart: %w", err)
	}

	c.Owner = s.Identity.Subject()
	if c.Recalculate() {
		st.logger.WithFields(logrus.Fields{
			"owner": c.Owner,
			"total": c.TotalAmount.StringFixed(2),
		}).Warn("cart totals from backend did not match item subtotals; recomputed")
	}
	return c, nil
}

func (st *Store) Add(ctx context.Context, s session.Session, menuID int64, quantity int) (Cart, error) {
	if err := s.Require(session.ManageCart); err != nil {
		return Cart{}, err
	}
	if menuID <= 0 {
		return Cart{}, apperr.New(apperr.ErrInvalid, "menu item is required")
	}
	if quantity < 1 {
		return Cart{}, apperr.New(apperr.ErrInvalid, "quantity must be at least 1")
	}

	if err := st.backend.AddItem(ctx, s, menuID, quantity); err != nil {
		return Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	return st.Fetch(ctx, s)
}

func (st *Store) Increment(ctx context.Context, s session.Session, menuID int64) (Cart, error) {
	if err := s.Require(session.ManageCart); err != nil {
		return Cart{}, err
	}
	if err := st.backend.Increment(ctx, s, menuID); err != nil {
		return Cart{}, fmt.Errorf("increment cart item: %w", err)
	}
	return st.Fetch(ctx, s)
}

// Decrement lowers the quantity by one. An item already at quantity 1 is left
// as is and the backend is not called; removal is a separate operation.
func (st *Store) Decrement(ctx context.Context, s session.Session, menuID int64) (Cart, error) {
	c, err := st.Fetch(ctx, s)
	if err != nil {
		return Cart{}, err
	}

	it, ok := c.Find(menuID)
	if !ok {
		return Cart{}, apperr.New(apperr.ErrNotFound, "item is not in the cart")
	}
	if it.Quantity <= 1 {
		return c, nil
	}

	if err := st.backend.Decrement(ctx, s, menuID); err != nil {
		return Cart{}, fmt.Errorf("decrement cart item: %w", err)
	}
	return st.Fetch(ctx, s)
}

func (st *Store) Remove(ctx context.Context, s session.Session, cartItemID int64) (Cart, error) {
	if err := s.Require(session.ManageCart); err != nil {
		return Cart{}, err
	}
	if err := st.backend.RemoveItem(ctx, s, cartItemID); err != nil {
		return Cart{}, fmt.Errorf("remove cart item: %w", err)
	}
	return st.Fetch(ctx, s)
}

func (st *Store) Clear(ctx context.Context, s session.Session) (Cart, error) {
	if err := s.Require(session.ManageCart); err != nil {
		return Cart{}, err
	}
	if err := st.backend.Clear(ctx, s); err != nil {
		return Cart{}, fmt.Errorf("clear cart: %w", err)
	}
	return st.Fetch(ctx, s)
}
