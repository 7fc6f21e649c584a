package order

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Backend interface {
	ListMine(ctx context.Context, s session.Session) ([]Order, error)
	Get(ctx context.Context, s session.Session, orderID int64) (Order, error)
	Update(ctx context.Context, s session.Session, orderID int64, status Status) (Order, error)
	ListAll(ctx context.Context, s session.Session, f Filter) (Page, error)
}

type Service struct {
	backend Backend
	logger  logrus.FieldLogger
}

func NewService(backend Backend, logger logrus.FieldLogger) *Service {
	return &Service{backend: backend, logger: logger}
}

// History returns the caller's orders with review eligibility resolved from
// the same response.
func (sv *Service) History(ctx context.Context, s session.Session) ([]Order, error) {
	if err := s.Require(session.ViewOwnOrders); err != nil {
		return nil, err
	}
	orders, err := sv.backend.ListMine(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for i := range orders {
		orders[i].AnnotateReviews()
	}
	return orders, nil
}

func (sv *Service) Get(ctx context.Context, s session.Session, orderID int64) (Order, error) {
	if err := s.Require(session.ViewOwnOrders); err != nil {
		return Order{}, err
	}
	if orderID <= 0 {
		return Order{}, apperr.New(apperr.ErrInvalid, "order id is required")
	}
	o, err := sv.backend.Get(ctx, s, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("get order %d: %w", orderID, err)
	}
	o.AnnotateReviews()
	return o, nil
}

func (sv *Service) List(ctx context.Context, s session.Session, f Filter) (Page, error) {
	if err := s.Require(session.ManageOrders); err != nil {
		return Page{}, err
	}
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 || f.Size > 100 {
		f.Size = 10
	}
	p, err := sv.backend.ListAll(ctx, s, f)
	if err != nil {
		return Page{}, fmt.Errorf("list all orders: %w", err)
	}
	return p, nil
}

// UpdateStatus is the admin-only fulfilment transition. Payment status is not
// touched here.
func (sv *Service) UpdateStatus(ctx context.Context, s session.Session, orderID int64, to Status) (Order, error) {
	if err := s.Require(session.ManageOrders); err != nil {
		return Order{}, err
	}
	current, err := sv.backend.Get(ctx, s, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if !CanTransition(current.Status, to) {
		return Order{}, apperr.New(apperr.ErrInvalid,
			fmt.Sprintf("order %d cannot move from %s to %s", orderID, current.Status, to))
	}

	updated, err := sv.backend.Update(ctx, s, orderID, to)
	if err != nil {
		return Order{}, fmt.Errorf("update order %d: %w", orderID, err)
	}
	sv.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     current.Status,
		"to":       to,
	}).Info("order status updated")
	return updated, nil
}
