package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const (
	MinRating        = 1
	MaxRating        = 5
	maxCommentLength = 1000
)

type Request struct {
	OrderID int64  `json:"orderId"`
	MenuID  int64  `json:"menuId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type OrderReader interface {
	Get(ctx context.Context, s session.Session, orderID int64) (order.Order, error)
}

type Backend interface {
	Create(ctx context.Context, s session.Session, r Request) error
}

type Service struct {
	orders  OrderReader
	backend Backend
	logger  logrus.FieldLogger
}

func NewService(orders OrderReader, backend Backend, logger logrus.FieldLogger) *Service {
	return &Service{orders: orders, backend: backend, logger: logger}
}

// Submit posts a review for one item of a delivered order. Eligibility comes
// from the order itself, so no separate review lookup is made.
func (sv *Service) Submit(ctx context.Context, s session.Session, r Request) error {
	if err := s.Require(session.WriteReview); err != nil {
		return err
	}
	if r.OrderID <= 0 || r.MenuID <= 0 {
		return apperr.New(apperr.ErrInvalid, "order and menu item are required")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return apperr.New(apperr.ErrInvalid, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if utf8.RuneCountInString(r.Comment) > maxCommentLength {
		return apperr.New(apperr.ErrInvalid, fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}

	o, err := sv.orders.Get(ctx, s, r.OrderID)
	if err != nil {
		return fmt.Errorf("get order %d: %w", r.OrderID, err)
	}
	o.AnnotateReviews()
	it, ok := o.Item(r.MenuID)
	if !ok {
		return apperr.New(apperr.ErrNotFound, "item is not part of this order")
	}
	if !it.ReviewEligible {
		if it.HasReview {
			return apperr.New(apperr.ErrInvalid, "you already reviewed this item")
		}
		return apperr.New(apperr.ErrInvalid, "items can be reviewed once the order is delivered")
	}

	if err := sv.backend.Create(ctx, s, r); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	sv.logger.WithFields(logrus.Fields{
		"order_id": r.OrderID,
		"menu_id":  r.MenuID,
		"rating":   r.Rating,
	}).Info("review submitted")
	return nil
}
