package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Request struct {
	OrderID       int64
	Amount        decimal.Decimal
	PaymentMethod string
}

// Outcome carries the result of every stage that ran.
type Outcome struct {
	Intent       Intent
	Confirmation Confirmation
	Receipt      Receipt
}

// Pipeline runs initiate -> confirm -> report strictly in that order. Nothing
// is retried.
type Pipeline struct {
	initiator *Initiator
	confirmer *Confirmer
	reporter  *Reporter
	attempts  AttemptStore

	// Bounds the confirm and report stages once they are detached from the
	// caller's cancellation.
	settleTimeout time.Duration
}

func NewPipeline(initiator *Initiator, confirmer *Confirmer, reporter *Reporter, attempts AttemptStore) *Pipeline {
	return &Pipeline{
		initiator:     initiator,
		confirmer:     confirmer,
		reporter:      reporter,
		attempts:      attempts,
		settleTimeout: 60 * time.Second,
	}
}

func (p *Pipeline) Initiate(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (Intent, error) {
	return p.initiator.Initiate(ctx, s, orderID, amount)
}

// Run performs a whole attempt.
func (p *Pipeline) Run(ctx context.Context, s session.Session, req Request) (Outcome, error) {
	intent, err := p.initiator.Initiate(ctx, s, req.OrderID, req.Amount)
	if err != nil {
		return Outcome{}, err
	}
	return p.settle(ctx, s, intent, req.PaymentMethod)
}

// Complete confirms and reports an attempt opened earlier by Initiate.
func (p *Pipeline) Complete(ctx context.Context, s session.Session, attemptID uuid.UUID, paymentMethod string) (Outcome, error) {
	if err := s.Require(session.Pay); err != nil {
		return Outcome{}, err
	}
	a, err := p.attempts.Get(ctx, attemptID)
	if errors.Is(err, ErrAttemptNotFound) || (err == nil && a.Owner != s.Identity.Subject()) {
		return Outcome{}, apperr.New(apperr.ErrNotFound, "payment attempt not found")
	}
	if err != nil {
		return Outcome{}, err
	}
	return p.settle(ctx, s, Intent{Attempt: a}, paymentMethod)
}

// settle runs confirm and report. Once the payment method is submitted the
// caller's cancellation no longer stops the attempt, so a report is always
// sent.
func (p *Pipeline) settle(ctx context.Context, s session.Session, intent Intent, paymentMethod string) (Outcome, error) {
	out := Outcome{Intent: intent}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.settleTimeout)
	defer cancel()

	conf, err := p.confirmer.Confirm(ctx, intent, paymentMethod)
	if err != nil {
		return out, err
	}
	out.Confirmation = conf

	receipt, err := p.reporter.Report(ctx, s, conf)
	out.Receipt = receipt
	return out, err
}
