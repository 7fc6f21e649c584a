package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

type ConfirmRequest struct {
	Handle        string
	PaymentMethod string
	OrderID       int64
	Amount        decimal.Decimal
}

// GatewayResult is the gateway's answer to a confirmation. A returned error
// means the gateway could not be reached or answered nonsense.
type GatewayResult struct {
	Outcome       GatewayOutcome
	TransactionID string
	Message       string
}

type Gateway interface {
	Confirm(ctx context.Context, req ConfirmRequest) (GatewayResult, error)
}

// Confirmation is the result of the confirm stage. Outcome is never pending.
// Err is a GatewayError when Outcome is failed.
type Confirmation struct {
	Attempt       Attempt
	Outcome       GatewayOutcome
	TransactionID string
	Err           error
}

func (c Confirmation) Succeeded() bool { return c.Outcome == OutcomeSucceeded }

type Confirmer struct {
	gateway  Gateway
	attempts AttemptStore
	logger   logrus.FieldLogger
}

func NewConfirmer(gateway Gateway, attempts AttemptStore, logger logrus.FieldLogger) *Confirmer {
	return &Confirmer{gateway: gateway, attempts: attempts, logger: logger}
}

// Confirm claims the attempt and submits the payment method to the gateway.
// The returned error is only set when nothing was submitted; every submitted
// confirmation yields a terminal Confirmation that must be reported.
func (c *Confirmer) Confirm(ctx context.Context, in Intent, paymentMethod string) (Confirmation, error) {
	if strings.TrimSpace(paymentMethod) == "" {
		return Confirmation{}, apperr.New(apperr.ErrInvalid, "payment method is required")
	}

	a, err := c.attempts.ClaimConfirmation(ctx, in.Attempt.ID)
	switch {
	case errors.Is(err, ErrAttemptInProgress):
		return Confirmation{}, apperr.Wrap(apperr.ErrPaymentInit, "this payment is already being processed", err)
	case errors.Is(err, ErrAttemptState):
		return Confirmation{}, apperr.Wrap(apperr.ErrInvalid, "payment attempt is no longer pending", err)
	case errors.Is(err, ErrAttemptNotFound):
		return Confirmation{}, apperr.Wrap(apperr.ErrNotFound, "payment attempt not found", err)
	case err != nil:
		// No gateway call without the claim.
		return Confirmation{}, fmt.Errorf("claim payment attempt: %w", err)
	}

	log := c.logger.WithFields(logrus.Fields{"order_id": a.OrderID, "attempt_id": a.ID})

	res, err := c.gateway.Confirm(ctx, ConfirmRequest{
		Handle:        a.Handle,
		PaymentMethod: paymentMethod,
		OrderID:       a.OrderID,
		Amount:        a.Amount,
	})

	conf := Confirmation{Attempt: a, Outcome: OutcomeFailed, TransactionID: res.TransactionID}
	switch {
	case err != nil:
		msg := "payment could not be confirmed with the gateway"
		if errors.Is(err, context.Canceled) {
			msg = "payment was cancelled"
		}
		conf.Err = apperr.Wrap(apperr.ErrGateway, msg, err)
	case res.Outcome == OutcomeSucceeded:
		conf.Outcome = OutcomeSucceeded
	default:
		msg := res.Message
		if msg == "" {
			msg = "payment was declined"
		}
		conf.Err = apperr.New(apperr.ErrGateway, msg)
	}
	if conf.TransactionID == "" {
		conf.TransactionID = a.Handle
	}

	lastErr := ""
	if conf.Err != nil {
		lastErr = conf.Err.Error()
		log.WithError(conf.Err).Warn("gateway confirmation failed")
	} else {
		log.WithField("transaction_id", conf.TransactionID).Info("gateway confirmation succeeded")
	}

	// The outcome must reach the reporter even when the ledger write fails.
	updated, recErr := c.attempts.RecordGatewayOutcome(context.WithoutCancel(ctx), a.ID, conf.Outcome, conf.TransactionID, lastErr)
	if recErr != nil {
		log.WithError(recErr).Error("could not record gateway outcome")
		conf.Attempt.Gateway = conf.Outcome
		conf.Attempt.TransactionID = conf.TransactionID
	} else {
		conf.Attempt = updated
	}
	return conf, nil
}
