package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// EventPublisher announces terminal reports and reconciliation gaps.
type EventPublisher interface {
	PublishPaymentReported(ctx context.Context, a Attempt, r Report) error
	PublishReconciliationFailed(ctx context.Context, a Attempt, cause error) error
}

// Receipt is the result of the report stage. Paid is true only when the
// gateway succeeded and the backend acknowledged it.
type Receipt struct {
	Attempt Attempt
	Paid    bool
}

type Reporter struct {
	backend  Backend
	attempts AttemptStore
	events   EventPublisher
	logger   logrus.FieldLogger
}

func NewReporter(backend Backend, attempts AttemptStore, events EventPublisher, logger logrus.FieldLogger) *Reporter {
	return &Reporter{backend: backend, attempts: attempts, events: events, logger: logger}
}

// Report tells the backend the gateway outcome. It runs at most once per
// attempt. A failed gateway outcome is returned as the error after a
// successful report.
func (r *Reporter) Report(ctx context.Context, s session.Session, c Confirmation) (Receipt, error) {
	a := c.Attempt
	log := r.logger.WithFields(logrus.Fields{"order_id": a.OrderID, "attempt_id": a.ID})

	claimed, err := r.attempts.ClaimReport(ctx, a.ID)
	switch {
	case errors.Is(err, ErrAlreadyReported):
		return r.alreadyReported(ctx, c, err, log)
	case err != nil:
		log.WithError(err).Error("could not claim report in ledger; reporting anyway")
	default:
		a = claimed
	}
	// The ledger may lag the gateway when recording the outcome failed.
	a = withOutcome(a, c)

	report := Report{
		OrderID:       a.OrderID,
		Amount:        a.Amount,
		TransactionID: c.TransactionID,
		Success:       c.Succeeded(),
	}
	reportErr := r.backend.Update(ctx, s, report)

	lastErr := ""
	if reportErr != nil {
		lastErr = reportErr.Error()
	}
	if finished, err := r.attempts.FinishReport(context.WithoutCancel(ctx), a.ID, reportErr == nil, lastErr); err != nil {
		log.WithError(err).Error("could not record report result")
		a.Reconciliation = reportState(reportErr)
	} else {
		a = withOutcome(finished, c)
	}

	if reportErr == nil {
		if err := r.events.PublishPaymentReported(ctx, a, report); err != nil {
			log.WithError(err).Warn("publish payment reported event")
		}
		log.WithField("success", report.Success).Info("payment outcome reported")
		if c.Succeeded() {
			return Receipt{Attempt: a, Paid: true}, nil
		}
		return Receipt{Attempt: a}, c.Err
	}

	if c.Succeeded() {
		log.WithError(reportErr).WithField("transaction_id", c.TransactionID).
			Error("reconciliation gap: gateway charged but backend was not updated")
		if err := r.events.PublishReconciliationFailed(context.WithoutCancel(ctx), a, reportErr); err != nil {
			log.WithError(err).Error("publish reconciliation failed event")
		}
		return Receipt{Attempt: a}, apperr.Wrap(apperr.ErrReconciliation,
			"your payment went through but the order could not be updated; support has been notified", reportErr)
	}

	log.WithError(reportErr).Warn("failed payment could not be reported")
	var merr *multierror.Error
	merr = multierror.Append(merr, c.Err, fmt.Errorf("report failed payment: %w", reportErr))
	return Receipt{Attempt: a}, merr.ErrorOrNil()
}

// alreadyReported handles a confirmation whose attempt can no longer be
// reported. A charge on an attempt that was superseded never reached the
// backend and is a reconciliation gap.
func (r *Reporter) alreadyReported(ctx context.Context, c Confirmation, cause error, log logrus.FieldLogger) (Receipt, error) {
	a := c.Attempt
	if !c.Succeeded() {
		return Receipt{Attempt: a}, apperr.Wrap(apperr.ErrInvalid, "payment attempt was already reported", cause)
	}
	current, err := r.attempts.Get(ctx, a.ID)
	if err == nil {
		a = withOutcome(current, c)
		if current.Reconciliation != Abandoned {
			return Receipt{Attempt: a}, apperr.Wrap(apperr.ErrInvalid, "payment attempt was already reported", cause)
		}
	} else {
		log.WithError(err).Error("could not load attempt after refused report claim")
	}

	gap := fmt.Errorf("charged attempt could not be reported: %w", cause)
	log.WithError(gap).WithField("transaction_id", c.TransactionID).
		Error("reconciliation gap: gateway charged a superseded attempt")
	if err := r.events.PublishReconciliationFailed(context.WithoutCancel(ctx), a, gap); err != nil {
		log.WithError(err).Error("publish reconciliation failed event")
	}
	return Receipt{Attempt: a}, apperr.Wrap(apperr.ErrReconciliation,
		"your payment went through but the order could not be updated; support has been notified", gap)
}

func withOutcome(a Attempt, c Confirmation) Attempt {
	a.Gateway = c.Outcome
	a.TransactionID = c.TransactionID
	return a
}

func reportState(err error) Reconciliation {
	if err == nil {
		return Reported
	}
	return ReportFailed
}
