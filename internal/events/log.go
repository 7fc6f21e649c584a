package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

// LogPublisher writes payment events to the log when no broker is configured.
type LogPublisher struct {
	Logger logrus.FieldLogger
}

func (l LogPublisher) PublishPaymentReported(ctx context.Context, a payment.Attempt, r payment.Report) error {
	l.Logger.WithFields(logrus.Fields{
		"event":          EventTypePaymentReported,
		"order_id":       a.OrderID,
		"attempt_id":     a.ID,
		"transaction_id": r.TransactionID,
		"success":        r.Success,
	}).Info("payment event")
	return nil
}

func (l LogPublisher) PublishReconciliationFailed(ctx context.Context, a payment.Attempt, cause error) error {
	l.Logger.WithFields(logrus.Fields{
		"event":          EventTypeReconciliationFailed,
		"order_id":       a.OrderID,
		"attempt_id":     a.ID,
		"transaction_id": a.TransactionID,
		"amount":         a.Amount.StringFixed(2),
		"reason":         reason(cause),
	}).Error("operator action required: charge not acknowledged by order backend")
	return nil
}
