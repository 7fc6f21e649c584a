package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentReported      = "PaymentReported"
	EventTypeReconciliationFailed = "PaymentReconciliationFailed"

	paymentReportedSchema      = "contracts/events/payment/PaymentReported.v1.payload.schema.json"
	reconciliationFailedSchema = "contracts/events/payment/PaymentReconciliationFailed.v1.payload.schema.json"
)

type PaymentReportedPayload struct {
	AttemptID     string          `json:"attemptId"`
	OrderID       int64           `json:"orderId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Success       bool            `json:"success"`
	Timestamp     time.Time       `json:"timestamp"`
}

type PaymentReportedEvent struct {
	EventEnvelope
	Payload PaymentReportedPayload `json:"payload"`
}

// ReconciliationFailedPayload describes a charge the order backend never
// acknowledged. It is the operator alert for the gap.
type ReconciliationFailedPayload struct {
	AttemptID     string          `json:"attemptId"`
	OrderID       int64           `json:"orderId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Reason        string          `json:"reason"`
	Timestamp     time.Time       `json:"timestamp"`
}

type ReconciliationFailedEvent struct {
	EventEnvelope
	Payload ReconciliationFailedPayload `json:"payload"`
}
