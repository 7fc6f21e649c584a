package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type GatewayOutcome string

const (
	OutcomePending    GatewayOutcome = "pending"
	// OutcomeConfirming is held while the payment method is with the gateway.
	OutcomeConfirming GatewayOutcome = "confirming"
	OutcomeSucceeded  GatewayOutcome = "succeeded"
	OutcomeFailed     GatewayOutcome = "failed"
)

type Reconciliation string

const (
	Unreported Reconciliation = "unreported"
	// Reporting is held while the backend update is in flight.
	Reporting    Reconciliation = "reporting"
	Reported     Reconciliation = "reported"
	ReportFailed Reconciliation = "failed"
	// Abandoned attempts were replaced before any confirmation was submitted.
	Abandoned Reconciliation = "abandoned"
)

// Attempt is one initiate -> confirm -> report cycle for an order.
type Attempt struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        int64           `json:"orderId"`
	Owner          string          `json:"owner"`
	Amount         decimal.Decimal `json:"amount"`
	Handle         string          `json:"-"`
	TransactionID  string          `json:"transactionId,omitempty"`
	Gateway        GatewayOutcome  `json:"gatewayOutcome"`
	Reconciliation Reconciliation  `json:"reconciliation"`
	LastError      string          `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Outstanding attempts have not been reported yet.
func (a Attempt) Outstanding() bool {
	return a.Reconciliation == Unreported || a.Reconciliation == Reporting
}

// Unreconciled attempts reached the gateway but the backend never
// acknowledged the outcome.
func (a Attempt) Unreconciled() bool {
	return a.Gateway != OutcomePending && a.Reconciliation != Reported
}

// Report is the body of the backend reconciliation call.
type Report struct {
	OrderID       int64           `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Success       bool            `json:"success"`
}

// Payment is the backend's payment record as shown to admins.
type Payment struct {
	ID             int64               `json:"id"`
	OrderID        int64               `json:"orderId"`
	Amount         decimal.Decimal     `json:"amount"`
	PaymentStatus  order.PaymentStatus `json:"paymentStatus"`
	PaymentGateway string              `json:"paymentGateway,omitempty"`
	TransactionID  string              `json:"transactionId,omitempty"`
	PaymentDate    order.Timestamp     `json:"paymentDate"`
}
