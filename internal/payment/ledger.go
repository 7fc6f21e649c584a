package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAttemptNotFound = errors.New("payment attempt not found")
	// ErrAttemptInProgress: the order has an attempt that is with the gateway
	// or whose outcome is not reported yet.
	ErrAttemptInProgress = errors.New("payment attempt in progress")
	// ErrUnreconciledCharge: a previous attempt was charged but the backend
	// never acknowledged it.
	ErrUnreconciledCharge = errors.New("previous payment awaiting reconciliation")
	ErrAlreadyReported    = errors.New("payment attempt already reported")
	ErrAttemptState       = errors.New("payment attempt in wrong state")
)

// AttemptStore is the ledger of payment attempts.
type AttemptStore interface {
	// Open records a new attempt and abandons a still-pending outstanding one
	// for the same order.
	Open(ctx context.Context, a Attempt) (Attempt, error)
	Get(ctx context.Context, id uuid.UUID) (Attempt, error)
	ForOrder(ctx context.Context, orderID int64) ([]Attempt, error)
	// ClaimConfirmation moves a pending attempt to confirming. Only the
	// caller holding the claim may submit the payment method; everyone else
	// gets ConfirmConflict.
	ClaimConfirmation(ctx context.Context, id uuid.UUID) (Attempt, error)
	// RecordGatewayOutcome moves a confirming attempt to its gateway outcome.
	RecordGatewayOutcome(ctx context.Context, id uuid.UUID, outcome GatewayOutcome, transactionID, lastError string) (Attempt, error)
	// ClaimReport moves unreported to reporting and fails with
	// ErrAlreadyReported for any other state.
	ClaimReport(ctx context.Context, id uuid.UUID) (Attempt, error)
	FinishReport(ctx context.Context, id uuid.UUID, ok bool, lastError string) (Attempt, error)
	ListUnreconciled(ctx context.Context) ([]Attempt, error)
}

// CheckOpen decides whether a new attempt may be opened next to the existing
// attempts of the same order. It returns the attempts to abandon.
func CheckOpen(existing []Attempt) ([]uuid.UUID, error) {
	var abandon []uuid.UUID
	for _, a := range existing {
		if a.Gateway == OutcomeSucceeded && (a.Reconciliation == ReportFailed || a.Reconciliation == Abandoned) {
			return nil, ErrUnreconciledCharge
		}
		if !a.Outstanding() {
			continue
		}
		// Confirming attempts may already be charged.
		if a.Gateway != OutcomePending {
			return nil, ErrAttemptInProgress
		}
		abandon = append(abandon, a.ID)
	}
	return abandon, nil
}

// Outstanding returns the unreported attempt among attempts, if any.
func Outstanding(attempts []Attempt) (Attempt, bool) {
	for _, a := range attempts {
		if a.Outstanding() {
			return a, true
		}
	}
	return Attempt{}, false
}

// ConfirmConflict is the error for an attempt that could not be claimed for
// confirmation: in progress while it is still outstanding, wrong state once
// it was reported or abandoned.
func ConfirmConflict(a Attempt) error {
	if a.Outstanding() {
		return ErrAttemptInProgress
	}
	return ErrAttemptState
}
