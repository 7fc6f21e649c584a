package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

// Test payment methods understood by Fake.
const (
	MethodDeclined = "pm_card_chargeDeclined"
	MethodCancel   = "cancel"
)

// Fake is an in-process gateway for local runs. Payment methods ending in
// "0000" or equal to MethodDeclined are declined; MethodCancel behaves like
// the customer abandoning the confirmation.
type Fake struct {
	Delay time.Duration
}

func (f Fake) Confirm(ctx context.Context, req payment.ConfirmRequest) (payment.GatewayResult, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return payment.GatewayResult{}, ctx.Err()
		}
	}

	switch {
	case req.PaymentMethod == MethodCancel:
		return payment.GatewayResult{}, context.Canceled
	case req.PaymentMethod == MethodDeclined || strings.HasSuffix(req.PaymentMethod, "0000"):
		return payment.GatewayResult{Outcome: payment.OutcomeFailed, Message: "card declined: insufficient funds"}, nil
	}
	return payment.GatewayResult{Outcome: payment.OutcomeSucceeded, TransactionID: "txn_" + uuid.NewString()}, nil
}
