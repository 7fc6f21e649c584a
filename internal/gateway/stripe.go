package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

// Stripe confirms payment intents server side with the account's secret key.
type Stripe struct {
	intents *paymentintent.Client
	logger  logrus.FieldLogger
}

// NewStripe builds the adapter. apiURL is Stripe's API root and only differs
// in tests. Network retries are off: a confirmation is submitted at most once.
func NewStripe(secretKey, apiURL string, httpClient *http.Client, logger logrus.FieldLogger) *Stripe {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(apiURL),
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger,
	})
	return &Stripe{
		intents: &paymentintent.Client{B: backend, Key: secretKey},
		logger:  logger,
	}
}

// intentID extracts the payment intent id from a client secret of the form
// "pi_xxx_secret_yyy".
func intentID(handle string) (string, error) {
	id, _, ok := strings.Cut(handle, "_secret_")
	if !ok || id == "" {
		return "", fmt.Errorf("malformed payment handle")
	}
	return id, nil
}

func (s *Stripe) Confirm(ctx context.Context, req payment.ConfirmRequest) (payment.GatewayResult, error) {
	id, err := intentID(req.Handle)
	if err != nil {
		return payment.GatewayResult{}, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethod),
	}
	params.Context = ctx
	params.SetIdempotencyKey("confirm-" + id)

	pi, err := s.intents.Confirm(id, params)
	if err != nil {
		var serr *stripe.Error
		if !errors.As(err, &serr) || serr.HTTPStatusCode >= http.StatusInternalServerError || serr.Msg == "" {
			return payment.GatewayResult{}, fmt.Errorf("stripe confirm: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"order_id":     req.OrderID,
			"status":       serr.HTTPStatusCode,
			"code":         serr.Code,
			"decline_code": serr.DeclineCode,
		}).Debug("stripe refused confirmation")
		return payment.GatewayResult{Outcome: payment.OutcomeFailed, Message: serr.Msg}, nil
	}

	txn := pi.ID
	if txn == "" {
		txn = id
	}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		return payment.GatewayResult{Outcome: payment.OutcomeSucceeded, TransactionID: txn}, nil
	}

	msg := fmt.Sprintf("payment was not completed (%s)", pi.Status)
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		msg = pi.LastPaymentError.Msg
	}
	return payment.GatewayResult{Outcome: payment.OutcomeFailed, TransactionID: txn, Message: msg}, nil
}
