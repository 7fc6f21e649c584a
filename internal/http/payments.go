package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

type initiatePaymentRequest struct {
	OrderID int64            `json:"orderId"`
	Amount  *decimal.Decimal `json:"amount"`
}

type payRequest struct {
	OrderID       int64            `json:"orderId"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"paymentMethod"`
}

type confirmPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// paymentResult is what the payment page shows after an attempt.
type paymentResult struct {
	AttemptID      uuid.UUID              `json:"attemptId"`
	OrderID        int64                  `json:"orderId"`
	Amount         decimal.Decimal        `json:"amount"`
	TransactionID  string                 `json:"transactionId,omitempty"`
	GatewayOutcome payment.GatewayOutcome `json:"gatewayOutcome"`
	Reconciliation payment.Reconciliation `json:"reconciliation"`
	Paid           bool                   `json:"paid"`
}

func resultOf(out payment.Outcome) *paymentResult {
	a := out.Intent.Attempt
	if out.Confirmation.Attempt.ID != uuid.Nil {
		a = out.Confirmation.Attempt
	}
	if out.Receipt.Attempt.ID != uuid.Nil {
		a = out.Receipt.Attempt
	}
	if a.ID == uuid.Nil {
		return nil
	}
	return &paymentResult{
		AttemptID:      a.ID,
		OrderID:        a.OrderID,
		Amount:         a.Amount,
		TransactionID:  a.TransactionID,
		GatewayOutcome: a.Gateway,
		Reconciliation: a.Reconciliation,
		Paid:           out.Receipt.Paid,
	}
}

func requireAmount(amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Decimal{}, apperr.New(apperr.ErrInvalid, "amount is required")
	}
	return *amount, nil
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	intent, err := h.payments.Initiate(r.Context(), sessionOf(r), req.OrderID, amount)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Payment initiated", resultOf(payment.Outcome{Intent: intent}))
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attemptId"))
	if err != nil {
		h.fail(w, r, apperr.New(apperr.ErrInvalid, "invalid attemptId"), nil)
		return
	}
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	out, err := h.payments.Complete(r.Context(), sessionOf(r), id, req.PaymentMethod)
	h.paymentOutcome(w, r, out, err)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	out, err := h.payments.Run(r.Context(), sessionOf(r), payment.Request{
		OrderID:       req.OrderID,
		Amount:        amount,
		PaymentMethod: req.PaymentMethod,
	})
	h.paymentOutcome(w, r, out, err)
}

// paymentOutcome returns the attempt state alongside any error so the page
// can tell a decline from a charge that still needs reconciling.
func (h *Handler) paymentOutcome(w http.ResponseWriter, r *http.Request, out payment.Outcome, err error) {
	res := resultOf(out)
	if err != nil {
		if res == nil {
			h.fail(w, r, err, nil)
			return
		}
		h.fail(w, r, err, res)
		return
	}
	h.ok(w, "Payment completed", res)
}

func (h *Handler) PaymentAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	list, err := h.ledger.Attempts(r.Context(), sessionOf(r), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", list)
}
