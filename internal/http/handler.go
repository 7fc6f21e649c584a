package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/envelope"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type CartService interface {
	Fetch(ctx context.Context, s session.Session) (cart.Cart, error)
	Add(ctx context.Context, s session.Session, menuID int64, quantity int) (cart.Cart, error)
	Increment(ctx context.Context, s session.Session, menuID int64) (cart.Cart, error)
	Decrement(ctx context.Context, s session.Session, menuID int64) (cart.Cart, error)
	Remove(ctx context.Context, s session.Session, cartItemID int64) (cart.Cart, error)
	Clear(ctx context.Context, s session.Session) (cart.Cart, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, s session.Session) (checkout.Result, error)
}

type OrderService interface {
	History(ctx context.Context, s session.Session) ([]order.Order, error)
	Get(ctx context.Context, s session.Session, orderID int64) (order.Order, error)
	List(ctx context.Context, s session.Session, f order.Filter) (order.Page, error)
	UpdateStatus(ctx context.Context, s session.Session, orderID int64, to order.Status) (order.Order, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, s session.Session, orderID int64, amount decimal.Decimal) (payment.Intent, error)
	Run(ctx context.Context, s session.Session, req payment.Request) (payment.Outcome, error)
	Complete(ctx context.Context, s session.Session, attemptID uuid.UUID, paymentMethod string) (payment.Outcome, error)
}

type PaymentDirectory interface {
	List(ctx context.Context, s session.Session) ([]payment.Payment, error)
	Get(ctx context.Context, s session.Session, paymentID int64) (payment.Payment, error)
	Unreconciled(ctx context.Context, s session.Session) ([]payment.Attempt, error)
	Attempts(ctx context.Context, s session.Session, orderID int64) ([]payment.Attempt, error)
}

type ReviewService interface {
	Submit(ctx context.Context, s session.Session, r review.Request) error
}

type Handler struct {
	cart     CartService
	checkout CheckoutService
	orders   OrderService
	payments PaymentService
	ledger   PaymentDirectory
	reviews  ReviewService
	probes   []clients.HealthProbe

	signInPath string
	logger     logrus.FieldLogger
}

const genericFailure = "something went wrong, please try again"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope.OK(message, data))
}

// fail answers with the envelope for err. data, when set, is returned next
// to the error; AuthRequired always carries the sign-in redirect instead.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := apperr.HTTPStatus(err)

	msg := genericFailure
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}

	if errors.Is(err, apperr.ErrAuthRequired) {
		data = map[string]string{"redirect": h.signInRedirect(r)}
	}

	log := h.logger.WithFields(logrus.Fields{
		"correlation_id": middleware.GetCorrelationID(r.Context()),
		"path":           r.URL.Path,
		"status":         status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}

	writeJSON(w, status, envelope.Response[any]{StatusCode: status, Message: msg, Data: data})
}

// signInRedirect keeps the page the caller was on so the UI can return there
// after signing in. Only same-site paths are accepted.
func (h *Handler) signInRedirect(r *http.Request) string {
	from := r.Header.Get("X-Return-To")
	// Browsers read a backslash as a slash.
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.ContainsRune(from, '\\') {
		from = r.URL.Path
	}
	return h.signInPath + "?from=" + url.QueryEscape(from)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.ErrInvalid, "malformed request body", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.ErrInvalid, "invalid "+name)
	}
	return id, nil
}

func sessionOf(r *http.Request) session.Session {
	return session.FromContext(r.Context())
}
