package apperr

import (
	"errors"
	"net/http"
)

// Kinds. Every error returned by the storefront core matches exactly one of
// these with errors.Is.
var (
	ErrAuthRequired   = errors.New("authentication required")
	ErrForbidden      = errors.New("forbidden")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid request")
	ErrPaymentInit    = errors.New("payment initiation failed")
	ErrGateway        = errors.New("payment gateway error")
	ErrReconciliation = errors.New("payment reconciliation failed")
	ErrBackend        = errors.New("backend error")
)

type Error struct {
	Kind    error
	Message string
	// Status is the backend statusCode when the error came from an envelope.
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Message returns the user-facing text of err, preferring a backend message
// carried by an *Error anywhere in the chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// KindOf reports which taxonomy kind err belongs to, or ErrBackend.
func KindOf(err error) error {
	for _, k := range []error{
		ErrAuthRequired, ErrForbidden, ErrEmptyCart, ErrNotFound, ErrInvalid,
		ErrReconciliation, ErrPaymentInit, ErrGateway,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrBackend
}

// HTTPStatus maps an error kind to the status the storefront answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrAuthRequired:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrEmptyCart, ErrInvalid:
		return http.StatusBadRequest
	case ErrPaymentInit:
		return http.StatusConflict
	case ErrGateway:
		return http.StatusPaymentRequired
	case ErrReconciliation:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
