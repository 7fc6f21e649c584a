package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

// Response is the uniform body of every backend answer. A StatusCode other
// than 200 is a failure even when the transport returned 2xx.
type Response[T any] struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

func (r Response[T]) OK() bool { return r.StatusCode == http.StatusOK }

// Err converts a failed envelope into the matching taxonomy error.
func (r Response[T]) Err() error {
	if r.OK() {
		return nil
	}
	return &apperr.Error{Kind: kindForStatus(r.StatusCode), Message: r.Message, Status: r.StatusCode}
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return apperr.ErrAuthRequired
	case http.StatusForbidden:
		return apperr.ErrForbidden
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.ErrInvalid
	default:
		return apperr.ErrBackend
	}
}

// Decode parses body into an envelope and returns its data. transportStatus
// is used when the body is not an envelope at all.
func Decode[T any](body []byte, transportStatus int) (T, string, error) {
	var env Response[T]
	if err := json.Unmarshal(body, &env); err != nil || env.StatusCode == 0 {
		var zero T
		if transportStatus >= 200 && transportStatus < 300 {
			if err == nil {
				err = fmt.Errorf("missing statusCode")
			}
			return zero, "", fmt.Errorf("decode envelope: %w", err)
		}
		return zero, "", &apperr.Error{
			Kind:    kindForStatus(transportStatus),
			Message: http.StatusText(transportStatus),
			Status:  transportStatus,
		}
	}
	if err := env.Err(); err != nil {
		var zero T
		return zero, env.Message, err
	}
	return env.Data, env.Message, nil
}

func OK[T any](message string, data T) Response[T] {
	return Response[T]{StatusCode: http.StatusOK, Message: message, Data: data}
}
