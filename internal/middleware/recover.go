package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/envelope"
)

func Recover(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithFields(logrus.Fields{
						"correlation_id": GetCorrelationID(r.Context()),
						"path":           r.URL.Path,
					}).Errorf("panic: %v", rec)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(envelope.Response[any]{
						StatusCode: http.StatusInternalServerError,
						Message:    "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
