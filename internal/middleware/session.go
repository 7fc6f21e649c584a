package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// Session attaches the caller's session to the request context. Missing or
// unusable tokens yield an anonymous session; protected operations reject it
// later with AuthRequired.
func Session(parser *session.Parser, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.Anon()
			if token, err := extractBearerToken(r); err == nil {
				parsed, err := parser.Parse(token)
				if err != nil {
					logger.WithField("correlation_id", GetCorrelationID(r.Context())).
						WithError(err).Debug("ignoring unusable bearer token")
				} else {
					s = parsed
				}
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}
