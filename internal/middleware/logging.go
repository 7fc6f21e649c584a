package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.WithFields(logrus.Fields{
				"method":         r.Method,
				"path":           r.URL.Path,
				"status":         rec.status,
				"duration_ms":    time.Since(start).Milliseconds(),
				"correlation_id": w.Header().Get(HeaderCorrelationID),
			}).Info("request")
		})
	}
}
