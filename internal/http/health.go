package httpapi

import (
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
)

const serviceName = "storefront-bff"

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

func (h *Handler) Upstreams(w http.ResponseWriter, r *http.Request) {
	results := clients.CheckAll(r.Context(), h.probes)

	status := "ok"
	code := http.StatusOK
	for _, res := range results {
		if !res.OK {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"service":  serviceName,
		"upstream": results,
	})
}
