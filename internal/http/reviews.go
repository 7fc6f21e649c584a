package httpapi

import (
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/review"
)

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req review.Request
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if err := h.reviews.Submit(r.Context(), sessionOf(r), req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Review submitted", nil)
}
