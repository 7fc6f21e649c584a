package httpapi

import (
	"net/http"
)

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.checkout.Checkout(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, res.Message, res.Order)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.History(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	o, err := h.orders.Get(r.Context(), sessionOf(r), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", o)
}
