package httpapi

import (
	"net/http"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type updateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f order.Filter
	if v := q.Get("orderStatus"); v != "" {
		st, err := order.ParseStatus(v)
		if err != nil {
			h.fail(w, r, apperr.Wrap(apperr.ErrInvalid, "unknown order status", err), nil)
			return
		}
		f.Status = st
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Size, _ = strconv.Atoi(q.Get("size"))

	p, err := h.orders.List(r.Context(), sessionOf(r), f)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", p)
}

func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	st, err := order.ParseStatus(req.OrderStatus)
	if err != nil {
		h.fail(w, r, apperr.Wrap(apperr.ErrInvalid, "unknown order status", err), nil)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), sessionOf(r), id, st)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Order status updated", o)
}

func (h *Handler) AdminListPayments(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.List(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", list)
}

func (h *Handler) AdminGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "paymentId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	p, err := h.ledger.Get(r.Context(), sessionOf(r), id)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", p)
}

// AdminUnreconciled lists charges the order backend never acknowledged.
func (h *Handler) AdminUnreconciled(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.Unreconciled(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", list)
}
