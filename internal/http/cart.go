package httpapi

import (
	"net/http"
)

type addCartItemRequest struct {
	MenuID   int64 `json:"menuId"`
	Quantity int   `json:"quantity"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Fetch(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", c)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.cart.Add(r.Context(), sessionOf(r), req.MenuID, req.Quantity)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Item added to cart", c)
}

func (h *Handler) IncrementCartItem(w http.ResponseWriter, r *http.Request) {
	menuID, err := pathID(r, "menuId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	c, err := h.cart.Increment(r.Context(), sessionOf(r), menuID)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", c)
}

func (h *Handler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	menuID, err := pathID(r, "menuId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	c, err := h.cart.Decrement(r.Context(), sessionOf(r), menuID)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "", c)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "cartItemId")
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	c, err := h.cart.Remove(r.Context(), sessionOf(r), itemID)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Item removed from cart", c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Clear(r.Context(), sessionOf(r))
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	h.ok(w, "Cart cleared", c)
}
