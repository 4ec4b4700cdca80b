package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	view, err := h.carts.View(ctx, ownerFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := formID(r, "product_id")
	if !ok {
		badRequest(w, "product_id is required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.carts.Add(ctx, ownerFrom(r.Context()), productID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Product added to cart",
		"cart":    res.View,
		"line":    res.Line,
		"created": res.Created,
	})
}

func (h *Handler) ChangeCart(w http.ResponseWriter, r *http.Request) {
	lineID, ok := formID(r, "cart_id")
	if !ok {
		badRequest(w, "cart_id is required")
		return
	}
	quantity, err := cart.ParseQuantity(r.FormValue("quantity"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	line, view, err := h.carts.Change(ctx, ownerFrom(r.Context()), lineID, quantity)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Quantity changed",
		"cart":     view,
		"quantity": line.Quantity,
	})
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	lineID, ok := formID(r, "cart_id")
	if !ok {
		badRequest(w, "cart_id is required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	removed, view, err := h.carts.Remove(ctx, ownerFrom(r.Context()), lineID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Product removed from cart",
		"cart":             view,
		"quantity_deleted": removed,
	})
}

func formID(r *http.Request, field string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(field)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
