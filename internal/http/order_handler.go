package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

func contactFromForm(r *http.Request) order.ContactInfo {
	return order.ContactInfo{
		FirstName:         r.FormValue("first_name"),
		LastName:          r.FormValue("last_name"),
		Phone:             r.FormValue("phone_number"),
		RequiresDelivery:  formBool(r.FormValue("requires_delivery")),
		DeliveryAddress:   r.FormValue("delivery_address"),
		PaymentOnDelivery: formBool(r.FormValue("payment_on_get")),
	}
}

// Checkout places the order and redirects to its confirmation. On failure the
// submitted form is returned with the error so it can be shown again.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	contact := contactFromForm(r)

	o, err := h.orders.Checkout(r.Context(), accountID(r.Context()), contact)
	if err != nil {
		h.writeError(w, r, err, contact)
		return
	}

	w.Header().Set("Location", "/api/orders/"+strconv.FormatInt(o.ID, 10))
	writeJSON(w, http.StatusSeeOther, map[string]any{
		"message": "Order placed",
		"order":   newOrderView(o),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	orders, err := h.orders.List(ctx, accountID(r.Context()))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newOrderViews(orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		h.writeError(w, r, order.ErrNotFound, nil)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	o, err := h.orders.Get(ctx, accountID(r.Context()), orderID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(o))
}

type orderView struct {
	*order.Order
	TotalQuantity int    `json:"totalQuantity"`
	TotalPrice    string `json:"totalPrice"`
}

func newOrderView(o *order.Order) orderView {
	return orderView{Order: o, TotalQuantity: o.TotalQuantity(), TotalPrice: o.Total().StringFixed(2)}
}

func newOrderViews(orders []*order.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderView(o))
	}
	return out
}
