package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
)

type productView struct {
	catalog.Product
	DisplayID       string          `json:"displayId"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}

func newProductView(p catalog.Product) productView {
	return productView{Product: p, DisplayID: p.DisplayID(), DiscountedPrice: p.DiscountedPrice()}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	q := r.URL.Query()
	products, err := h.catalog.Search(ctx, catalog.Filter{
		Query:        q.Get("q"),
		CategorySlug: q.Get("category"),
		OnSale:       formBool(q.Get("on_sale")),
		OrderBy:      q.Get("order_by"),
	})
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, newProductView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	p, err := h.catalog.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}

type adjustRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.ProductID <= 0 {
		badRequest(w, "productId is required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.catalog.SetStock(ctx, req.ProductID, req.Quantity); err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	h.logger.Printf("inventory: product %d stock set to %d", req.ProductID, req.Quantity)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func formBool(v string) bool {
	switch v {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
