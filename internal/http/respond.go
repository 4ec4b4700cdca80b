package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type errorResponse struct {
	Error         string            `json:"error"`
	Fields        map[string]string `json:"fields,omitempty"`
	Shortages     []order.Shortage  `json:"shortages,omitempty"`
	Input         any               `json:"input,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. input, when set, is echoed
// back so a client can redisplay the submitted form.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, input any) {
	resp := errorResponse{Error: err.Error(), CorrelationID: events.CorrelationID(r.Context())}
	status := http.StatusInternalServerError

	var (
		orderValidation   *order.ValidationError
		accountValidation *account.ValidationError
		stockErr          *order.InsufficientStockError
	)
	switch {
	case errors.As(err, &orderValidation):
		status, resp.Fields, resp.Input = http.StatusUnprocessableEntity, orderValidation.Fields, input
	case errors.As(err, &accountValidation):
		status, resp.Fields, resp.Input = http.StatusUnprocessableEntity, accountValidation.Fields, input
	case errors.Is(err, account.ErrUsernameTaken):
		status, resp.Input = http.StatusUnprocessableEntity, input
		resp.Fields = map[string]string{"username": err.Error()}
	case errors.As(err, &stockErr):
		status, resp.Shortages, resp.Input = http.StatusConflict, stockErr.Shortages, input
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound), errors.Is(err, account.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, catalog.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidOwner), errors.Is(err, order.ErrEmptyCart):
		status = http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, db.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		resp.Error = "temporarily unavailable, please retry"
		w.Header().Set("Retry-After", "1")
		h.logger.Printf("%s %s: transient: %v", r.Method, r.URL.Path, err)
	default:
		resp.Error = "internal error"
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
