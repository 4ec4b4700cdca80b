package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

type CartService interface {
	Add(ctx context.Context, owner cart.Owner, productID int64) (cart.AddResult, error)
	Change(ctx context.Context, owner cart.Owner, lineID int64, quantity int) (cart.Line, cart.View, error)
	Remove(ctx context.Context, owner cart.Owner, lineID int64) (int, cart.View, error)
	View(ctx context.Context, owner cart.Owner) (cart.View, error)
	MergeSession(ctx context.Context, sessionKey string, accountID int64) (int, error)
}

type OrderService interface {
	Checkout(ctx context.Context, accountID int64, contact order.ContactInfo) (*order.Order, error)
	Get(ctx context.Context, accountID, orderID int64) (*order.Order, error)
	List(ctx context.Context, accountID int64) ([]*order.Order, error)
}

type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (*account.Account, error)
	Authenticate(ctx context.Context, username, password string) (*account.Account, error)
	Profile(ctx context.Context, id int64) (*account.Account, error)
	UpdateProfile(ctx context.Context, id int64, in account.ProfileInput) (*account.Account, error)
}

type TokenService interface {
	Issue(accountID int64) (string, error)
	Parse(raw string) (int64, error)
	TTL() time.Duration
}

type Handler struct {
	catalog  catalog.Repository
	carts    CartService
	orders   OrderService
	accounts AccountService
	tokens   TokenService
	logger   *log.Logger

	requestTimeout time.Duration
	secureCookies  bool
}

type HandlerOptions struct {
	RequestTimeout time.Duration
	SecureCookies  bool
}

func NewHandler(products catalog.Repository, carts CartService, orders OrderService, accounts AccountService,
	tokens TokenService, logger *log.Logger, opts HandlerOptions) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 3 * time.Second
	}
	return &Handler{
		catalog:        products,
		carts:          carts,
		orders:         orders,
		accounts:       accounts,
		tokens:         tokens,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
		secureCookies:  opts.SecureCookies,
	}
}

// requestContext bounds ordinary store calls. Checkout carries its own budget.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
