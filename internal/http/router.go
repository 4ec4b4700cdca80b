package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
)

type RouterOptions struct {
	AdminAPIKey      string
	CORSAllowOrigins []string
	Metrics          *metrics.Metrics
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Instrument(opts.Metrics))
	r.Use(CORS(opts.CORSAllowOrigins))

	r.Get("/health", h.Health)
	r.Handle("/metrics", opts.Metrics.Handler())

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{slug}", h.GetProduct)
	})

	r.With(RequireAPIKey(opts.AdminAPIKey)).Post("/api/inventory/adjust", h.AdjustStock)

	r.Group(func(r chi.Router) {
		r.Use(h.Session)
		r.Use(h.Authenticate)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/add", h.AddToCart)
			r.Post("/change", h.ChangeCart)
			r.Post("/remove", h.RemoveFromCart)
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)

			r.With(RequireAccount).Get("/profile", h.GetProfile)
			r.With(RequireAccount).Put("/profile", h.UpdateProfile)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Use(RequireAccount)
			r.Get("/", h.ListOrders)
			r.Post("/checkout", h.Checkout)
			r.Get("/{orderId}", h.GetOrder)
		})
	})

	return r
}
