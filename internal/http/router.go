package http

import (
	"net/http"
	"time"

	"github.com/fjod/medmarket/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires the cart and product handlers. m may be nil, in which case
// no request metrics are recorded and /metrics is not mounted.
func NewRouter(carts *CartHandler, products *ProductHandler, requestTimeout time.Duration, log zerolog.Logger, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if m != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Delete("/items/{product_id}", carts.RemoveItem)
			r.Post("/items/{product_id}/increment", carts.Increment)
			r.Post("/items/{product_id}/decrement", carts.Decrement)
			r.Put("/items/{product_id}/selection", carts.SetSelected)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Get("/{id}", products.GetProduct)
		})
	})

	return r
}
