package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/vendorpay/vendorpay/infra/middle"
	v1 "github.com/vendorpay/vendorpay/router/v1"
)

// Routes mounts the authenticated API under /v1.
func Routes(r chi.Router, apiKey string, h v1.Handlers) {
	r.Route("/v1", func(r chi.Router) {
		// Add authentication middleware only to API routes
		r.Use(middle.AuthMiddleware(apiKey))
		v1.Routes(r, h)
	})
}
