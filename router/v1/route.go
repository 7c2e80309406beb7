package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/vendorpay/vendorpay/handler"
)

// Handlers bundles the constructed API handlers so main wires the services
// exactly once.
type Handlers struct {
	Payment  *handler.PaymentHandler
	Customer *handler.CustomerHandler
	Checkout *handler.CheckoutHandler
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	// Payment lifecycle routes
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.Payment.CreatePayment)
		r.Get("/{paymentID}", h.Payment.GetPaymentStatus)
		r.Post("/{paymentID}/confirm", h.Payment.ConfirmPayment)
		r.Post("/{paymentID}/refund", h.Payment.RefundPayment)
	})

	// Customer routes
	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.Customer.CreateCustomer)
		r.Get("/{customerID}/payment-methods", h.Customer.ListPaymentMethods)
		r.Post("/{customerID}/setup-intent", h.Customer.CreateSetupIntent)
	})

	// Hosted checkout routes. The success and cancel redirect landings are
	// mounted outside /v1 because the customer's browser hits them without
	// an API key.
	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", h.Checkout.CreateCheckout)
		r.Get("/{sessionID}", h.Checkout.GetCheckout)
	})
}
