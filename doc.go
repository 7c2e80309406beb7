// Package vendorpay is a payment orchestration service that sits between a
// merchant backend and an external payment processor. It owns the payment
// lifecycle state machine, verifies processor webhooks, and exposes a small
// authenticated HTTP API for creating, confirming, refunding, and inspecting
// payments.
//
// # Overview
//
// The merchant backend never talks to the processor directly. It calls
// vendorpay, which issues the processor calls, records an operation log of
// every round trip, and reconciles asynchronous webhook notifications
// against its own records. Card data never touches this service: cards are
// tokenized in the merchant frontend against the processor, and only opaque
// payment method identifiers flow through the API.
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│    Merchant     │◄──►│    VendorPay    │◄──►│    Processor    │
//	│    Backend      │    │ (orchestrator)  │    │    (Stripe)     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//	                              ▲
//	                              │ signed webhooks
//	                              └──────────────────────┘
//
// # Payment Lifecycle
//
// Payments move through a forward-only state machine:
//
//	CREATED → REQUIRES_CONFIRMATION → REQUIRES_ACTION → SUCCEEDED → PARTIALLY_REFUNDED → REFUNDED
//	                                                  → FAILED
//
// Transitions are applied by confirm calls and by verified webhook events.
// Out-of-order or duplicate webhook deliveries are no-ops: a record only
// ever advances. SUCCEEDED and FAILED are mutually exclusive outcomes, and a
// FAILED payment never becomes refundable.
//
// # Webhook Verification
//
// Inbound webhooks carry a signature header of the form
//
//	t=1700000000,v1=5257a869e7ecebeda32affa62cdca3fa51cad7e77a0e56ff536d0ce8e108d8bd
//
// The signature is HMAC-SHA256 over "<timestamp>.<raw body>" with a shared
// signing secret. Verification compares in constant time, accepts multiple
// v1 candidates to allow secret rotation, and rejects timestamps outside a
// configurable tolerance (default five minutes) in either direction. Only
// verified events reach the lifecycle manager.
//
// # Quick Start
//
// Run the service:
//
//	STRIPE_SECRET_KEY=sk_test_... STRIPE_WEBHOOK_SECRET=whsec_... API_KEY=... go run ./cmd
//
// Create and confirm a payment:
//
//	curl -X POST http://localhost:9000/v1/payments \
//	    -H "Authorization: Bearer $API_KEY" \
//	    -H "Content-Type: application/json" \
//	    -d '{"amount": 5000, "currency": "USD", "description": "Order #42"}'
//
//	curl -X POST http://localhost:9000/v1/payments/pi_123/confirm \
//	    -H "Authorization: Bearer $API_KEY" \
//	    -H "Content-Type: application/json" \
//	    -d '{"paymentMethodId": "pm_card_visa"}'
//
// Amounts are integer minor currency units (cents); floating point is never
// used for money.
//
// # Hosted Checkout
//
// For merchants that prefer a processor-hosted payment page, the checkout
// API opens a session and returns a redirect URL. The session resolves to
// complete, expired, or canceled through webhooks or an explicit status
// lookup.
//
// # Observability
//
// Every processor round trip is written to a SQLite operation log with its
// request, response or classified error, and timing. Structured system logs
// go to the console and, when enabled, to an OpenSearch index.
package vendorpay
