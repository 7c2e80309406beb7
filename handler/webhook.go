package handler

import (
	"io"
	"net/http"

	"github.com/vendorpay/vendorpay/infra/logger"
	"github.com/vendorpay/vendorpay/infra/response"
	"github.com/vendorpay/vendorpay/webhook"
)

// EventApplier consumes a verified webhook event
type EventApplier interface {
	ApplyWebhookEvent(event *webhook.Event) error
}

// WebhookHandler verifies incoming processor webhooks and dispatches them
type WebhookHandler struct {
	verifier *webhook.Verifier
	appliers []EventApplier
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(verifier *webhook.Verifier, appliers ...EventApplier) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		appliers: appliers,
	}
}

// HandleWebhook verifies the signature over the exact raw body and applies
// the event. Verification failures return 400 so the processor retries;
// everything after a valid signature returns 200.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the raw bytes, so read them before any parsing
	body, err := io.ReadAll(io.LimitReader(r.Body, 1024*1024))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	event, err := h.verifier.Verify(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("Webhook signature verification failed", logger.LogContext{
			Fields: map[string]any{
				"error":     err.Error(),
				"client_ip": r.RemoteAddr,
			},
		})
		response.ErrorFrom(w, "Webhook verification failed", err)
		return
	}

	for _, applier := range h.appliers {
		if err := applier.ApplyWebhookEvent(event); err != nil {
			logger.Error("Webhook event processing failed", err, logger.LogContext{
				Fields: map[string]any{
					"event_id":   event.ID,
					"event_type": event.Type,
				},
			})
		}
	}

	response.Success(w, http.StatusOK, "Webhook processed", map[string]string{
		"eventId": event.ID,
	})
}
