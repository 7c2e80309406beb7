package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vendorpay/vendorpay/infra/config"
	"github.com/vendorpay/vendorpay/infra/response"
	"github.com/vendorpay/vendorpay/provider"
)

// CheckoutServiceInterface defines the interface for checkout operations
type CheckoutServiceInterface interface {
	Create(ctx context.Context, request provider.CreateCheckoutRequest) (provider.CheckoutSessionRecord, error)
	Resolve(ctx context.Context, sessionID string) (provider.CheckoutSessionRecord, error)
	Cancel(sessionID string) (provider.CheckoutSessionRecord, error)
}

// CheckoutHandler handles hosted checkout HTTP requests
type CheckoutHandler struct {
	checkoutService CheckoutServiceInterface
	validate        *validator.Validate
	config          *config.AppConfig
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService CheckoutServiceInterface, validate *validator.Validate, cfg *config.AppConfig) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        validate,
		config:          cfg,
	}
}

// CreateCheckout opens a hosted checkout session
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req provider.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	// Merchants may omit the redirect URLs and use the configured defaults
	if req.SuccessURL == "" {
		req.SuccessURL = h.config.DefaultSuccessURL
	}
	if req.CancelURL == "" {
		req.CancelURL = h.config.DefaultCancelURL
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	record, err := h.checkoutService.Create(ctx, req)
	if err != nil {
		response.ErrorFrom(w, "Checkout creation failed", err)
		return
	}

	response.Success(w, http.StatusCreated, "Checkout session created", record)
}

// GetCheckout returns a session's current state, refreshing it from the
// processor when it is still pending
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing session ID", nil)
		return
	}

	record, err := h.checkoutService.Resolve(ctx, sessionID)
	if err != nil {
		response.ErrorFrom(w, "Failed to get checkout session", err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout session retrieved", record)
}

// CheckoutSuccess is the landing endpoint for the processor's success
// redirect. The session state itself is advanced by the webhook; this only
// reflects what is known so far.
func (h *CheckoutHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing session_id parameter", nil)
		return
	}

	record, err := h.checkoutService.Resolve(ctx, sessionID)
	if err != nil {
		response.ErrorFrom(w, "Failed to resolve checkout session", err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout completed", record)
}

// CheckoutCancel is the landing endpoint for the processor's cancel
// redirect. A still-pending session is marked canceled.
func (h *CheckoutHandler) CheckoutCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing session_id parameter", nil)
		return
	}

	record, err := h.checkoutService.Cancel(sessionID)
	if err != nil {
		// An already resolved session is not an error for the customer
		if provider.IsCode(err, provider.ErrInvalidStateTransition) {
			response.Success(w, http.StatusOK, "Checkout session already resolved", record)
			return
		}
		response.ErrorFrom(w, "Failed to cancel checkout session", err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout canceled", record)
}
