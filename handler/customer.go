package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vendorpay/vendorpay/infra/response"
	"github.com/vendorpay/vendorpay/provider"
)

// CustomerServiceInterface defines the interface for customer operations
type CustomerServiceInterface interface {
	CreateCustomer(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*provider.SetupIntentData, error)
}

// CustomerHandler handles customer related HTTP requests
type CustomerHandler struct {
	customerService CustomerServiceInterface
	validate        *validator.Validate
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService CustomerServiceInterface, validate *validator.Validate) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		validate:        validate,
	}
}

// CreateCustomer registers a customer with the processor
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req provider.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	customer, err := h.customerService.CreateCustomer(ctx, req)
	if err != nil {
		response.ErrorFrom(w, "Customer creation failed", err)
		return
	}

	response.Success(w, http.StatusCreated, "Customer created", customer)
}

// ListPaymentMethods returns the saved payment methods for a customer
func (h *CustomerHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		response.Error(w, http.StatusBadRequest, "Missing customer ID", nil)
		return
	}

	methods, err := h.customerService.ListPaymentMethods(ctx, customerID)
	if err != nil {
		response.ErrorFrom(w, "Failed to list payment methods", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment methods retrieved", methods)
}

// CreateSetupIntent starts a card tokenization flow for a customer. The card
// itself never touches this server; the frontend uses the returned client
// secret.
func (h *CustomerHandler) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		response.Error(w, http.StatusBadRequest, "Missing customer ID", nil)
		return
	}

	intent, err := h.customerService.CreateSetupIntent(ctx, customerID)
	if err != nil {
		response.ErrorFrom(w, "Failed to create setup intent", err)
		return
	}

	response.Success(w, http.StatusCreated, "Setup intent created", intent)
}
