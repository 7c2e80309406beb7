package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vendorpay/vendorpay/infra/response"
	"github.com/vendorpay/vendorpay/provider"
)

// PaymentServiceInterface defines the interface for payment operations
type PaymentServiceInterface interface {
	Create(ctx context.Context, request provider.CreatePaymentRequest) (provider.PaymentIntentRecord, error)
	Confirm(ctx context.Context, request provider.ConfirmPaymentRequest) (provider.PaymentIntentRecord, error)
	Refund(ctx context.Context, request provider.RefundRequest) (provider.PaymentIntentRecord, error)
	GetStatus(paymentID string) (provider.PaymentIntentRecord, error)
	SyncFromProcessor(ctx context.Context, paymentID string) (provider.PaymentIntentRecord, error)
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
	}
}

// CreatePayment handles payment creation requests
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	// Parse the payment request
	var req provider.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	// Every create carries an idempotency key so a retried request cannot
	// double-charge
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	// Validate the request
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	// Create the payment
	record, err := h.paymentService.Create(ctx, req)
	if err != nil {
		response.ErrorFrom(w, "Payment creation failed", err)
		return
	}

	// Return response
	response.Success(w, http.StatusCreated, "Payment created", record)
}

// ConfirmPayment handles payment confirmation requests
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		response.Error(w, http.StatusBadRequest, "Missing payment ID", nil)
		return
	}

	// The body is optional; a payment method may have been attached at
	// creation time
	var body struct {
		PaymentMethod string `json:"paymentMethodId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	req := provider.ConfirmPaymentRequest{
		PaymentID:     paymentID,
		PaymentMethod: body.PaymentMethod,
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	record, err := h.paymentService.Confirm(ctx, req)
	if err != nil {
		response.ErrorFrom(w, "Payment confirmation failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment confirmed", record)
}

// GetPaymentStatus handles payment status requests. When the payment is not
// known locally it falls back to a processor lookup.
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		response.Error(w, http.StatusBadRequest, "Missing payment ID", nil)
		return
	}

	record, err := h.paymentService.GetStatus(paymentID)
	if err != nil {
		if provider.IsCode(err, provider.ErrNotFound) {
			record, err = h.paymentService.SyncFromProcessor(ctx, paymentID)
		}
		if err != nil {
			response.ErrorFrom(w, "Failed to get payment status", err)
			return
		}
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", record)
}

// RefundPayment handles refund requests
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		response.Error(w, http.StatusBadRequest, "Missing payment ID", nil)
		return
	}

	var body struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	req := provider.RefundRequest{
		PaymentID: paymentID,
		Amount:    body.Amount,
		Reason:    body.Reason,
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	record, err := h.paymentService.Refund(ctx, req)
	if err != nil {
		response.ErrorFrom(w, "Refund failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Refund processed", record)
}
