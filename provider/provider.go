package provider

import (
	"context"
	"time"
)

// PaymentStatus represents the lifecycle state of a payment intent
type PaymentStatus string

const (
	StatusCreated              PaymentStatus = "created"
	StatusRequiresConfirmation PaymentStatus = "requires_confirmation"
	StatusRequiresAction       PaymentStatus = "requires_action"
	StatusSucceeded            PaymentStatus = "succeeded"
	StatusFailed               PaymentStatus = "failed"
	StatusPartiallyRefunded    PaymentStatus = "partially_refunded"
	StatusRefunded             PaymentStatus = "refunded"
)

// statusRank orders payment states for monotonic transitions. FAILED shares
// a rank with SUCCEEDED: both conclude the pre-settlement phase and neither
// may replace the other.
var statusRank = map[PaymentStatus]int{
	StatusCreated:              0,
	StatusRequiresConfirmation: 1,
	StatusRequiresAction:       2,
	StatusSucceeded:            3,
	StatusFailed:               3,
	StatusPartiallyRefunded:    4,
	StatusRefunded:             5,
}

// CanTransition reports whether moving from one payment state to another is
// forward under the lifecycle ordering. Equal states and backward moves are
// rejected, as is crossing from the failure branch into the refund branch.
func CanTransition(from, to PaymentStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if toRank <= fromRank {
		return false
	}
	// A failed payment is terminal: it never becomes refundable.
	if from == StatusFailed {
		return false
	}
	return true
}

// IsTerminal reports whether the pre-settlement lifecycle has concluded.
// Refund states still accept further refunds but no confirmation.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// SessionStatus represents the state of a hosted checkout session
type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionComplete SessionStatus = "complete"
	SessionExpired  SessionStatus = "expired"
	SessionCanceled SessionStatus = "canceled"
)

// CanTransitionSession applies the same monotonic rule to checkout sessions:
// only PENDING may move, and only to a terminal state.
func CanTransitionSession(from, to SessionStatus) bool {
	if from != SessionPending {
		return false
	}
	switch to {
	case SessionComplete, SessionExpired, SessionCanceled:
		return true
	}
	return false
}

// PaymentIntentRecord tracks a payment through its lifecycle. Identifier and
// monetary fields come from the processor; Status is this system's view,
// advanced only by confirm calls and verified webhook events.
type PaymentIntentRecord struct {
	ID             string        `json:"id"`
	Amount         int64         `json:"amount"`
	AmountRefunded int64         `json:"amountRefunded"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	CustomerID     string        `json:"customerId,omitempty"`
	Description    string        `json:"description,omitempty"`
	ClientSecret   string        `json:"clientSecret,omitempty"`
	ReasonCode     string        `json:"reasonCode,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// RemainingRefundable returns how much of the original amount may still be
// refunded.
func (r *PaymentIntentRecord) RemainingRefundable() int64 {
	return r.Amount - r.AmountRefunded
}

// CustomerRecord holds the processor-assigned customer identity.
type CustomerRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CheckoutSessionRecord tracks a hosted checkout flow.
type CheckoutSessionRecord struct {
	ID          string        `json:"id"`
	CustomerID  string        `json:"customerId,omitempty"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Description string        `json:"description,omitempty"`
	Status      SessionStatus `json:"status"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
	SuccessURL  string        `json:"successUrl,omitempty"`
	CancelURL   string        `json:"cancelUrl,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CreatePaymentRequest contains all information required to create a payment.
// Amount is in minor currency units (cents); floating point is never used
// for money.
type CreatePaymentRequest struct {
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Currency       string `json:"currency" validate:"required,currency"`
	Description    string `json:"description,omitempty"`
	CustomerID     string `json:"customerId,omitempty"`
	CustomerEmail  string `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerName   string `json:"customerName,omitempty"`
	PaymentMethod  string `json:"paymentMethodId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// ConfirmPaymentRequest confirms a previously created payment.
type ConfirmPaymentRequest struct {
	PaymentID     string `json:"paymentId" validate:"required"`
	PaymentMethod string `json:"paymentMethodId,omitempty"`
}

// RefundRequest asks for a full or partial refund. A zero Amount refunds the
// remaining refundable balance.
type RefundRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
	Amount    int64  `json:"amount,omitempty" validate:"gte=0"`
	Reason    string `json:"reason,omitempty"`
}

// CreateCustomerRequest registers a customer with the processor.
type CreateCustomerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// CreateCheckoutRequest starts a hosted checkout session.
type CreateCheckoutRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,currency"`
	Description string `json:"description" validate:"required"`
	CustomerID  string `json:"customerId,omitempty"`
	SuccessURL  string `json:"successUrl,omitempty" validate:"omitempty,url"`
	CancelURL   string `json:"cancelUrl,omitempty" validate:"omitempty,url"`
}

// PaymentData is the normalized result of a processor payment operation.
type PaymentData struct {
	ID           string
	Amount       int64
	Currency     string
	Status       PaymentStatus
	CustomerID   string
	ClientSecret string
	Description  string
	ReasonCode   string
}

// RefundData is the normalized result of a refund operation.
type RefundData struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
}

// CustomerData is the normalized result of a customer operation.
type CustomerData struct {
	ID    string
	Email string
	Name  string
}

// SetupIntentData carries the client secret the frontend needs to tokenize a
// card without this server ever seeing it.
type SetupIntentData struct {
	ID           string
	ClientSecret string
	Status       string
}

// PaymentMethodData describes a saved payment method.
type PaymentMethodData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Brand    string `json:"brand,omitempty"`
	Last4    string `json:"last4,omitempty"`
	ExpMonth int64  `json:"expMonth,omitempty"`
	ExpYear  int64  `json:"expYear,omitempty"`
}

// CheckoutData is the normalized result of a checkout session operation.
type CheckoutData struct {
	ID          string
	Amount      int64
	Currency    string
	Status      SessionStatus
	CustomerID  string
	RedirectURL string
}

// Processor defines the operations the external payment processor must
// support. Every call is a network round trip; none retries internally, and
// create operations are only safely retryable when the caller supplies an
// idempotency key.
type Processor interface {
	CreatePayment(ctx context.Context, request CreatePaymentRequest) (*PaymentData, error)
	ConfirmPayment(ctx context.Context, paymentID, paymentMethod string) (*PaymentData, error)
	RetrievePayment(ctx context.Context, paymentID string) (*PaymentData, error)
	RefundPayment(ctx context.Context, request RefundRequest) (*RefundData, error)

	CreateCustomer(ctx context.Context, request CreateCustomerRequest) (*CustomerData, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethodData, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntentData, error)

	CreateCheckoutSession(ctx context.Context, request CreateCheckoutRequest) (*CheckoutData, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutData, error)
}
