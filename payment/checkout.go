package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vendorpay/vendorpay/infra/logger"
	"github.com/vendorpay/vendorpay/provider"
	"github.com/vendorpay/vendorpay/webhook"
)

// CheckoutService manages hosted checkout sessions: a two-phase flow where
// the customer completes payment on the processor's page and the session
// resolves through a status lookup or a verified webhook.
type CheckoutService struct {
	processor provider.Processor
	store     *Store
	oplog     OperationLogger
}

// NewCheckoutService creates a checkout session service.
func NewCheckoutService(processor provider.Processor, store *Store, oplog OperationLogger) *CheckoutService {
	if oplog == nil {
		oplog = NopOperationLogger{}
	}
	return &CheckoutService{
		processor: processor,
		store:     store,
		oplog:     oplog,
	}
}

// Create opens a hosted checkout session and stores it as PENDING. The
// caller redirects the customer to the returned URL.
func (s *CheckoutService) Create(ctx context.Context, request provider.CreateCheckoutRequest) (provider.CheckoutSessionRecord, error) {
	if request.Amount <= 0 {
		return provider.CheckoutSessionRecord{}, provider.NewError(provider.ErrValidationRejected, "amount must be greater than zero")
	}
	if request.Currency == "" {
		return provider.CheckoutSessionRecord{}, provider.NewError(provider.ErrValidationRejected, "currency is required")
	}
	if request.Description == "" {
		return provider.CheckoutSessionRecord{}, provider.NewError(provider.ErrValidationRejected, "description is required")
	}

	start := time.Now()
	logID, logErr := s.oplog.LogRequest(ctx, "checkout.create", "", request)
	if logErr != nil {
		logger.Warn("Failed to log checkout request", logger.LogContext{
			Fields: map[string]any{"error": logErr.Error()},
		})
	}

	data, err := s.processor.CreateCheckoutSession(ctx, request)
	s.logOutcome(ctx, logID, data, err, start)
	if err != nil {
		return provider.CheckoutSessionRecord{}, err
	}

	now := time.Now().UTC()
	record := provider.CheckoutSessionRecord{
		ID:          data.ID,
		CustomerID:  data.CustomerID,
		Amount:      data.Amount,
		Currency:    data.Currency,
		Description: request.Description,
		Status:      provider.SessionPending,
		RedirectURL: data.RedirectURL,
		SuccessURL:  request.SuccessURL,
		CancelURL:   request.CancelURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.store.PutSession(record)

	logger.Info("Checkout session created", logger.LogContext{
		Fields: map[string]any{
			"session_id": record.ID,
			"amount":     record.Amount,
			"currency":   record.Currency,
		},
	})
	return record, nil
}

// Resolve refreshes a session's state from the processor and returns it.
// The session must exist locally.
func (s *CheckoutService) Resolve(ctx context.Context, sessionID string) (provider.CheckoutSessionRecord, error) {
	record, ok := s.store.GetSession(sessionID)
	if !ok {
		return provider.CheckoutSessionRecord{}, provider.NewErrorf(provider.ErrNotFound, "checkout session %q not found", sessionID)
	}
	if record.Status != provider.SessionPending {
		return record, nil
	}

	data, err := s.processor.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return provider.CheckoutSessionRecord{}, err
	}

	updated, _ := s.store.UpdateSession(sessionID, func(r *provider.CheckoutSessionRecord) {
		s.applyStatus(r, data.Status, "resolve")
	})
	return updated, nil
}

// Cancel marks a pending session as canceled, typically when the customer
// lands on the cancel redirect. Sessions that already resolved stay as they
// are.
func (s *CheckoutService) Cancel(sessionID string) (provider.CheckoutSessionRecord, error) {
	record, ok := s.store.GetSession(sessionID)
	if !ok {
		return provider.CheckoutSessionRecord{}, provider.NewErrorf(provider.ErrNotFound, "checkout session %q not found", sessionID)
	}
	if record.Status != provider.SessionPending {
		return record, provider.NewErrorf(provider.ErrInvalidStateTransition, "checkout session %q is already %s", sessionID, record.Status)
	}

	updated, _ := s.store.UpdateSession(sessionID, func(r *provider.CheckoutSessionRecord) {
		s.applyStatus(r, provider.SessionCanceled, "cancel")
	})
	return updated, nil
}

// ApplyWebhookEvent reconciles a verified checkout event against the local
// session under the same forward-only rule as payments.
func (s *CheckoutService) ApplyWebhookEvent(event *webhook.Event) error {
	var target provider.SessionStatus
	switch event.Type {
	case "checkout.session.completed":
		target = provider.SessionComplete
	case "checkout.session.expired":
		target = provider.SessionExpired
	default:
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil || obj.ID == "" {
		logger.Warn("Checkout webhook payload not parseable", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
		return nil
	}

	if _, ok := s.store.UpdateSession(obj.ID, func(r *provider.CheckoutSessionRecord) {
		s.applyStatus(r, target, event.Type)
	}); !ok {
		logger.Info("Webhook references unknown checkout session, ignoring", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "session_id": obj.ID},
		})
	}
	return nil
}

// applyStatus advances a session when the transition is forward; otherwise
// it is a no-op. Must run under the record's key lock.
func (s *CheckoutService) applyStatus(r *provider.CheckoutSessionRecord, target provider.SessionStatus, source string) {
	if !provider.CanTransitionSession(r.Status, target) {
		return
	}
	r.Status = target
	r.UpdatedAt = time.Now().UTC()
	logger.Info("Checkout session state advanced", logger.LogContext{
		Fields: map[string]any{
			"session_id": r.ID,
			"status":     target,
			"source":     source,
		},
	})
}

func (s *CheckoutService) logOutcome(ctx context.Context, logID int64, response any, opErr error, start time.Time) {
	if logID <= 0 {
		return
	}
	processingMs := time.Since(start).Milliseconds()

	var logErr error
	if opErr != nil {
		logErr = s.oplog.LogError(ctx, logID, string(provider.CodeOf(opErr)), opErr.Error(), processingMs)
	} else {
		logErr = s.oplog.LogResponse(ctx, logID, response, processingMs)
	}
	if logErr != nil {
		logger.Warn("Failed to log checkout outcome", logger.LogContext{
			Fields: map[string]any{
				"log_id": logID,
				"error":  logErr.Error(),
			},
		})
	}
}
