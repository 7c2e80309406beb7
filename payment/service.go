package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vendorpay/vendorpay/infra/logger"
	"github.com/vendorpay/vendorpay/provider"
	"github.com/vendorpay/vendorpay/webhook"
)

// Service drives payments through their lifecycle: it issues processor
// calls, interprets processor statuses into the state machine, and
// reconciles webhook-delivered outcomes against the same records. Local
// state only ever moves forward; the processor remains the source of truth
// for monetary state.
type Service struct {
	processor provider.Processor
	store     *Store
	oplog     OperationLogger
}

// NewService creates a payment lifecycle service. A nil logger disables
// operation logging.
func NewService(processor provider.Processor, store *Store, oplog OperationLogger) *Service {
	if oplog == nil {
		oplog = NopOperationLogger{}
	}
	return &Service{
		processor: processor,
		store:     store,
		oplog:     oplog,
	}
}

// Create starts a payment for the given amount. The resulting record is
// stored in whatever state the processor reports for a fresh intent.
func (s *Service) Create(ctx context.Context, request provider.CreatePaymentRequest) (provider.PaymentIntentRecord, error) {
	if request.Amount <= 0 {
		return provider.PaymentIntentRecord{}, provider.NewError(provider.ErrValidationRejected, "amount must be greater than zero")
	}
	if request.Currency == "" {
		return provider.PaymentIntentRecord{}, provider.NewError(provider.ErrValidationRejected, "currency is required")
	}

	data, err := s.callCreate(ctx, request)
	if err != nil {
		return provider.PaymentIntentRecord{}, err
	}

	now := time.Now().UTC()
	record := provider.PaymentIntentRecord{
		ID:           data.ID,
		Amount:       data.Amount,
		Currency:     data.Currency,
		Status:       data.Status,
		CustomerID:   data.CustomerID,
		Description:  data.Description,
		ClientSecret: data.ClientSecret,
		ReasonCode:   data.ReasonCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.store.PutPayment(record)

	logger.Info("Payment created", logger.LogContext{
		PaymentID: record.ID,
		Fields: map[string]any{
			"amount":   record.Amount,
			"currency": record.Currency,
			"status":   record.Status,
		},
	})
	return record, nil
}

// Confirm confirms a payment and applies the processor-reported resulting
// state. Terminal records reject confirmation outright.
func (s *Service) Confirm(ctx context.Context, request provider.ConfirmPaymentRequest) (provider.PaymentIntentRecord, error) {
	record, ok := s.store.GetPayment(request.PaymentID)
	if !ok {
		return provider.PaymentIntentRecord{}, provider.NewErrorf(provider.ErrNotFound, "payment %q not found", request.PaymentID)
	}
	if record.Status.IsTerminal() {
		return provider.PaymentIntentRecord{}, provider.NewErrorf(provider.ErrInvalidStateTransition, "payment %q is already %s", record.ID, record.Status)
	}

	data, err := s.callConfirm(ctx, request)
	if err != nil {
		return provider.PaymentIntentRecord{}, err
	}

	updated, _ := s.store.UpdatePayment(record.ID, func(r *provider.PaymentIntentRecord) {
		s.applyStatus(r, data.Status, data.ReasonCode, "confirm")
	})
	return updated, nil
}

// Refund refunds part or all of a succeeded payment. A zero amount refunds
// the remaining refundable balance. The amount is reserved against the
// record under its key lock before the processor call, so two refunds racing
// on the same payment cannot both claim the same balance; repeated partial
// refunds can never exceed the original amount.
func (s *Service) Refund(ctx context.Context, request provider.RefundRequest) (provider.PaymentIntentRecord, error) {
	amount := request.Amount
	var opErr error
	_, ok := s.store.UpdatePayment(request.PaymentID, func(r *provider.PaymentIntentRecord) {
		if r.Status != provider.StatusSucceeded && r.Status != provider.StatusPartiallyRefunded {
			opErr = provider.NewErrorf(provider.ErrInvalidStateTransition, "payment %q in state %s is not refundable", r.ID, r.Status)
			return
		}
		remaining := r.RemainingRefundable()
		if amount == 0 {
			amount = remaining
		}
		if amount > remaining {
			opErr = provider.NewErrorf(provider.ErrValidationRejected, "refund of %d exceeds remaining refundable %d", amount, remaining)
			return
		}
		r.AmountRefunded += amount
	})
	if !ok {
		return provider.PaymentIntentRecord{}, provider.NewErrorf(provider.ErrNotFound, "payment %q not found", request.PaymentID)
	}
	if opErr != nil {
		return provider.PaymentIntentRecord{}, opErr
	}

	refund, err := s.callRefund(ctx, provider.RefundRequest{
		PaymentID: request.PaymentID,
		Amount:    amount,
		Reason:    request.Reason,
	})
	if err != nil {
		// Release the reservation
		s.store.UpdatePayment(request.PaymentID, func(r *provider.PaymentIntentRecord) {
			r.AmountRefunded -= amount
		})
		return provider.PaymentIntentRecord{}, err
	}

	updated, _ := s.store.UpdatePayment(request.PaymentID, func(r *provider.PaymentIntentRecord) {
		// Reconcile if the processor refunded a different amount than asked
		r.AmountRefunded += refund.Amount - amount
		if r.AmountRefunded > r.Amount {
			r.AmountRefunded = r.Amount
		}
		target := provider.StatusPartiallyRefunded
		if r.AmountRefunded >= r.Amount {
			target = provider.StatusRefunded
		}
		if provider.CanTransition(r.Status, target) {
			r.Status = target
		}
		if request.Reason != "" {
			r.ReasonCode = request.Reason
		}
		r.UpdatedAt = time.Now().UTC()
	})

	logger.Info("Payment refunded", logger.LogContext{
		PaymentID: request.PaymentID,
		Fields: map[string]any{
			"refund_id":     refund.ID,
			"refund_amount": refund.Amount,
			"status":        updated.Status,
		},
	})
	return updated, nil
}

// GetStatus returns the local view of a payment.
func (s *Service) GetStatus(paymentID string) (provider.PaymentIntentRecord, error) {
	record, ok := s.store.GetPayment(paymentID)
	if !ok {
		return provider.PaymentIntentRecord{}, provider.NewErrorf(provider.ErrNotFound, "payment %q not found", paymentID)
	}
	return record, nil
}

// SyncFromProcessor fetches the processor's view of a payment and folds it
// into the local store: unknown payments are adopted, known ones advance
// forward only. Used as the fallback when a status lookup misses locally.
func (s *Service) SyncFromProcessor(ctx context.Context, paymentID string) (provider.PaymentIntentRecord, error) {
	data, err := s.processor.RetrievePayment(ctx, paymentID)
	if err != nil {
		return provider.PaymentIntentRecord{}, err
	}

	if updated, ok := s.store.UpdatePayment(data.ID, func(r *provider.PaymentIntentRecord) {
		s.applyStatus(r, data.Status, data.ReasonCode, "sync")
	}); ok {
		return updated, nil
	}

	now := time.Now().UTC()
	record := provider.PaymentIntentRecord{
		ID:           data.ID,
		Amount:       data.Amount,
		Currency:     data.Currency,
		Status:       data.Status,
		CustomerID:   data.CustomerID,
		Description:  data.Description,
		ClientSecret: data.ClientSecret,
		ReasonCode:   data.ReasonCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.store.PutPayment(record)
	return record, nil
}

// paymentEventObject is the subset of a webhook event payload the lifecycle
// manager acts on.
type paymentEventObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
}

// ApplyWebhookEvent reconciles a verified processor event against the local
// record. Out-of-order and duplicate deliveries are no-ops: a transition is
// applied only when it moves the record forward. Events for payments this
// system never created are logged and ignored; webhook delivery order
// relative to create responses is not guaranteed, and intents created in the
// processor's dashboard are outside local scope.
func (s *Service) ApplyWebhookEvent(event *webhook.Event) error {
	var obj paymentEventObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		logger.Warn("Webhook event payload not parseable", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
		return nil
	}

	switch event.Type {
	case "payment_intent.succeeded":
		s.applyEventStatus(event, obj.ID, provider.StatusSucceeded, "")
	case "payment_intent.payment_failed":
		s.applyEventStatus(event, obj.ID, provider.StatusFailed, "payment_failed")
	case "payment_intent.canceled":
		s.applyEventStatus(event, obj.ID, provider.StatusFailed, "canceled")
	case "charge.refunded":
		s.applyRefundEvent(event, obj)
	default:
		logger.Debug("Ignoring unhandled webhook event type", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
	}
	return nil
}

func (s *Service) applyEventStatus(event *webhook.Event, paymentID string, target provider.PaymentStatus, reason string) {
	if paymentID == "" {
		logger.Warn("Webhook event carries no payment identifier", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
		return
	}
	if _, ok := s.store.UpdatePayment(paymentID, func(r *provider.PaymentIntentRecord) {
		s.applyStatus(r, target, reason, event.Type)
	}); !ok {
		logger.Info("Webhook references unknown payment, ignoring", logger.LogContext{
			PaymentID: paymentID,
			Fields:    map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
	}
}

// applyRefundEvent folds a charge.refunded event into the record. The event
// reports the cumulative refunded amount on the charge, so applying it twice
// lands on the same state.
func (s *Service) applyRefundEvent(event *webhook.Event, obj paymentEventObject) {
	paymentID := obj.PaymentIntent
	if paymentID == "" {
		logger.Warn("Refund event carries no payment identifier", logger.LogContext{
			Fields: map[string]any{"event_id": event.ID, "event_type": event.Type},
		})
		return
	}
	if _, ok := s.store.UpdatePayment(paymentID, func(r *provider.PaymentIntentRecord) {
		if obj.AmountRefunded > r.AmountRefunded {
			r.AmountRefunded = obj.AmountRefunded
			if r.AmountRefunded > r.Amount {
				r.AmountRefunded = r.Amount
			}
		}
		target := provider.StatusPartiallyRefunded
		if r.AmountRefunded >= r.Amount {
			target = provider.StatusRefunded
		}
		s.applyStatus(r, target, "", event.Type)
	}); !ok {
		logger.Info("Refund webhook references unknown payment, ignoring", logger.LogContext{
			PaymentID: paymentID,
			Fields:    map[string]any{"event_id": event.ID},
		})
	}
}

// applyStatus advances a record's state when the transition is forward under
// the lifecycle ordering; anything else is a no-op, never an error. Must run
// under the record's key lock.
func (s *Service) applyStatus(r *provider.PaymentIntentRecord, target provider.PaymentStatus, reason, source string) {
	if !provider.CanTransition(r.Status, target) {
		if r.Status != target {
			logger.Debug("Skipping non-forward payment transition", logger.LogContext{
				PaymentID: r.ID,
				Fields: map[string]any{
					"from":   r.Status,
					"to":     target,
					"source": source,
				},
			})
		}
		return
	}
	r.Status = target
	if reason != "" {
		r.ReasonCode = reason
	}
	r.UpdatedAt = time.Now().UTC()
	logger.Info("Payment state advanced", logger.LogContext{
		PaymentID: r.ID,
		Fields: map[string]any{
			"status": target,
			"source": source,
		},
	})
}

// CreateCustomer registers a customer with the processor.
func (s *Service) CreateCustomer(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "customer.create", "", request)

	data, err := s.processor.CreateCustomer(ctx, request)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

// ListPaymentMethods lists the payment methods saved on a customer.
func (s *Service) ListPaymentMethods(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "customer.payment_methods", "", customerID)

	data, err := s.processor.ListPaymentMethods(ctx, customerID)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

// CreateSetupIntent requests a tokenization secret for saving a card.
func (s *Service) CreateSetupIntent(ctx context.Context, customerID string) (*provider.SetupIntentData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "customer.setup_intent", "", customerID)

	data, err := s.processor.CreateSetupIntent(ctx, customerID)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

func (s *Service) callCreate(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "payment.create", "", request)

	data, err := s.processor.CreatePayment(ctx, request)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

func (s *Service) callConfirm(ctx context.Context, request provider.ConfirmPaymentRequest) (*provider.PaymentData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "payment.confirm", request.PaymentID, request)

	data, err := s.processor.ConfirmPayment(ctx, request.PaymentID, request.PaymentMethod)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

func (s *Service) callRefund(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
	start := time.Now()
	logID := s.logRequest(ctx, "payment.refund", request.PaymentID, request)

	data, err := s.processor.RefundPayment(ctx, request)
	s.logOutcome(ctx, logID, data, err, start)
	return data, err
}

func (s *Service) logRequest(ctx context.Context, operation, paymentID string, request any) int64 {
	logID, err := s.oplog.LogRequest(ctx, operation, paymentID, request)
	if err != nil {
		logger.Warn("Failed to log operation request", logger.LogContext{
			PaymentID: paymentID,
			Fields: map[string]any{
				"operation": operation,
				"error":     err.Error(),
			},
		})
	}
	return logID
}

func (s *Service) logOutcome(ctx context.Context, logID int64, response any, opErr error, start time.Time) {
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
		logger.Warn("Failed to log operation outcome", logger.LogContext{
			Fields: map[string]any{
				"log_id": logID,
				"error":  logErr.Error(),
			},
		})
	}
}
