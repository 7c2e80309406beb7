package payment

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpay/vendorpay/provider"
	"github.com/vendorpay/vendorpay/webhook"
)

// mockProcessor implements provider.Processor with overridable functions so
// each test controls exactly the calls it expects.
type mockProcessor struct {
	createPayment   func(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error)
	confirmPayment  func(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error)
	retrievePayment func(ctx context.Context, paymentID string) (*provider.PaymentData, error)
	refundPayment   func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error)
	createCustomer  func(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error)
	listMethods     func(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error)
	createSetup     func(ctx context.Context, customerID string) (*provider.SetupIntentData, error)
	createCheckout  func(ctx context.Context, request provider.CreateCheckoutRequest) (*provider.CheckoutData, error)
	getCheckout     func(ctx context.Context, sessionID string) (*provider.CheckoutData, error)
}

func (m *mockProcessor) CreatePayment(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
	return m.createPayment(ctx, request)
}

func (m *mockProcessor) ConfirmPayment(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error) {
	return m.confirmPayment(ctx, paymentID, paymentMethod)
}

func (m *mockProcessor) RetrievePayment(ctx context.Context, paymentID string) (*provider.PaymentData, error) {
	return m.retrievePayment(ctx, paymentID)
}

func (m *mockProcessor) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
	return m.refundPayment(ctx, request)
}

func (m *mockProcessor) CreateCustomer(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error) {
	return m.createCustomer(ctx, request)
}

func (m *mockProcessor) ListPaymentMethods(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error) {
	return m.listMethods(ctx, customerID)
}

func (m *mockProcessor) CreateSetupIntent(ctx context.Context, customerID string) (*provider.SetupIntentData, error) {
	return m.createSetup(ctx, customerID)
}

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, request provider.CreateCheckoutRequest) (*provider.CheckoutData, error) {
	return m.createCheckout(ctx, request)
}

func (m *mockProcessor) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*provider.CheckoutData, error) {
	return m.getCheckout(ctx, sessionID)
}

func paymentEvent(t *testing.T, eventType string, object any) *webhook.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)

	event := &webhook.Event{ID: "evt_" + eventType, Type: eventType}
	event.Data.Object = raw
	return event
}

func newServiceWithPayment(t *testing.T, record provider.PaymentIntentRecord) (*Service, *mockProcessor, *Store) {
	t.Helper()
	proc := &mockProcessor{}
	store := NewStore()
	store.PutPayment(record)
	return NewService(proc, store, nil), proc, store
}

func TestCreatePayment(t *testing.T) {
	proc := &mockProcessor{
		createPayment: func(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
			assert.Equal(t, int64(5000), request.Amount)
			assert.Equal(t, "idem_1", request.IdempotencyKey)
			return &provider.PaymentData{
				ID:           "pi_1",
				Amount:       request.Amount,
				Currency:     request.Currency,
				Status:       provider.StatusCreated,
				ClientSecret: "pi_1_secret",
			}, nil
		},
	}
	store := NewStore()
	service := NewService(proc, store, nil)

	record, err := service.Create(context.Background(), provider.CreatePaymentRequest{
		Amount:         5000,
		Currency:       "usd",
		IdempotencyKey: "idem_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", record.ID)
	assert.Equal(t, provider.StatusCreated, record.Status)
	assert.Equal(t, "pi_1_secret", record.ClientSecret)

	stored, ok := store.GetPayment("pi_1")
	require.True(t, ok)
	assert.Equal(t, int64(5000), stored.Amount)
}

func TestCreatePaymentValidation(t *testing.T) {
	service := NewService(&mockProcessor{}, NewStore(), nil)

	_, err := service.Create(context.Background(), provider.CreatePaymentRequest{Amount: 0, Currency: "usd"})
	assert.True(t, provider.IsCode(err, provider.ErrValidationRejected))

	_, err = service.Create(context.Background(), provider.CreatePaymentRequest{Amount: -100, Currency: "usd"})
	assert.True(t, provider.IsCode(err, provider.ErrValidationRejected))

	_, err = service.Create(context.Background(), provider.CreatePaymentRequest{Amount: 100})
	assert.True(t, provider.IsCode(err, provider.ErrValidationRejected))
}

func TestCreatePaymentProcessorError(t *testing.T) {
	proc := &mockProcessor{
		createPayment: func(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
			return nil, provider.NewError(provider.ErrProcessorUnavailable, "stripe: create payment failed")
		},
	}
	store := NewStore()
	service := NewService(proc, store, nil)

	_, err := service.Create(context.Background(), provider.CreatePaymentRequest{Amount: 100, Currency: "usd"})
	require.Error(t, err)
	assert.True(t, provider.IsCode(err, provider.ErrProcessorUnavailable))

	// Nothing is stored for a failed create
	_, ok := store.GetPayment("pi_1")
	assert.False(t, ok)
}

func TestConfirmPayment(t *testing.T) {
	service, proc, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusRequiresConfirmation,
	})
	proc.confirmPayment = func(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error) {
		assert.Equal(t, "pi_1", paymentID)
		assert.Equal(t, "pm_card", paymentMethod)
		return &provider.PaymentData{ID: "pi_1", Status: provider.StatusSucceeded}, nil
	}

	record, err := service.Confirm(context.Background(), provider.ConfirmPaymentRequest{
		PaymentID:     "pi_1",
		PaymentMethod: "pm_card",
	})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusSucceeded, record.Status)
}

func TestConfirmPaymentNotFound(t *testing.T) {
	service := NewService(&mockProcessor{}, NewStore(), nil)

	_, err := service.Confirm(context.Background(), provider.ConfirmPaymentRequest{PaymentID: "pi_missing"})
	assert.True(t, provider.IsCode(err, provider.ErrNotFound))
}

func TestConfirmPaymentTerminalState(t *testing.T) {
	for _, status := range []provider.PaymentStatus{
		provider.StatusSucceeded,
		provider.StatusFailed,
		provider.StatusRefunded,
	} {
		t.Run(string(status), func(t *testing.T) {
			service, _, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
				ID:     "pi_1",
				Status: status,
			})

			_, err := service.Confirm(context.Background(), provider.ConfirmPaymentRequest{PaymentID: "pi_1"})
			assert.True(t, provider.IsCode(err, provider.ErrInvalidStateTransition))
		})
	}
}

func TestConfirmPaymentDeclined(t *testing.T) {
	service, proc, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})
	proc.confirmPayment = func(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error) {
		return nil, provider.NewError(provider.ErrProcessorRejected, "card declined").WithReason("insufficient_funds")
	}

	_, err := service.Confirm(context.Background(), provider.ConfirmPaymentRequest{PaymentID: "pi_1"})
	require.Error(t, err)
	assert.True(t, provider.IsCode(err, provider.ErrProcessorRejected))

	// The local record stays where it was; the failed outcome arrives by
	// webhook if the processor settles on one
	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusRequiresConfirmation, record.Status)
}

func TestRefundPartial(t *testing.T) {
	service, proc, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})
	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		assert.Equal(t, int64(2000), request.Amount)
		return &provider.RefundData{ID: "re_1", PaymentID: "pi_1", Amount: 2000}, nil
	}

	record, err := service.Refund(context.Background(), provider.RefundRequest{
		PaymentID: "pi_1",
		Amount:    2000,
	})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPartiallyRefunded, record.Status)
	assert.Equal(t, int64(2000), record.AmountRefunded)
	assert.Equal(t, int64(3000), record.RemainingRefundable())
}

func TestRefundFullByDefault(t *testing.T) {
	service, proc, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})
	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		// A zero requested amount refunds the remaining balance
		assert.Equal(t, int64(5000), request.Amount)
		return &provider.RefundData{ID: "re_1", PaymentID: "pi_1", Amount: 5000}, nil
	}

	record, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusRefunded, record.Status)
	assert.Equal(t, int64(0), record.RemainingRefundable())
}

func TestRefundSequenceToFull(t *testing.T) {
	service, proc, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})
	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		return &provider.RefundData{ID: "re", PaymentID: "pi_1", Amount: request.Amount}, nil
	}

	record, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 2000})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusPartiallyRefunded, record.Status)

	record, err = service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusRefunded, record.Status)
	assert.Equal(t, int64(5000), record.AmountRefunded)

	// A fully refunded payment accepts no further refunds
	_, err = service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 1})
	assert.True(t, provider.IsCode(err, provider.ErrInvalidStateTransition))
}

func TestRefundExceedsRemaining(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:             "pi_1",
		Amount:         5000,
		AmountRefunded: 4000,
		Status:         provider.StatusPartiallyRefunded,
	})

	_, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 2000})
	assert.True(t, provider.IsCode(err, provider.ErrValidationRejected))

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, int64(4000), record.AmountRefunded)
}

func TestRefundWrongState(t *testing.T) {
	for _, status := range []provider.PaymentStatus{
		provider.StatusCreated,
		provider.StatusRequiresConfirmation,
		provider.StatusRequiresAction,
		provider.StatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			service, _, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
				ID:     "pi_1",
				Amount: 5000,
				Status: status,
			})

			_, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 100})
			assert.True(t, provider.IsCode(err, provider.ErrInvalidStateTransition))
		})
	}
}

func TestRefundConcurrentClaimsRejected(t *testing.T) {
	service, proc, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})

	var calls int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		atomic.AddInt32(&calls, 1)
		entered <- struct{}{}
		<-release
		return &provider.RefundData{ID: "re_1", PaymentID: "pi_1", Amount: request.Amount}, nil
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 5000})
		firstDone <- err
	}()
	<-entered

	// The first refund holds the full balance while its processor call is
	// in flight; a second refund must be rejected, not clamped
	_, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 5000})
	assert.True(t, provider.IsCode(err, provider.ErrValidationRejected))

	close(release)
	require.NoError(t, <-firstDone)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusRefunded, record.Status)
	assert.Equal(t, int64(5000), record.AmountRefunded)
}

func TestRefundProcessorErrorReleasesBalance(t *testing.T) {
	service, proc, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})
	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		return nil, provider.NewError(provider.ErrProcessorUnavailable, "stripe: refund failed")
	}

	_, err := service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1", Amount: 2000})
	require.Error(t, err)
	assert.True(t, provider.IsCode(err, provider.ErrProcessorUnavailable))

	// The failed attempt gives its claimed balance back
	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, int64(0), record.AmountRefunded)
	assert.Equal(t, provider.StatusSucceeded, record.Status)

	proc.refundPayment = func(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
		return &provider.RefundData{ID: "re_1", PaymentID: "pi_1", Amount: request.Amount}, nil
	}
	record, err = service.Refund(context.Background(), provider.RefundRequest{PaymentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusRefunded, record.Status)
}

func TestSyncFromProcessorAdoptsUnknown(t *testing.T) {
	proc := &mockProcessor{
		retrievePayment: func(ctx context.Context, paymentID string) (*provider.PaymentData, error) {
			return &provider.PaymentData{
				ID:     paymentID,
				Amount: 7000,
				Status: provider.StatusSucceeded,
			}, nil
		},
	}
	store := NewStore()
	service := NewService(proc, store, nil)

	record, err := service.SyncFromProcessor(context.Background(), "pi_ext")
	require.NoError(t, err)
	assert.Equal(t, provider.StatusSucceeded, record.Status)

	stored, ok := store.GetPayment("pi_ext")
	require.True(t, ok)
	assert.Equal(t, int64(7000), stored.Amount)
}

func TestSyncFromProcessorForwardOnly(t *testing.T) {
	service, proc, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusSucceeded,
	})
	proc.retrievePayment = func(ctx context.Context, paymentID string) (*provider.PaymentData, error) {
		return &provider.PaymentData{ID: "pi_1", Status: provider.StatusRequiresAction}, nil
	}

	record, err := service.SyncFromProcessor(context.Background(), "pi_1")
	require.NoError(t, err)

	// A stale processor view never moves the record backward
	assert.Equal(t, provider.StatusSucceeded, record.Status)
	stored, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusSucceeded, stored.Status)
}

func TestWebhookSucceededAdvances(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})

	err := service.ApplyWebhookEvent(paymentEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"}))
	require.NoError(t, err)

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusSucceeded, record.Status)
}

func TestWebhookFailedAfterSucceededIsNoop(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusSucceeded,
	})

	err := service.ApplyWebhookEvent(paymentEvent(t, "payment_intent.payment_failed", map[string]any{"id": "pi_1"}))
	require.NoError(t, err)

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusSucceeded, record.Status)
	assert.Empty(t, record.ReasonCode)
}

func TestWebhookFailedRecordsReason(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})

	err := service.ApplyWebhookEvent(paymentEvent(t, "payment_intent.payment_failed", map[string]any{"id": "pi_1"}))
	require.NoError(t, err)

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusFailed, record.Status)
	assert.Equal(t, "payment_failed", record.ReasonCode)
}

func TestWebhookDuplicateDeliveryIdempotent(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})

	event := paymentEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"})
	require.NoError(t, service.ApplyWebhookEvent(event))
	first, _ := store.GetPayment("pi_1")

	require.NoError(t, service.ApplyWebhookEvent(event))
	second, _ := store.GetPayment("pi_1")

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestWebhookUnknownPaymentIgnored(t *testing.T) {
	service := NewService(&mockProcessor{}, NewStore(), nil)

	err := service.ApplyWebhookEvent(paymentEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_unknown"}))
	assert.NoError(t, err)
}

func TestWebhookUnhandledTypeIgnored(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusCreated,
	})

	err := service.ApplyWebhookEvent(paymentEvent(t, "invoice.finalized", map[string]any{"id": "pi_1"}))
	require.NoError(t, err)

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusCreated, record.Status)
}

func TestWebhookRefundEvent(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Amount: 5000,
		Status: provider.StatusSucceeded,
	})

	// charge.refunded reports the cumulative refunded amount on the charge
	event := paymentEvent(t, "charge.refunded", map[string]any{
		"id":              "ch_1",
		"payment_intent":  "pi_1",
		"amount":          5000,
		"amount_refunded": 2000,
	})
	require.NoError(t, service.ApplyWebhookEvent(event))

	record, _ := store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusPartiallyRefunded, record.Status)
	assert.Equal(t, int64(2000), record.AmountRefunded)

	// Redelivery of the same cumulative amount lands on the same state
	require.NoError(t, service.ApplyWebhookEvent(event))
	record, _ = store.GetPayment("pi_1")
	assert.Equal(t, int64(2000), record.AmountRefunded)

	// A later event with the full cumulative amount completes the refund
	full := paymentEvent(t, "charge.refunded", map[string]any{
		"id":              "ch_1",
		"payment_intent":  "pi_1",
		"amount":          5000,
		"amount_refunded": 5000,
	})
	require.NoError(t, service.ApplyWebhookEvent(full))
	record, _ = store.GetPayment("pi_1")
	assert.Equal(t, provider.StatusRefunded, record.Status)
}

func TestWebhookConcurrentDeliveries(t *testing.T) {
	service, _, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})

	succeeded := paymentEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1"})
	failed := paymentEvent(t, "payment_intent.payment_failed", map[string]any{"id": "pi_1"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = service.ApplyWebhookEvent(succeeded)
		}()
		go func() {
			defer wg.Done()
			_ = service.ApplyWebhookEvent(failed)
		}()
	}
	wg.Wait()

	// Whichever outcome landed first wins and the other is a no-op
	record, _ := store.GetPayment("pi_1")
	assert.Contains(t, []provider.PaymentStatus{provider.StatusSucceeded, provider.StatusFailed}, record.Status)
}

func TestConfirmRacesWebhookDelivery(t *testing.T) {
	service, proc, store := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusRequiresConfirmation,
	})
	proc.confirmPayment = func(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error) {
		return &provider.PaymentData{ID: "pi_1", Status: provider.StatusSucceeded}, nil
	}

	failed := paymentEvent(t, "payment_intent.payment_failed", map[string]any{"id": "pi_1"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = service.Confirm(context.Background(), provider.ConfirmPaymentRequest{
			PaymentID:     "pi_1",
			PaymentMethod: "pm_card",
		})
	}()
	go func() {
		defer wg.Done()
		_ = service.ApplyWebhookEvent(failed)
	}()
	wg.Wait()

	// Whichever outcome landed first is terminal and the loser is a no-op,
	// with the reason code matching the winning outcome
	record, _ := store.GetPayment("pi_1")
	switch record.Status {
	case provider.StatusSucceeded:
		assert.Empty(t, record.ReasonCode)
	case provider.StatusFailed:
		assert.Equal(t, "payment_failed", record.ReasonCode)
	default:
		t.Errorf("unexpected status %q", record.Status)
	}
}

func TestGetStatus(t *testing.T) {
	service, _, _ := newServiceWithPayment(t, provider.PaymentIntentRecord{
		ID:     "pi_1",
		Status: provider.StatusCreated,
	})

	record, err := service.GetStatus("pi_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", record.ID)

	_, err = service.GetStatus("pi_missing")
	assert.True(t, provider.IsCode(err, provider.ErrNotFound))
}

func TestCustomerPassthrough(t *testing.T) {
	proc := &mockProcessor{
		createCustomer: func(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error) {
			return &provider.CustomerData{ID: "cus_1", Email: request.Email, Name: request.Name}, nil
		},
		listMethods: func(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error) {
			return []provider.PaymentMethodData{{ID: "pm_1", Type: "card", Brand: "visa", Last4: "4242"}}, nil
		},
		createSetup: func(ctx context.Context, customerID string) (*provider.SetupIntentData, error) {
			return &provider.SetupIntentData{ID: "seti_1", ClientSecret: "seti_1_secret"}, nil
		},
	}
	service := NewService(proc, NewStore(), nil)
	ctx := context.Background()

	customer, err := service.CreateCustomer(ctx, provider.CreateCustomerRequest{Email: "a@b.co", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", customer.ID)

	methods, err := service.ListPaymentMethods(ctx, "cus_1")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "4242", methods[0].Last4)

	intent, err := service.CreateSetupIntent(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "seti_1_secret", intent.ClientSecret)
}

func TestOperationsAreLogged(t *testing.T) {
	oplog := newTestOperationLogger(t)
	proc := &mockProcessor{
		createPayment: func(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
			return &provider.PaymentData{ID: "pi_1", Amount: request.Amount, Status: provider.StatusCreated}, nil
		},
	}
	service := NewService(proc, NewStore(), oplog)

	_, err := service.Create(context.Background(), provider.CreatePaymentRequest{Amount: 100, Currency: "usd"})
	require.NoError(t, err)

	var count int
	err = oplog.db.QueryRow(`SELECT COUNT(*) FROM operation_logs WHERE operation = 'payment.create' AND response IS NOT NULL`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
