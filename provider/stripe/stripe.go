package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/vendorpay/vendorpay/provider"
)

// Processor implements provider.Processor against the Stripe API. Each
// instance carries its own API client so the secret key is fixed at
// construction, not process-global state.
type Processor struct {
	client *client.API
}

// New creates a Stripe-backed processor.
func New(secretKey string) (*Processor, error) {
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	return &Processor{client: client.New(secretKey, nil)}, nil
}

// CreatePayment creates a PaymentIntent. When a payment method is supplied
// the intent is confirmed in the same round trip, matching the processor's
// saved-card flow.
func (p *Processor) CreatePayment(ctx context.Context, request provider.CreatePaymentRequest) (*provider.PaymentData, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(request.Amount),
		Currency: stripe.String(strings.ToLower(request.Currency)),
	}
	if request.CustomerID != "" {
		params.Customer = stripe.String(request.CustomerID)
	}
	if request.Description != "" {
		params.Description = stripe.String(request.Description)
	}
	if request.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(request.PaymentMethod)
		params.Confirm = stripe.Bool(true)
	}
	if request.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(request.IdempotencyKey)
	}
	if request.CustomerName != "" {
		params.AddMetadata("customer_name", request.CustomerName)
	}
	if request.CustomerEmail != "" {
		params.AddMetadata("customer_email", request.CustomerEmail)
	}

	intent, err := p.client.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyError("create payment", err)
	}
	return mapPaymentIntent(intent)
}

// ConfirmPayment confirms a PaymentIntent, optionally switching the payment
// method.
func (p *Processor) ConfirmPayment(ctx context.Context, paymentID, paymentMethod string) (*provider.PaymentData, error) {
	if paymentID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "payment id is required")
	}
	params := &stripe.PaymentIntentConfirmParams{
		Params: stripe.Params{Context: ctx},
	}
	if paymentMethod != "" {
		params.PaymentMethod = stripe.String(paymentMethod)
	}

	intent, err := p.client.PaymentIntents.Confirm(paymentID, params)
	if err != nil {
		return nil, classifyError("confirm payment", err)
	}
	return mapPaymentIntent(intent)
}

// RetrievePayment fetches the processor's current view of a payment.
func (p *Processor) RetrievePayment(ctx context.Context, paymentID string) (*provider.PaymentData, error) {
	if paymentID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "payment id is required")
	}
	intent, err := p.client.PaymentIntents.Get(paymentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, classifyError("retrieve payment", err)
	}
	return mapPaymentIntent(intent)
}

// RefundPayment issues a refund against a PaymentIntent. A zero amount asks
// the processor to refund the full remaining charge.
func (p *Processor) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.RefundData, error) {
	if request.PaymentID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "payment id is required")
	}
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(request.PaymentID),
	}
	if request.Amount > 0 {
		params.Amount = stripe.Int64(request.Amount)
	}
	if request.Reason != "" {
		params.Reason = stripe.String(request.Reason)
	}

	refund, err := p.client.Refunds.New(params)
	if err != nil {
		return nil, classifyError("refund payment", err)
	}
	return &provider.RefundData{
		ID:        refund.ID,
		PaymentID: request.PaymentID,
		Amount:    refund.Amount,
		Status:    string(refund.Status),
	}, nil
}

// CreateCustomer registers a customer with Stripe.
func (p *Processor) CreateCustomer(ctx context.Context, request provider.CreateCustomerRequest) (*provider.CustomerData, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(request.Email),
		Name:   stripe.String(request.Name),
	}
	if request.Description != "" {
		params.Description = stripe.String(request.Description)
	}

	customer, err := p.client.Customers.New(params)
	if err != nil {
		return nil, classifyError("create customer", err)
	}
	return &provider.CustomerData{
		ID:    customer.ID,
		Email: customer.Email,
		Name:  customer.Name,
	}, nil
}

// ListPaymentMethods returns the card payment methods saved on a customer.
func (p *Processor) ListPaymentMethods(ctx context.Context, customerID string) ([]provider.PaymentMethodData, error) {
	if customerID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "customer id is required")
	}
	params := &stripe.PaymentMethodListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Type:       stripe.String(string(stripe.PaymentMethodTypeCard)),
	}

	var methods []provider.PaymentMethodData
	iter := p.client.PaymentMethods.List(params)
	for iter.Next() {
		pm := iter.PaymentMethod()
		data := provider.PaymentMethodData{
			ID:   pm.ID,
			Type: string(pm.Type),
		}
		if pm.Card != nil {
			data.Brand = string(pm.Card.Brand)
			data.Last4 = pm.Card.Last4
			data.ExpMonth = pm.Card.ExpMonth
			data.ExpYear = pm.Card.ExpYear
		}
		methods = append(methods, data)
	}
	if err := iter.Err(); err != nil {
		return nil, classifyError("list payment methods", err)
	}
	return methods, nil
}

// CreateSetupIntent requests a client secret the frontend uses to tokenize
// card details. Raw card data never passes through this server.
func (p *Processor) CreateSetupIntent(ctx context.Context, customerID string) (*provider.SetupIntentData, error) {
	if customerID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "customer id is required")
	}
	params := &stripe.SetupIntentParams{
		Params:             stripe.Params{Context: ctx},
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String("off_session"),
	}

	intent, err := p.client.SetupIntents.New(params)
	if err != nil {
		return nil, classifyError("create setup intent", err)
	}
	return &provider.SetupIntentData{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

// CreateCheckoutSession opens a hosted checkout page.
func (p *Processor) CreateCheckoutSession(ctx context.Context, request provider.CreateCheckoutRequest) (*provider.CheckoutData, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(request.SuccessURL),
		CancelURL:  stripe.String(request.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(request.Currency)),
					UnitAmount: stripe.Int64(request.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(request.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if request.CustomerID != "" {
		params.Customer = stripe.String(request.CustomerID)
	}

	session, err := p.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, classifyError("create checkout session", err)
	}
	return mapCheckoutSession(session)
}

// RetrieveCheckoutSession fetches the processor's view of a checkout session.
func (p *Processor) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*provider.CheckoutData, error) {
	if sessionID == "" {
		return nil, provider.NewError(provider.ErrValidationRejected, "session id is required")
	}
	session, err := p.client.CheckoutSessions.Get(sessionID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, classifyError("retrieve checkout session", err)
	}
	return mapCheckoutSession(session)
}

// mapPaymentIntent normalizes a Stripe PaymentIntent.
func mapPaymentIntent(intent *stripe.PaymentIntent) (*provider.PaymentData, error) {
	status, err := MapIntentStatus(intent.Status)
	if err != nil {
		return nil, err
	}
	data := &provider.PaymentData{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     strings.ToLower(string(intent.Currency)),
		Status:       status,
		ClientSecret: intent.ClientSecret,
		Description:  intent.Description,
	}
	if intent.Customer != nil {
		data.CustomerID = intent.Customer.ID
	}
	if intent.LastPaymentError != nil {
		data.ReasonCode = string(intent.LastPaymentError.Code)
	}
	return data, nil
}

// MapIntentStatus translates Stripe's PaymentIntent status enumeration into
// the lifecycle states. processing and requires_capture sit between
// confirmation and a terminal outcome, so both map to REQUIRES_ACTION. An
// unrecognized status is uncertainty about the processor, classified as
// unavailable rather than coerced.
func MapIntentStatus(status stripe.PaymentIntentStatus) (provider.PaymentStatus, error) {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return provider.StatusCreated, nil
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return provider.StatusRequiresConfirmation, nil
	case stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresCapture:
		return provider.StatusRequiresAction, nil
	case stripe.PaymentIntentStatusSucceeded:
		return provider.StatusSucceeded, nil
	case stripe.PaymentIntentStatusCanceled:
		return provider.StatusFailed, nil
	default:
		return "", provider.NewErrorf(provider.ErrProcessorUnavailable, "unrecognized payment status %q", status)
	}
}

// mapCheckoutSession normalizes a Stripe Checkout Session.
func mapCheckoutSession(session *stripe.CheckoutSession) (*provider.CheckoutData, error) {
	status, err := MapSessionStatus(session.Status)
	if err != nil {
		return nil, err
	}
	data := &provider.CheckoutData{
		ID:          session.ID,
		Amount:      session.AmountTotal,
		Currency:    strings.ToLower(string(session.Currency)),
		Status:      status,
		RedirectURL: session.URL,
	}
	if session.Customer != nil {
		data.CustomerID = session.Customer.ID
	}
	return data, nil
}

// MapSessionStatus translates Stripe's checkout session status enumeration.
func MapSessionStatus(status stripe.CheckoutSessionStatus) (provider.SessionStatus, error) {
	switch status {
	case stripe.CheckoutSessionStatusOpen:
		return provider.SessionPending, nil
	case stripe.CheckoutSessionStatusComplete:
		return provider.SessionComplete, nil
	case stripe.CheckoutSessionStatusExpired:
		return provider.SessionExpired, nil
	default:
		return "", provider.NewErrorf(provider.ErrProcessorUnavailable, "unrecognized session status %q", status)
	}
}

// classifyError translates a Stripe API failure into the error taxonomy.
// Card declines carry the processor's reason code; 404s become NotFound;
// other request errors are the caller's fault; everything else, including
// transport failures and timeouts, is transient.
func classifyError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard:
			reason := string(stripeErr.DeclineCode)
			if reason == "" {
				reason = string(stripeErr.Code)
			}
			return provider.WrapError(provider.ErrProcessorRejected, "stripe: "+op+" declined", err).WithReason(reason)
		case stripe.ErrorTypeInvalidRequest:
			if stripeErr.HTTPStatusCode == http.StatusNotFound {
				return provider.WrapError(provider.ErrNotFound, "stripe: "+op+": no such object", err)
			}
			return provider.WrapError(provider.ErrValidationRejected, "stripe: "+op+" rejected", err).WithReason(string(stripeErr.Code))
		case stripe.ErrorTypeIdempotency:
			return provider.WrapError(provider.ErrValidationRejected, "stripe: "+op+": idempotency key reuse", err)
		default:
			return provider.WrapError(provider.ErrProcessorUnavailable, "stripe: "+op+" failed", err).WithReason(string(stripeErr.Code))
		}
	}
	return provider.WrapError(provider.ErrProcessorUnavailable, "stripe: "+op+" failed", err)
}
