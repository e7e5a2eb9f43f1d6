package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/textutil"
)

// ProviderStripe is the manager key for Stripe.
const ProviderStripe = "stripe"

const defaultSessionTTL = 30 * time.Minute

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

type stripePaymentIntentAPI interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	sessions stripeSessionAPI
	intents  stripePaymentIntentAPI
	refunds  stripeRefundAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey        string
	WebhookSecret string
	AccountID     string
	Backends      *stripe.Backends
	Logger        StripeLogger
	Clock         func() time.Time
	// SessionTTL bounds how long a hosted checkout stays open. Stripe requires 30m to 24h.
	SessionTTL time.Duration
	clients    *stripeClients
}

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api           stripeClients
	account       string
	webhookSecret string
	sessionTTL    time.Duration
	clock         func() time.Time
	logger        StripeLogger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.clients != nil {
		clients = *cfg.clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			sessions: sc.CheckoutSessions,
			intents:  sc.PaymentIntents,
			refunds:  sc.Refunds,
		}
	}
	if clients.sessions == nil || clients.intents == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	ttl := cfg.SessionTTL
	if ttl < defaultSessionTTL {
		ttl = defaultSessionTTL
	}

	return &StripeProvider{
		api:           clients,
		account:       strings.TrimSpace(cfg.AccountID),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		sessionTTL:    ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a hosted Stripe Checkout session in payment mode. The order id is
// stored as the client reference and in metadata on both the session and the payment intent.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return CheckoutSession{}, errors.New("stripe: currency is required")
	}

	expiresAt := p.clock().Add(p.sessionTTL)
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ExpiresAt:  stripe.Int64(expiresAt.Unix()),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if req.OrderID != "" {
		params.ClientReferenceID = stripe.String(req.OrderID)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.Locale != "" {
		params.Locale = stripe.String(stripeLocale(req.Locale))
	}

	metadata := copyMetadata(req.Metadata)
	if req.OrderID != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["orderId"] = req.OrderID
	}
	params.Metadata = metadata
	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: copyMetadata(metadata)}

	for _, item := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(max(item.Quantity, 1)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(defaultString(item.Currency, currency))),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
		product := line.PriceData.ProductData
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			product.Images = []*string{stripe.String(item.ImageURL)}
		}
		if item.SKU != "" {
			product.Metadata = map[string]string{"sku": item.SKU}
		}
		params.LineItems = append(params.LineItems, line)
	}
	if len(params.LineItems) == 0 {
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String("Order")},
			},
		}}
	}

	session, err := p.api.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	intentID := ""
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"orderId":   req.OrderID,
		"currency":  currency,
	})

	return CheckoutSession{
		ID:          session.ID,
		Provider:    ProviderStripe,
		RedirectURL: session.URL,
		IntentID:    intentID,
		ExpiresAt:   expiresAt,
	}, nil
}

// ExpireSession closes an open checkout so it can no longer be paid.
func (p *StripeProvider) ExpireSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("stripe: session id is required")
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if _, err := p.api.sessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("stripe: expire checkout session: %w", err)
	}
	p.logger(ctx, "payments.stripe.session.expired", map[string]any{"sessionId": sessionID})
	return nil
}

// Refund creates a refund for the payment intent and returns the refreshed payment.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	if strings.TrimSpace(req.IntentID) == "" {
		return PaymentDetails{}, errors.New("stripe: payment intent id is required")
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(req.IntentID)}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount)
	}
	if reason := mapStripeRefundReason(req.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}
	params.Metadata = copyMetadata(req.Metadata)

	refund, err := p.api.refunds.New(params)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("stripe: refund payment intent: %w", err)
	}
	p.logger(ctx, "payments.stripe.intent.refunded", map[string]any{
		"paymentIntent": req.IntentID,
		"refundId":      refund.ID,
		"amount":        refund.Amount,
	})

	details, err := p.LookupPayment(ctx, LookupRequest{IntentID: req.IntentID})
	if err != nil {
		return PaymentDetails{}, err
	}
	details.RefundID = refund.ID
	if details.RefundedAt == nil {
		now := p.clock()
		details.RefundedAt = &now
	}
	if refund.Status == stripe.RefundStatusSucceeded || refund.Status == stripe.RefundStatusPending {
		details.Status = StatusRefunded
	}
	return details, nil
}

// LookupPayment retrieves a Stripe Payment Intent with its latest charge.
func (p *StripeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	intent, err := p.api.intents.Get(req.IntentID, params)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("stripe: lookup payment intent: %w", err)
	}
	return stripePaymentDetails(intent), nil
}

// ParseWebhook verifies the Stripe-Signature header and reduces the event to a WebhookEvent.
// Event types the order workflow does not handle come back with Kind EventIgnored.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if p.webhookSecret == "" {
		return WebhookEvent{}, errors.New("stripe: webhook secret is not configured")
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := WebhookEvent{
		ID:        evt.ID,
		Provider:  ProviderStripe,
		Type:      string(evt.Type),
		Kind:      EventIgnored,
		CreatedAt: time.Unix(evt.Created, 0).UTC(),
	}
	if evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.expired", "checkout.session.async_payment_failed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.SessionID = session.ID
		if session.PaymentIntent != nil {
			out.IntentID = session.PaymentIntent.ID
		}
		out.OrderID = defaultString(session.Metadata["orderId"], session.ClientReferenceID)
		out.CartID = session.Metadata["cartId"]
		out.AmountTotal = session.AmountTotal
		out.Currency = strings.ToUpper(string(session.Currency))
		out.PaymentStatus = string(session.PaymentStatus)
		if session.CustomerDetails != nil {
			out.Email = session.CustomerDetails.Email
		}
		switch out.Type {
		case "checkout.session.expired":
			out.Kind = EventCheckoutExpired
		case "checkout.session.async_payment_failed":
			out.Kind = EventPaymentFailed
		default:
			out.Kind = EventCheckoutCompleted
		}
	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode payment intent: %w", err)
		}
		out.Kind = EventPaymentFailed
		out.IntentID = intent.ID
		out.OrderID = intent.Metadata["orderId"]
		out.AmountTotal = intent.Amount
		out.Currency = strings.ToUpper(string(intent.Currency))
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &charge); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode charge: %w", err)
		}
		out.Kind = EventRefunded
		if charge.PaymentIntent != nil {
			out.IntentID = charge.PaymentIntent.ID
		}
		out.OrderID = charge.Metadata["orderId"]
		out.AmountTotal = charge.AmountRefunded
		out.ChargeAmount = charge.Amount
		out.FullyRefunded = charge.Refunded || (charge.Amount > 0 && charge.AmountRefunded >= charge.Amount)
		out.Currency = strings.ToUpper(string(charge.Currency))
	}
	return out, nil
}

func stripePaymentDetails(intent *stripe.PaymentIntent) PaymentDetails {
	if intent == nil {
		return PaymentDetails{}
	}

	status := StatusPending
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = StatusFailed
	}

	details := PaymentDetails{
		Provider: ProviderStripe,
		IntentID: intent.ID,
		Amount:   intent.Amount,
		Currency: strings.ToUpper(string(intent.Currency)),
		Captured: intent.Status == stripe.PaymentIntentStatusSucceeded,
	}

	if charge := intent.LatestCharge; charge != nil {
		created := time.Unix(charge.Created, 0).UTC()
		if charge.Paid || charge.Captured {
			details.CapturedAt = &created
			details.Captured = true
		}
		if charge.Refunded || charge.AmountRefunded > 0 {
			details.RefundedAt = &created
			if charge.Amount > 0 && charge.AmountRefunded >= charge.Amount {
				status = StatusRefunded
			}
		}
		if details.Currency == "" {
			details.Currency = strings.ToUpper(string(charge.Currency))
		}
	}
	details.Status = status
	return details
}

func mapStripeRefundReason(reason string) string {
	switch r := stripe.RefundReason(strings.ToLower(strings.TrimSpace(reason))); r {
	case stripe.RefundReasonDuplicate, stripe.RefundReasonFraudulent, stripe.RefundReasonRequestedByCustomer:
		return string(r)
	}
	return ""
}

// stripeLocale maps "en_AU" or "en-AU" to Stripe's "en" style locale keys.
func stripeLocale(locale string) string {
	locale = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	switch locale {
	case "en-gb", "fr-ca", "pt-br", "zh-hk", "zh-tw", "es-419":
		return locale
	}
	if lang, _, ok := strings.Cut(locale, "-"); ok {
		return lang
	}
	return locale
}

// copyMetadata returns a trimmed copy; Stripe rejects blank metadata keys.
func copyMetadata(in map[string]string) map[string]string {
	return textutil.NormalizeStringMap(in)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
