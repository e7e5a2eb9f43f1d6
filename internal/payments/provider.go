package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
)

// CheckoutLineItem describes a single line item on the hosted payment page.
type CheckoutLineItem struct {
	Name        string
	Description string
	SKU         string
	ImageURL    string
	Quantity    int64
	Amount      int64
	Currency    string
}

// CheckoutSessionRequest captures the payload required to create a hosted checkout session.
type CheckoutSessionRequest struct {
	OrderID        string
	Amount         int64
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Locale         string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []CheckoutLineItem
}

// CheckoutSession represents the PSP session the customer is redirected to.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// RefundRequest defines a PSP refund attempt. A nil Amount refunds in full.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

// LookupRequest identifies a payment for reconciliation.
type LookupRequest struct {
	IntentID string
}

// PaymentDetails normalises PSP specific fields for storage.
type PaymentDetails struct {
	Provider   string
	IntentID   string
	RefundID   string
	Status     Status
	Amount     int64
	Currency   string
	Captured   bool
	CapturedAt *time.Time
	RefundedAt *time.Time
}

// EventKind classifies webhook events the order workflow reacts to.
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventCheckoutExpired   EventKind = "checkout_expired"
	EventPaymentFailed     EventKind = "payment_failed"
	EventRefunded          EventKind = "refunded"
	EventIgnored           EventKind = "ignored"
)

// WebhookEvent is a verified PSP notification reduced to the fields orders need.
type WebhookEvent struct {
	ID            string
	Provider      string
	Type          string
	Kind          EventKind
	SessionID     string
	IntentID      string
	OrderID       string
	CartID        string
	AmountTotal   int64
	// ChargeAmount and FullyRefunded are set on refund events; AmountTotal then holds the
	// cumulative refunded amount.
	ChargeAmount  int64
	FullyRefunded bool
	Currency      string
	Email         string
	PaymentStatus string
	CreatedAt     time.Time
}

// Paid reports whether a completed checkout has actually collected funds.
func (e WebhookEvent) Paid() bool {
	return e.Kind == EventCheckoutCompleted && (e.PaymentStatus == "paid" || e.PaymentStatus == "no_payment_required")
}

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	ExpireSession(ctx context.Context, sessionID string) error
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = normalizeKey(provider)
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for currency, provider := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(currency))] = normalizeKey(provider)
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	registered := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := normalizeKey(k)
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		registered[key] = v
	}
	m := &Manager{providers: registered}
	if _, ok := registered[ProviderStripe]; ok {
		m.defaultProvider = ProviderStripe
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	Provider string
	Currency string
}

func (m *Manager) resolve(pc PaymentContext) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if key := normalizeKey(pc.Provider); key != "" {
		if p, ok := m.providers[key]; ok {
			return key, p, nil
		}
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, key)
	}
	if key, ok := m.currencyRoutes[strings.ToUpper(strings.TrimSpace(pc.Currency))]; ok {
		if p, ok := m.providers[key]; ok {
			return key, p, nil
		}
	}
	if p, ok := m.providers[m.defaultProvider]; ok {
		return m.defaultProvider, p, nil
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateCheckoutSession delegates to the resolved provider and stamps the provider key.
func (m *Manager) CreateCheckoutSession(ctx context.Context, pc PaymentContext, req CheckoutSessionRequest) (CheckoutSession, error) {
	key, provider, err := m.resolve(pc)
	if err != nil {
		return CheckoutSession{}, err
	}
	session, err := provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, err
	}
	session.Provider = key
	return session, nil
}

// ExpireSession closes an open hosted checkout.
func (m *Manager) ExpireSession(ctx context.Context, pc PaymentContext, sessionID string) error {
	_, provider, err := m.resolve(pc)
	if err != nil {
		return err
	}
	return provider.ExpireSession(ctx, sessionID)
}

// Refund delegates to the resolved provider.
func (m *Manager) Refund(ctx context.Context, pc PaymentContext, req RefundRequest) (PaymentDetails, error) {
	key, provider, err := m.resolve(pc)
	if err != nil {
		return PaymentDetails{}, err
	}
	details, err := provider.Refund(ctx, req)
	if err != nil {
		return PaymentDetails{}, err
	}
	details.Provider = key
	return details, nil
}

// LookupPayment delegates to the resolved provider.
func (m *Manager) LookupPayment(ctx context.Context, pc PaymentContext, req LookupRequest) (PaymentDetails, error) {
	_, provider, err := m.resolve(pc)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.LookupPayment(ctx, req)
}

// ParseWebhook verifies and decodes a webhook for the named provider.
func (m *Manager) ParseWebhook(providerKey string, payload []byte, signature string) (WebhookEvent, error) {
	key, provider, err := m.resolve(PaymentContext{Provider: providerKey})
	if err != nil {
		return WebhookEvent{}, err
	}
	event, err := provider.ParseWebhook(payload, signature)
	if err != nil {
		return WebhookEvent{}, err
	}
	event.Provider = key
	return event, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
