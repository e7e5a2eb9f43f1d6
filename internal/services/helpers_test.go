package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/ledger"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories/documents"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

var testNow = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestRegistry(t *testing.T) *documents.Registry {
	t.Helper()
	store, err := docstore.NewJSONFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	reg, err := documents.NewRegistry(store, documents.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func newTestShipping(t *testing.T) ShippingService {
	t.Helper()
	table, err := shipping.DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable: %v", err)
	}
	estimator, err := shipping.NewEstimator(table)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	svc, err := NewShippingService(ShippingServiceDeps{Estimator: estimator})
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	return svc
}

func seedProducts(t *testing.T, reg *documents.Registry, products ...domain.Product) {
	t.Helper()
	for _, p := range products {
		if _, err := reg.Products().Save(context.Background(), p); err != nil {
			t.Fatalf("seed product %s: %v", p.Handle, err)
		}
	}
}

func gateHinge() domain.Product {
	return domain.Product{
		ID:       "gate-hinge",
		Handle:   "gate-hinge",
		Title:    "Heavy Gate Hinge",
		Vendor:   "Fabrow",
		Category: "Gates > Hardware",
		Tags:     []string{"hinges"},
		Status:   domain.ProductStatusActive,
		Variants: []domain.ProductVariant{
			{ID: "gate-hinge-small", SKU: "GH-S", Title: "Small", PriceCents: 1250, WeightGrams: 450, InventoryQty: 10, TrackInventory: true, RequiresShipping: true, Taxable: true},
			{ID: "gate-hinge-large", SKU: "GH-L", Title: "Large", PriceCents: 2400, WeightGrams: 900, RequiresShipping: true, Taxable: true},
		},
		Images: []domain.ProductImage{{Src: "https://cdn.example.com/hinge.jpg", Position: 1}},
	}
}

func steelBollard() domain.Product {
	return domain.Product{
		ID:       "steel-bollard",
		Handle:   "steel-bollard",
		Title:    "Steel Bollard",
		Vendor:   "Fabrow",
		Category: "Site Works > Bollards",
		Status:   domain.ProductStatusActive,
		Featured: true,
		Variants: []domain.ProductVariant{
			{ID: "steel-bollard-default", SKU: "BOL-1", Title: "Default Title", PriceCents: 19900, WeightGrams: 12000, InventoryQty: 2, TrackInventory: true, RequiresShipping: true, Taxable: true},
		},
	}
}

func giftVoucher() domain.Product {
	return domain.Product{
		ID:     "gift-voucher",
		Handle: "gift-voucher",
		Title:  "Gift Voucher",
		Status: domain.ProductStatusActive,
		Variants: []domain.ProductVariant{
			{ID: "gift-voucher-default", Title: "Default Title", PriceCents: 5000, Taxable: true},
		},
	}
}

func draftPlate() domain.Product {
	return domain.Product{
		ID:     "base-plate",
		Handle: "base-plate",
		Title:  "Base Plate",
		Status: domain.ProductStatusDraft,
		Variants: []domain.ProductVariant{
			{ID: "base-plate-default", Title: "Default Title", PriceCents: 900, WeightGrams: 300, RequiresShipping: true},
		},
	}
}

type loggedEvent struct {
	event  string
	fields map[string]any
}

type logRecorder struct {
	mu      sync.Mutex
	entries []loggedEvent
}

func (r *logRecorder) log(_ context.Context, event string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, loggedEvent{event: event, fields: fields})
}

func (r *logRecorder) find(event string) (loggedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.event == event {
			return e, true
		}
	}
	return loggedEvent{}, false
}

type stubCheckoutPayments struct {
	calls   int
	ctx     payments.PaymentContext
	req     payments.CheckoutSessionRequest
	session payments.CheckoutSession
	err     error
}

func (s *stubCheckoutPayments) CreateCheckoutSession(_ context.Context, pc payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	s.calls++
	s.ctx = pc
	s.req = req
	if s.err != nil {
		return payments.CheckoutSession{}, s.err
	}
	return s.session, nil
}

type stubGateway struct {
	event     payments.WebhookEvent
	parseErr  error
	parsed    int
	refunds   int
	refundReq payments.RefundRequest
	refund    payments.PaymentDetails
	refundErr error
}

func (s *stubGateway) ParseWebhook(string, []byte, string) (payments.WebhookEvent, error) {
	s.parsed++
	if s.parseErr != nil {
		return payments.WebhookEvent{}, s.parseErr
	}
	return s.event, nil
}

func (s *stubGateway) Refund(_ context.Context, _ payments.PaymentContext, req payments.RefundRequest) (payments.PaymentDetails, error) {
	s.refunds++
	s.refundReq = req
	if s.refundErr != nil {
		return payments.PaymentDetails{}, s.refundErr
	}
	return s.refund, nil
}

type stubLedger struct {
	contactErr  error
	invoiceErr  error
	paymentErr  error
	contacts    int
	invoices    int
	payments    int
	lastInvoice ledger.Invoice
	lastPayment ledger.Payment
}

func (s *stubLedger) UpsertContact(context.Context, ledger.Contact) (string, error) {
	s.contacts++
	if s.contactErr != nil {
		return "", s.contactErr
	}
	return "contact-1", nil
}

func (s *stubLedger) CreateInvoice(_ context.Context, invoice ledger.Invoice) (ledger.InvoiceResult, error) {
	s.invoices++
	s.lastInvoice = invoice
	if s.invoiceErr != nil {
		return ledger.InvoiceResult{}, s.invoiceErr
	}
	return ledger.InvoiceResult{InvoiceID: "inv-1", TotalCents: invoice.TotalCents()}, nil
}

func (s *stubLedger) RecordPayment(_ context.Context, payment ledger.Payment) (string, error) {
	s.payments++
	s.lastPayment = payment
	if s.paymentErr != nil {
		return "", s.paymentErr
	}
	return "pay-1", nil
}

func (s *stubLedger) Ping(context.Context) error { return nil }

type stubPublisher struct {
	events []OrderEvent
	err    error
}

func (s *stubPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) (string, error) {
	s.events = append(s.events, event)
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

func (s *stubPublisher) types() []string {
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type stubStock struct {
	lines []StockLine
	err   error
}

func (s *stubStock) DecrementStock(_ context.Context, lines []StockLine) error {
	s.lines = append(s.lines, lines...)
	return s.err
}

var errBoom = errors.New("boom")
