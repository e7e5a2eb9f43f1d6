package di

import (
	"context"
	"testing"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/config"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories/documents"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Store: config.StoreConfig{Currency: "AUD", Locale: "en-AU", GSTRate: 0.1},
		Persistence: config.PersistenceConfig{
			Backend: config.BackendJSONFile,
			DataDir: t.TempDir(),
		},
		PSP: config.PSPConfig{
			SuccessURL: "http://localhost/checkout/success?order={ORDER_ID}",
			CancelURL:  "http://localhost/checkout/cancel?order={ORDER_ID}",
		},
	}
}

func newRegistry(t *testing.T, cfg config.Config) *documents.Registry {
	t.Helper()
	store, err := OpenStore(context.Background(), cfg.Persistence)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	reg, err := documents.NewRegistry(store)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}

func TestNewContainerWithoutPaymentsSkipsCheckout(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(context.Background(), cfg, newRegistry(t, cfg), Infrastructure{})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	svc := c.Services
	if svc.Catalog == nil || svc.Imports == nil || svc.Shipping == nil || svc.Carts == nil || svc.Content == nil || svc.System == nil {
		t.Fatalf("expected core services, got %+v", svc)
	}
	if svc.Checkout != nil || svc.Orders != nil {
		t.Fatalf("expected checkout and orders to be disabled without payments")
	}
	if svc.Media != nil {
		t.Fatalf("expected media to be disabled without a bucket")
	}
}

func TestNewContainerWiresCheckoutAndOrders(t *testing.T) {
	cfg := testConfig(t)
	provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{APIKey: "sk_test_container"})
	if err != nil {
		t.Fatalf("stripe provider: %v", err)
	}
	manager, err := payments.NewManager(map[string]payments.Provider{payments.ProviderStripe: provider})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	c, err := NewContainer(context.Background(), cfg, newRegistry(t, cfg), Infrastructure{
		Payments: manager,
		Clock:    func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if c.Services.Checkout == nil || c.Services.Orders == nil {
		t.Fatalf("expected checkout and orders services")
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewContainerRejectsLedgerWithoutClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Enabled = true
	provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{APIKey: "sk_test_container"})
	if err != nil {
		t.Fatalf("stripe provider: %v", err)
	}
	manager, err := payments.NewManager(map[string]payments.Provider{payments.ProviderStripe: provider})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if _, err := NewContainer(context.Background(), cfg, newRegistry(t, cfg), Infrastructure{Payments: manager}); err == nil {
		t.Fatal("expected error when ledger sync is enabled without a client")
	}
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := OpenStore(context.Background(), config.PersistenceConfig{Backend: "mongo"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil, Infrastructure{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
}
