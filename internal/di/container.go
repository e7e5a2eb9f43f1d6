package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/ledger"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/config"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/idempotency"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/observability"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/storage"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

// Services bundles the service-layer contracts that handlers and pages rely upon. Members whose
// infrastructure is not configured stay nil.
type Services struct {
	Catalog  services.CatalogService
	Imports  services.ImportService
	Shipping services.ShippingService
	Carts    services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Content  services.ContentService
	Media    services.MediaService
	System   services.SystemService
}

// Infrastructure carries the external clients the services talk to.
type Infrastructure struct {
	// Payments enables checkout and order handling when set.
	Payments *payments.Manager
	Ledger   ledger.Client
	Events   services.OrderEventPublisher
	// Idempotency dedupes webhook deliveries; an in-memory store is used when nil.
	Idempotency idempotency.Store
	// Objects enables media uploads when set. Signer adds signed direct uploads.
	Objects   *storage.Objects
	Signer    *storage.UploadSigner
	Estimator *shipping.Estimator
	Build     services.BuildInfo
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Tests can supply a registry over a temporary
// jsonfile store and leave the external clients empty.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if infra.Logger == nil {
		infra.Logger = zap.NewNop()
	}
	if infra.Clock == nil {
		infra.Clock = time.Now
	}

	svc, err := buildServices(ctx, reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases the persistence backend.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services
	logFor := func(component string) services.Logger {
		return services.Logger(observability.NewEventLogger(infra.Logger, component))
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            infra.Clock,
		Build:            infra.Build,
	})
	if err != nil {
		return svc, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Logger:   logFor("catalog"),
	})
	if err != nil {
		return svc, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	importSvc, err := services.NewImportService(services.ImportServiceDeps{
		Products: reg.Products(),
		Clock:    infra.Clock,
		Logger:   logFor("import"),
	})
	if err != nil {
		return svc, fmt.Errorf("build import service: %w", err)
	}
	svc.Imports = importSvc

	estimator := infra.Estimator
	if estimator == nil {
		table, err := shipping.DefaultTable()
		if err != nil {
			return svc, fmt.Errorf("load default shipping table: %w", err)
		}
		if estimator, err = shipping.NewEstimator(table); err != nil {
			return svc, fmt.Errorf("build shipping estimator: %w", err)
		}
	}
	shippingSvc, err := services.NewShippingService(services.ShippingServiceDeps{
		Estimator: estimator,
		Logger:    logFor("shipping"),
	})
	if err != nil {
		return svc, fmt.Errorf("build shipping service: %w", err)
	}
	svc.Shipping = shippingSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:           reg.Carts(),
		Products:        reg.Products(),
		Shipping:        shippingSvc,
		Logger:          logFor("cart"),
		DefaultCurrency: cfg.Store.Currency,
		GSTRate:         cfg.Store.GSTRate,
	})
	if err != nil {
		return svc, fmt.Errorf("build cart service: %w", err)
	}
	svc.Carts = cartSvc

	contentSvc, err := services.NewContentService(services.ContentServiceDeps{
		Gallery:  reg.Gallery(),
		Services: reg.Services(),
		Blog:     reg.Blog(),
		Contacts: reg.Contacts(),
		Clock:    infra.Clock,
		Logger:   logFor("content"),
	})
	if err != nil {
		return svc, fmt.Errorf("build content service: %w", err)
	}
	svc.Content = contentSvc

	if infra.Objects != nil {
		deps := services.MediaServiceDeps{
			Objects:       infra.Objects,
			Bucket:        infra.Objects.Bucket(),
			PublicBaseURL: cfg.Storage.CDNBaseURL,
			MaxBytes:      cfg.Storage.MaxUploadBytes,
			Clock:         infra.Clock,
			Logger:        logFor("media"),
		}
		if infra.Signer != nil {
			deps.Signer = infra.Signer
		}
		mediaSvc, err := services.NewMediaService(deps)
		if err != nil {
			return svc, fmt.Errorf("build media service: %w", err)
		}
		svc.Media = mediaSvc
	}

	if infra.Payments == nil {
		return svc, nil
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:      reg.Carts(),
		Products:   reg.Products(),
		Orders:     reg.Orders(),
		Shipping:   shippingSvc,
		Payments:   infra.Payments,
		Clock:      infra.Clock,
		Logger:     logFor("checkout"),
		Currency:   cfg.Store.Currency,
		GSTRate:    cfg.Store.GSTRate,
		Locale:     cfg.Store.Locale,
		SuccessURL: cfg.PSP.SuccessURL,
		CancelURL:  cfg.PSP.CancelURL,
	})
	if err != nil {
		return svc, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Carts:    reg.Carts(),
		Stock:    catalogSvc,
		Payments: infra.Payments,
		Ledger:   infra.Ledger,
		LedgerAccounts: ledger.Accounts{
			Sales:    cfg.Ledger.SalesAccountCode,
			Shipping: cfg.Ledger.ShippingAccountCode,
			Payment:  cfg.Ledger.PaymentAccountCode,
			TaxType:  cfg.Ledger.TaxType,
		},
		LedgerEnabled: cfg.Ledger.Enabled,
		Events:        infra.Events,
		Idempotency:   infra.Idempotency,
		Clock:         infra.Clock,
		Logger:        logFor("orders"),
	})
	if err != nil {
		return svc, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}
