package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/di"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/handlers"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/ledger"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/auth"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/config"
	pfirestore "github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/firestore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/idempotency"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/jobs"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/observability"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/secrets"
	platformstorage "github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/storage"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories/documents"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/web"
)

const (
	idempotencyTTL     = 24 * time.Hour
	contactLimit       = 5
	contactWindow      = 10 * time.Minute
	loginLimit         = 10
	loginWindow        = 15 * time.Minute
	stripeSessionTTL   = time.Hour
	ledgerTimeout      = 15 * time.Second
	optionalProbeLimit = 1500 * time.Millisecond
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	envValues, err := config.EnvironmentValues()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment values: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(observability.LoggerConfig{
		Level:       strings.TrimSpace(envValues["LOG_LEVEL"]),
		Development: strings.EqualFold(strings.TrimSpace(envValues["FAB_LOG_DEVELOPMENT"]), "true"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var gcpOpts []option.ClientOption
	if credentialsFile := strings.TrimSpace(envValues["FAB_GCP_CREDENTIALS_FILE"]); credentialsFile != "" {
		gcpOpts = append(gcpOpts, option.WithCredentialsFile(credentialsFile))
	}
	store, err := di.OpenStore(ctx, cfg.Persistence, pfirestore.WithClientOptions(gcpOpts...))
	if err != nil {
		logger.Fatal("failed to open persistence backend", zap.Error(err), zap.String("backend", cfg.Persistence.Backend))
	}

	infra := di.Infrastructure{
		Build:  buildInfoFromEnv(envValues, startedAt),
		Logger: logger,
		Clock:  time.Now,
		Idempotency: idempotency.NewDocumentStore(store,
			idempotency.WithCollection("idempotency_keys"),
		),
	}
	checks := []repositories.DependencyCheck{
		{Name: cfg.Persistence.Backend, Check: store.Ping},
	}

	if bucket := strings.TrimSpace(cfg.Storage.MediaBucket); bucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx, gcpOpts...)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		objects, err := platformstorage.NewObjects(storageClient, bucket)
		if err != nil {
			logger.Fatal("failed to initialise media bucket", zap.Error(err))
		}
		infra.Objects = objects
		checks = append(checks, repositories.DependencyCheck{
			Name:     "mediaBucket",
			Timeout:  optionalProbeLimit,
			Optional: true,
			Check:    objects.Ping,
		})

		if keyFile := strings.TrimSpace(cfg.Storage.SignerKeyFile); keyFile != "" {
			creds, err := platformstorage.LoadCredentialsFile(keyFile)
			if err != nil {
				logger.Fatal("failed to load storage signer key", zap.Error(err))
			}
			uploads, err := platformstorage.NewUploadSigner(creds)
			if err != nil {
				logger.Fatal("failed to initialise upload signer", zap.Error(err))
			}
			infra.Signer = uploads
		}
	}

	if cfg.Features.EnableCheckout {
		paymentManager, err := newPaymentManager(cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialise payment manager", zap.Error(err))
		}
		infra.Payments = paymentManager
	}

	if cfg.Ledger.Enabled {
		xero, err := ledger.NewXeroClient(ctx, ledger.XeroConfig{
			ClientID:     cfg.Ledger.ClientID,
			ClientSecret: cfg.Ledger.ClientSecret,
			TokenURL:     cfg.Ledger.TokenURL,
			BaseURL:      cfg.Ledger.BaseURL,
			TenantID:     cfg.Ledger.TenantID,
			Scopes:       cfg.Ledger.Scopes,
			Timeout:      ledgerTimeout,
		})
		if err != nil {
			logger.Fatal("failed to initialise ledger client", zap.Error(err))
		}
		infra.Ledger = xero
		checks = append(checks, repositories.DependencyCheck{
			Name:     "ledger",
			Timeout:  optionalProbeLimit,
			Optional: true,
			Check:    xero.Ping,
		})
	}

	if topicName := strings.TrimSpace(cfg.Events.OrderTopic); topicName != "" && cfg.Events.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID, gcpOpts...)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(topicName)
		defer topic.Stop()
		publisher, err := jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		infra.Events = publisher
	}

	estimator, err := loadShippingEstimator(cfg.Shipping.ZoneTablePath)
	if err != nil {
		logger.Fatal("failed to load shipping zones", zap.Error(err), zap.String("path", cfg.Shipping.ZoneTablePath))
	}
	infra.Estimator = estimator

	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}
	registry, err := documents.NewRegistry(store, documents.WithHealth(health))
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, infra)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("persistence close error", zap.Error(err))
		}
	}()

	guard, err := newAdminGuard(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise admin sessions", zap.Error(err))
	}

	router, err := newRouter(cfg, container.Services, guard, infra.Idempotency, logger)
	if err != nil {
		logger.Fatal("failed to initialise routes", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     log.New(observability.NewPrintfAdapter(logger.Named("http")), "", 0),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("fabrow storefront listening",
			zap.String("backend", cfg.Persistence.Backend),
			zap.Bool("checkout", container.Services.Checkout != nil),
			zap.Bool("ledger", cfg.Ledger.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg config.Config, svc di.Services, guard *auth.Guard, idem idempotency.Store, logger *zap.Logger) (chi.Router, error) {
	contactLimiter := handlers.NewRateLimiter(contactLimit, contactWindow, time.Now)
	loginLimiter := handlers.NewRateLimiter(loginLimit, loginWindow, time.Now)
	secureCookies := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	publicOpts := []handlers.PublicOption{
		handlers.WithPublicCatalogService(svc.Catalog),
		handlers.WithPublicContentService(svc.Content),
		handlers.WithPublicShippingService(svc.Shipping),
		handlers.WithContactRateLimiter(contactLimiter),
	}
	publicHandlers := handlers.NewPublicHandlers(publicOpts...)
	cartHandlers := handlers.NewCartHandlers(svc.Carts, secureCookies)
	sessionHandlers := handlers.NewSessionHandlers(guard, handlers.WithLoginRateLimiter(loginLimiter))
	adminCatalog := handlers.NewAdminCatalogHandlers(svc.Catalog, svc.Imports)
	adminContent := handlers.NewAdminContentHandlers(svc.Content, svc.Media)
	orderHandlers := handlers.NewOrderHandlers(svc.Orders)

	pages, err := web.New(web.Deps{
		Site: web.Site{
			Name:           cfg.Store.Name,
			Currency:       cfg.Store.Currency,
			ContactEmail:   cfg.Store.ContactEmail,
			EnableCheckout: cfg.Features.EnableCheckout,
			EnableBlog:     cfg.Features.EnableBlog,
		},
		Catalog:  svc.Catalog,
		Carts:    svc.Carts,
		Checkout: svc.Checkout,
		Content:  svc.Content,
		Orders:   svc.Orders,
		Guard:    guard,
	}, web.WithContactRateLimiter(contactLimiter), web.WithSecureCookies(secureCookies))
	if err != nil {
		return nil, err
	}

	projectID := strings.TrimSpace(cfg.Store.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthSystemService(svc.System),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithSessionRoutes(sessionHandlers.Routes),
		handlers.WithAdminMiddlewares(
			guard.RequireAdmin(nil),
			idempotency.Middleware(idem,
				idempotency.WithTTL(idempotencyTTL),
				idempotency.WithLogger(observability.NewEventLogger(logger, "idempotency")),
			),
		),
		handlers.WithAdminRoutes(func(r chi.Router) {
			adminCatalog.Routes(r)
			adminContent.Routes(r)
			orderHandlers.Routes(r)
		}),
		handlers.WithPageRoutes(pages.Routes),
		handlers.WithNotFoundHandler(pages.NotFound),
	}
	if svc.Checkout != nil {
		checkoutHandlers := handlers.NewCheckoutHandlers(svc.Checkout)
		opts = append(opts, handlers.WithCheckoutRoutes(checkoutHandlers.Routes))
	}
	if svc.Orders != nil {
		webhookHandlers := handlers.NewWebhookHandlers(svc.Orders)
		opts = append(opts,
			handlers.WithWebhookMiddlewares(middleware.AllowContentType("application/json")),
			handlers.WithWebhookRoutes(webhookHandlers.Routes),
		)
	}
	return handlers.NewRouter(opts...), nil
}

func newPaymentManager(cfg config.Config, logger *zap.Logger) (*payments.Manager, error) {
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:        cfg.PSP.StripeAPIKey,
		WebhookSecret: cfg.PSP.StripeWebhookSecret,
		Logger:        payments.StripeLogger(observability.NewEventLogger(logger.Named("payments"), "stripe")),
		Clock:         time.Now,
		SessionTTL:    stripeSessionTTL,
	})
	if err != nil {
		return nil, err
	}
	return payments.NewManager(map[string]payments.Provider{
		payments.ProviderStripe: stripeProvider,
	}, payments.WithCurrencyRoutes(map[string]string{
		cfg.Store.Currency: payments.ProviderStripe,
	}))
}

func newAdminGuard(cfg config.Config, logger *zap.Logger) (*auth.Guard, error) {
	var blockKey []byte
	if key := cfg.Admin.SessionBlockKey; key != "" {
		blockKey = []byte(key)
	}
	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		CookieSecure: cfg.Admin.CookieSecure,
		HashKey:      []byte(cfg.Admin.SessionHashKey),
		BlockKey:     blockKey,
		IdleTimeout:  cfg.Admin.IdleTimeout,
		Lifetime:     cfg.Admin.Lifetime,
	})
	if err != nil {
		return nil, err
	}
	return auth.NewGuard(sessions, auth.Credentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, auth.WithLogger(observability.NewEventLogger(logger, "auth")))
}

// loadShippingEstimator reads the zone table at path, or the built-in table when path is empty.
func loadShippingEstimator(path string) (*shipping.Estimator, error) {
	table, err := shipping.LoadTableFile(path)
	if err != nil {
		return nil, err
	}
	return shipping.NewEstimator(table)
}

func buildInfoFromEnv(env map[string]string, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["FAB_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["FAB_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(env["FAB_ENVIRONMENT"])
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	project := lookup("FAB_SECRET_PROJECT_ID")
	if project == "" {
		project = lookup("FAB_GCP_PROJECT_ID")
	}
	fallbackPath := lookup("FAB_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentialsFile := lookup("FAB_GCP_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func requiredSecretNames(env map[string]string) []string {
	required := []string{
		"Admin.PasswordHash",
		"Admin.SessionHashKey",
	}
	if !strings.EqualFold(strings.TrimSpace(env["FAB_FEATURE_CHECKOUT"]), "false") {
		required = append(required, "PSP.StripeAPIKey", "PSP.StripeWebhookSecret")
	}
	if strings.EqualFold(strings.TrimSpace(env["FAB_LEDGER_ENABLED"]), "true") {
		required = append(required, "Ledger.ClientSecret")
	}
	if strings.EqualFold(strings.TrimSpace(env["FAB_STORE_BACKEND"]), config.BackendPostgres) {
		required = append(required, "Persistence.PostgresDSN")
	}
	return required
}
