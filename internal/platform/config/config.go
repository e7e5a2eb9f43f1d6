package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultShutdownTimeout  = 20 * time.Second
	defaultBaseURL          = "http://localhost:8080"
	defaultStoreName        = "Fabrow Metal Fabrication"
	defaultCurrency         = "AUD"
	defaultLocale           = "en-AU"
	defaultGSTRate          = 0.10
	defaultBackend          = BackendJSONFile
	defaultDataDir          = "data"
	defaultMaxUploadBytes   = 10 << 20
	defaultSignedURLTTL     = 15 * time.Minute
	defaultLedgerBaseURL    = "https://api.xero.com/api.xro/2.0"
	defaultLedgerTokenURL   = "https://identity.xero.com/connect/token"
	defaultLedgerSales      = "200"
	defaultLedgerShipping   = "260"
	defaultLedgerPayment    = "090"
	defaultLedgerTaxType    = "OUTPUT"
	defaultAdminUsername    = "admin"
	defaultAdminIdleTimeout = 30 * time.Minute
	defaultAdminLifetime    = 12 * time.Hour
	defaultOrderTopic       = "order-events"
	minSessionKeyLength     = 32
)

// Persistence backends understood by the storefront.
const (
	BackendJSONFile  = "jsonfile"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Store       StoreConfig
	Persistence PersistenceConfig
	Storage     StorageConfig
	PSP         PSPConfig
	Ledger      LedgerConfig
	Admin       AdminConfig
	Shipping    ShippingConfig
	Events      EventsConfig
	Features    FeatureFlags
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level       string
	Development bool
}

// StoreConfig holds merchant facing settings.
type StoreConfig struct {
	Name         string
	Currency     string
	Locale       string
	GSTRate      float64
	ContactEmail string
	ProjectID    string
}

// PersistenceConfig selects and configures the document backend.
type PersistenceConfig struct {
	Backend               string
	DataDir               string
	PostgresDSN           string
	FirestoreProjectID    string
	FirestoreEmulatorHost string
}

// StorageConfig configures the image CDN bucket.
type StorageConfig struct {
	MediaBucket    string
	CDNBaseURL     string
	MaxUploadBytes int64
	SignedURLTTL   time.Duration
	// SignerKeyFile is a service account JSON key used to sign direct upload URLs.
	SignerKeyFile string
}

// PSPConfig collects secrets for the payment gateway.
type PSPConfig struct {
	StripeAPIKey        string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
}

// LedgerConfig configures accounting sync.
type LedgerConfig struct {
	Enabled             bool
	ClientID            string
	ClientSecret        string
	TenantID            string
	BaseURL             string
	TokenURL            string
	Scopes              []string
	SalesAccountCode    string
	ShippingAccountCode string
	PaymentAccountCode  string
	TaxType             string
}

// AdminConfig configures back-office authentication.
type AdminConfig struct {
	Username        string
	PasswordHash    string
	SessionHashKey  string
	SessionBlockKey string
	IdleTimeout     time.Duration
	Lifetime        time.Duration
	CookieSecure    bool
}

// ShippingConfig points at the zone table override.
type ShippingConfig struct {
	ZoneTablePath string
}

// EventsConfig configures Pub/Sub order events. Empty topic disables publishing.
type EventsConfig struct {
	ProjectID  string
	OrderTopic string
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableCheckout bool
	EnableBlog     bool
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns hashed secret identifiers that are safe to log.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, redactSecretName(name))
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map that takes precedence over the OS environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks config field names (e.g. "PSP.StripeAPIKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// EnvironmentValues returns the effective environment after applying the same precedence as
// Load (dotenv < OS env < explicit env map) so callers can build dependencies such as the
// secret fetcher before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	lookup, err := options.lookup()
	if err != nil {
		return nil, err
	}
	return lookup.values(), nil
}

type envLookup struct {
	layers []map[string]string
}

func (l envLookup) get(key string) (string, bool) {
	for i := len(l.layers) - 1; i >= 0; i-- {
		if value, ok := l.layers[i][key]; ok {
			return value, true
		}
	}
	return "", false
}

func (l envLookup) values() map[string]string {
	out := make(map[string]string)
	for _, layer := range l.layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func (o loaderOptions) lookup() (envLookup, error) {
	var layers []map[string]string
	if o.envFile != "" {
		values, err := godotenv.Read(o.envFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return envLookup{}, fmt.Errorf("config: unable to read %s: %w", o.envFile, err)
		default:
			layers = append(layers, values)
		}
	}
	if o.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if ok && strings.TrimSpace(key) != "" {
				system[key] = value
			}
		}
		layers = append(layers, system)
	}
	if o.envMap != nil {
		layers = append(layers, o.envMap)
	}
	return envLookup{layers: layers}, nil
}

// Load assembles the configuration from defaults, .env overrides, environment variables, and
// optional Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	env, err := options.lookup()
	if err != nil {
		return Config{}, err
	}
	lookup := env.get

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "FAB_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			BaseURL:         strings.TrimRight(stringWithDefault(lookup, "FAB_SERVER_BASE_URL", defaultBaseURL), "/"),
			ReadTimeout:     durationWithDefault(lookup, "FAB_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "FAB_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "FAB_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "FAB_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Logging: LoggingConfig{
			Level:       stringWithDefault(lookup, "LOG_LEVEL", "info"),
			Development: boolWithDefault(lookup, "FAB_LOG_DEVELOPMENT", false),
		},
		Store: StoreConfig{
			Name:         stringWithDefault(lookup, "FAB_STORE_NAME", defaultStoreName),
			Currency:     strings.ToUpper(stringWithDefault(lookup, "FAB_STORE_CURRENCY", defaultCurrency)),
			Locale:       stringWithDefault(lookup, "FAB_STORE_LOCALE", defaultLocale),
			GSTRate:      floatWithDefault(lookup, "FAB_STORE_GST_RATE", defaultGSTRate),
			ContactEmail: stringWithDefault(lookup, "FAB_STORE_CONTACT_EMAIL", ""),
			ProjectID:    stringWithDefault(lookup, "FAB_GCP_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
		},
		Persistence: PersistenceConfig{
			Backend:               strings.ToLower(stringWithDefault(lookup, "FAB_STORE_BACKEND", defaultBackend)),
			DataDir:               stringWithDefault(lookup, "FAB_DATA_DIR", defaultDataDir),
			PostgresDSN:           stringWithDefault(lookup, "FAB_DATABASE_URL", stringWithDefault(lookup, "DATABASE_URL", "")),
			FirestoreProjectID:    stringWithDefault(lookup, "FAB_FIRESTORE_PROJECT_ID", ""),
			FirestoreEmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			MediaBucket:    stringWithDefault(lookup, "FAB_STORAGE_MEDIA_BUCKET", ""),
			CDNBaseURL:     strings.TrimRight(stringWithDefault(lookup, "FAB_STORAGE_CDN_BASE_URL", ""), "/"),
			MaxUploadBytes: int64(intWithDefault(lookup, "FAB_STORAGE_MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
			SignedURLTTL:   durationWithDefault(lookup, "FAB_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
			SignerKeyFile:  stringWithDefault(lookup, "FAB_STORAGE_SIGNER_KEY_FILE", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey:        stringWithDefault(lookup, "FAB_PSP_STRIPE_API_KEY", ""),
			StripeWebhookSecret: stringWithDefault(lookup, "FAB_PSP_STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:          stringWithDefault(lookup, "FAB_PSP_SUCCESS_URL", ""),
			CancelURL:           stringWithDefault(lookup, "FAB_PSP_CANCEL_URL", ""),
		},
		Ledger: LedgerConfig{
			Enabled:             boolWithDefault(lookup, "FAB_LEDGER_ENABLED", false),
			ClientID:            stringWithDefault(lookup, "FAB_LEDGER_CLIENT_ID", ""),
			ClientSecret:        stringWithDefault(lookup, "FAB_LEDGER_CLIENT_SECRET", ""),
			TenantID:            stringWithDefault(lookup, "FAB_LEDGER_TENANT_ID", ""),
			BaseURL:             strings.TrimRight(stringWithDefault(lookup, "FAB_LEDGER_BASE_URL", defaultLedgerBaseURL), "/"),
			TokenURL:            stringWithDefault(lookup, "FAB_LEDGER_TOKEN_URL", defaultLedgerTokenURL),
			Scopes:              csvWithDefault(lookup, "FAB_LEDGER_SCOPES"),
			SalesAccountCode:    stringWithDefault(lookup, "FAB_LEDGER_SALES_ACCOUNT", defaultLedgerSales),
			ShippingAccountCode: stringWithDefault(lookup, "FAB_LEDGER_SHIPPING_ACCOUNT", defaultLedgerShipping),
			PaymentAccountCode:  stringWithDefault(lookup, "FAB_LEDGER_PAYMENT_ACCOUNT", defaultLedgerPayment),
			TaxType:             stringWithDefault(lookup, "FAB_LEDGER_TAX_TYPE", defaultLedgerTaxType),
		},
		Admin: AdminConfig{
			Username:        stringWithDefault(lookup, "FAB_ADMIN_USERNAME", defaultAdminUsername),
			PasswordHash:    stringWithDefault(lookup, "FAB_ADMIN_PASSWORD_HASH", ""),
			SessionHashKey:  stringWithDefault(lookup, "FAB_ADMIN_SESSION_HASH_KEY", ""),
			SessionBlockKey: stringWithDefault(lookup, "FAB_ADMIN_SESSION_BLOCK_KEY", ""),
			IdleTimeout:     durationWithDefault(lookup, "FAB_ADMIN_IDLE_TIMEOUT", defaultAdminIdleTimeout),
			Lifetime:        durationWithDefault(lookup, "FAB_ADMIN_SESSION_LIFETIME", defaultAdminLifetime),
			CookieSecure:    boolWithDefault(lookup, "FAB_ADMIN_COOKIE_SECURE", true),
		},
		Shipping: ShippingConfig{
			ZoneTablePath: stringWithDefault(lookup, "FAB_SHIPPING_ZONES_FILE", ""),
		},
		Events: EventsConfig{
			ProjectID:  stringWithDefault(lookup, "FAB_EVENTS_PROJECT_ID", ""),
			OrderTopic: stringWithDefault(lookup, "FAB_EVENTS_ORDER_TOPIC", ""),
		},
		Features: FeatureFlags{
			EnableCheckout: boolWithDefault(lookup, "FAB_FEATURE_CHECKOUT", true),
			EnableBlog:     boolWithDefault(lookup, "FAB_FEATURE_BLOG", true),
		},
	}

	if cfg.Persistence.FirestoreProjectID == "" {
		cfg.Persistence.FirestoreProjectID = cfg.Store.ProjectID
	}
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Store.ProjectID
	}
	if cfg.Events.OrderTopic == "" && cfg.Events.ProjectID != "" {
		cfg.Events.OrderTopic = defaultOrderTopic
	}
	if cfg.PSP.SuccessURL == "" {
		cfg.PSP.SuccessURL = cfg.Server.BaseURL + "/checkout/success?order={ORDER_ID}"
	}
	if cfg.PSP.CancelURL == "" {
		cfg.PSP.CancelURL = cfg.Server.BaseURL + "/checkout/cancel?order={ORDER_ID}"
	}

	resolver := options.secret
	if resolver == nil {
		resolver = SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		})
	}
	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"PSP.StripeAPIKey", &cfg.PSP.StripeAPIKey},
		{"PSP.StripeWebhookSecret", &cfg.PSP.StripeWebhookSecret},
		{"Ledger.ClientSecret", &cfg.Ledger.ClientSecret},
		{"Admin.PasswordHash", &cfg.Admin.PasswordHash},
		{"Admin.SessionHashKey", &cfg.Admin.SessionHashKey},
		{"Admin.SessionBlockKey", &cfg.Admin.SessionBlockKey},
		{"Persistence.PostgresDSN", &cfg.Persistence.PostgresDSN},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, resolver)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		var secretErr *SecretError
		if errors.As(err, &secretErr) {
			return "", err
		}
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if cfg.Server.Port == "" {
		invalid = append(invalid, "Server.Port")
	}
	if len(cfg.Store.Currency) != 3 {
		invalid = append(invalid, "Store.Currency")
	}
	if cfg.Store.GSTRate < 0 || cfg.Store.GSTRate >= 1 {
		invalid = append(invalid, "Store.GSTRate")
	}

	switch cfg.Persistence.Backend {
	case BackendJSONFile:
		if strings.TrimSpace(cfg.Persistence.DataDir) == "" {
			invalid = append(invalid, "Persistence.DataDir")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Persistence.PostgresDSN) == "" {
			invalid = append(invalid, "Persistence.PostgresDSN")
		}
	case BackendFirestore:
		if strings.TrimSpace(cfg.Persistence.FirestoreProjectID) == "" {
			invalid = append(invalid, "Persistence.FirestoreProjectID")
		}
	default:
		invalid = append(invalid, "Persistence.Backend")
	}

	if strings.TrimSpace(cfg.Admin.PasswordHash) == "" {
		invalid = append(invalid, "Admin.PasswordHash")
	}
	if len(cfg.Admin.SessionHashKey) < minSessionKeyLength {
		invalid = append(invalid, "Admin.SessionHashKey")
	}
	if key := len(cfg.Admin.SessionBlockKey); key != 0 && key != 16 && key != 24 && key != 32 {
		invalid = append(invalid, "Admin.SessionBlockKey")
	}
	if cfg.Admin.IdleTimeout <= 0 || cfg.Admin.Lifetime <= 0 {
		invalid = append(invalid, "Admin.Lifetime")
	}

	if cfg.Ledger.Enabled {
		if cfg.Ledger.ClientID == "" {
			invalid = append(invalid, "Ledger.ClientID")
		}
		if cfg.Ledger.ClientSecret == "" {
			invalid = append(invalid, "Ledger.ClientSecret")
		}
	}
	if cfg.Features.EnableCheckout && cfg.PSP.StripeAPIKey == "" {
		invalid = append(invalid, "PSP.StripeAPIKey")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
