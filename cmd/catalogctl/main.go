// Command catalogctl maintains the product catalogue from the command line: spreadsheet imports,
// category inspection, shipping quotes, and admin password hashing.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/di"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/config"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/observability"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories/documents"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// rootOptions are shared by every subcommand that touches the store.
type rootOptions struct {
	backend  string
	dataDir  string
	dsn      string
	project  string
	logLevel string
	env      map[string]string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Maintain the Fabrow product catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.EnvironmentValues()
			if err != nil {
				return err
			}
			opts.env = env
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "store backend: jsonfile, postgres, or firestore (default $FAB_STORE_BACKEND)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "jsonfile data directory (default $FAB_DATA_DIR)")
	flags.StringVar(&opts.dsn, "dsn", "", "postgres connection string (default $FAB_DATABASE_URL)")
	flags.StringVar(&opts.project, "project", "", "firestore project id (default $FAB_FIRESTORE_PROJECT_ID)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.AddCommand(
		newImportCmd(opts),
		newCategoriesCmd(opts),
		newQuoteCmd(),
		newHashPasswordCmd(),
	)
	return cmd
}

// persistence resolves the store settings from flags, then the environment, then defaults.
func (o *rootOptions) persistence() config.PersistenceConfig {
	pick := func(flag string, keys ...string) string {
		if v := strings.TrimSpace(flag); v != "" {
			return v
		}
		for _, key := range keys {
			if v := strings.TrimSpace(o.env[key]); v != "" {
				return v
			}
		}
		return ""
	}
	cfg := config.PersistenceConfig{
		Backend:               strings.ToLower(pick(o.backend, "FAB_STORE_BACKEND")),
		DataDir:               pick(o.dataDir, "FAB_DATA_DIR"),
		PostgresDSN:           pick(o.dsn, "FAB_DATABASE_URL", "DATABASE_URL"),
		FirestoreProjectID:    pick(o.project, "FAB_FIRESTORE_PROJECT_ID", "FAB_GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		FirestoreEmulatorHost: pick("", "FIRESTORE_EMULATOR_HOST"),
	}
	if cfg.Backend == "" {
		cfg.Backend = config.BackendJSONFile
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return cfg
}

// logger writes console logs to stderr so command output stays clean on stdout.
func (o *rootOptions) logger() *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	if level, err := zap.ParseAtomicLevel(o.logLevel); err == nil {
		zcfg.Level = level
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("catalogctl")
}

func (o *rootOptions) eventLogger(component string) services.Logger {
	return services.Logger(observability.NewEventLogger(o.logger(), component))
}

// openRegistry opens the configured store. Callers must close the registry.
func (o *rootOptions) openRegistry(ctx context.Context) (*documents.Registry, error) {
	store, err := di.OpenStore(ctx, o.persistence())
	if err != nil {
		return nil, err
	}
	reg, err := documents.NewRegistry(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return reg, nil
}
