package di

import (
	"context"
	"fmt"
	"strings"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/config"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	pfirestore "github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/firestore"
)

const firestoreCollectionPrefix = "fab_"

// OpenStore opens the document backend selected by cfg.Backend. Postgres tables are created on
// first use. Firestore options apply only to the firestore backend.
func OpenStore(ctx context.Context, cfg config.PersistenceConfig, firestoreOpts ...pfirestore.ProviderOption) (docstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BackendJSONFile:
		store, err := docstore.NewJSONFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open jsonfile store: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := docstore.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return store, nil
	case config.BackendFirestore:
		provider := pfirestore.NewProvider(pfirestore.Config{
			ProjectID:    cfg.FirestoreProjectID,
			EmulatorHost: cfg.FirestoreEmulatorHost,
		}, firestoreOpts...)
		if _, err := provider.Client(ctx); err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("open firestore store: %w", err)
		}
		return pfirestore.NewStore(provider, firestoreCollectionPrefix), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
