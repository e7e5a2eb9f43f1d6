package documents

import (
	"context"
	"errors"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

// Registry wires every repository to a single docstore backend.
type Registry struct {
	store    docstore.Store
	products repositories.ProductRepository
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	gallery  repositories.GalleryRepository
	services repositories.ServiceRepository
	blog     repositories.BlogRepository
	contacts repositories.ContactRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// Option customises the registry.
type Option func(*registryConfig)

type registryConfig struct {
	clock  func() time.Time
	health repositories.HealthRepository
}

// WithClock overrides the timestamp source used when stamping records.
func WithClock(clock func() time.Time) Option {
	return func(cfg *registryConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithHealth installs the readiness probe set. Without it the registry probes only the store.
func WithHealth(health repositories.HealthRepository) Option {
	return func(cfg *registryConfig) {
		cfg.health = health
	}
}

// NewRegistry builds the repositories over store.
func NewRegistry(store docstore.Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("documents: store is required")
	}
	cfg := registryConfig{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
			{Name: "store", Check: store.Ping},
		})
		if err != nil {
			return nil, err
		}
		cfg.health = health
	}

	return &Registry{
		store:    store,
		products: NewProductRepository(store, cfg.clock),
		carts:    NewCartRepository(store, cfg.clock),
		orders:   NewOrderRepository(store, cfg.clock),
		gallery:  NewGalleryRepository(store, cfg.clock),
		services: NewServiceRepository(store, cfg.clock),
		blog:     NewBlogRepository(store, cfg.clock),
		contacts: NewContactRepository(store, cfg.clock),
		health:   cfg.health,
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository { return r.products }
func (r *Registry) Carts() repositories.CartRepository       { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Gallery() repositories.GalleryRepository  { return r.gallery }
func (r *Registry) Services() repositories.ServiceRepository { return r.services }
func (r *Registry) Blog() repositories.BlogRepository        { return r.blog }
func (r *Registry) Contacts() repositories.ContactRepository { return r.contacts }
func (r *Registry) Health() repositories.HealthRepository    { return r.health }

// Close releases the backend.
func (r *Registry) Close(context.Context) error {
	return r.store.Close()
}
