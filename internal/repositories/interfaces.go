package repositories

import (
	"context"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Gallery() GalleryRepository
	Services() ServiceRepository
	Blog() BlogRepository
	Contacts() ContactRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog products keyed by handle.
type ProductRepository interface {
	Get(ctx context.Context, handle string) (domain.Product, error)
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	SaveMany(ctx context.Context, products []domain.Product) error
	Delete(ctx context.Context, handle string) error
	// List returns every product ordered by handle; callers filter and page in memory.
	List(ctx context.Context) ([]domain.Product, error)
}

// CartRepository persists anonymous shopping carts.
type CartRepository interface {
	Get(ctx context.Context, cartID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, cartID string) error
}

// OrderRepository persists orders and resolves them from payment callbacks.
type OrderRepository interface {
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Save(ctx context.Context, order domain.Order) (domain.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, filter domain.OrderListFilter) (domain.CursorPage[domain.Order], error)
	FindByPaymentSession(ctx context.Context, sessionID string) (domain.Order, error)
}

// GalleryRepository stores gallery items.
type GalleryRepository interface {
	Get(ctx context.Context, id string) (domain.GalleryItem, error)
	Save(ctx context.Context, item domain.GalleryItem) (domain.GalleryItem, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.GalleryItem, error)
}

// ServiceRepository stores the fabrication services shown on the site.
type ServiceRepository interface {
	Get(ctx context.Context, id string) (domain.Service, error)
	GetBySlug(ctx context.Context, slug string) (domain.Service, error)
	Save(ctx context.Context, service domain.Service) (domain.Service, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Service, error)
}

// BlogRepository stores blog posts.
type BlogRepository interface {
	Get(ctx context.Context, id string) (domain.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (domain.BlogPost, error)
	Save(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.BlogPost, error)
}

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	Get(ctx context.Context, id string) (domain.ContactSubmission, error)
	Save(ctx context.Context, submission domain.ContactSubmission) (domain.ContactSubmission, error)
	Delete(ctx context.Context, id string) error
	// List returns submissions newest first.
	List(ctx context.Context) ([]domain.ContactSubmission, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
