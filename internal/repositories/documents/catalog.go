package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

type productRepository struct {
	products Collection[domain.Product]
	now      func() time.Time
}

var _ repositories.ProductRepository = (*productRepository)(nil)

// NewProductRepository stores products keyed by handle.
func NewProductRepository(store docstore.Store, clock func() time.Time) repositories.ProductRepository {
	return &productRepository{products: NewCollection[domain.Product](store, collectionProducts), now: utcClock(clock)}
}

func (r *productRepository) Get(ctx context.Context, handle string) (domain.Product, error) {
	return r.products.Get(ctx, handle)
}

func (r *productRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.Handle = strings.TrimSpace(product.Handle)
	if product.ID == "" {
		product.ID = product.Handle
	}
	stamp(&product.CreatedAt, &product.UpdatedAt, r.now())
	if err := r.products.Put(ctx, product.ID, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (r *productRepository) SaveMany(ctx context.Context, products []domain.Product) error {
	for _, product := range products {
		if _, err := r.Save(ctx, product); err != nil {
			return fmt.Errorf("save product %s: %w", product.Handle, err)
		}
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, handle string) error {
	return r.products.Delete(ctx, handle)
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.products.List(ctx)
}

type cartRepository struct {
	carts Collection[domain.Cart]
	now   func() time.Time
}

var _ repositories.CartRepository = (*cartRepository)(nil)

// NewCartRepository stores anonymous carts.
func NewCartRepository(store docstore.Store, clock func() time.Time) repositories.CartRepository {
	return &cartRepository{carts: NewCollection[domain.Cart](store, collectionCarts), now: utcClock(clock)}
}

func (r *cartRepository) Get(ctx context.Context, cartID string) (domain.Cart, error) {
	return r.carts.Get(ctx, cartID)
}

func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	stamp(&cart.CreatedAt, &cart.UpdatedAt, r.now())
	if err := r.carts.Put(ctx, cart.ID, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID string) error {
	return r.carts.Delete(ctx, cartID)
}

func utcClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}

func stamp(createdAt, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
