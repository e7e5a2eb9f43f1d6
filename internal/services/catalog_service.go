package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid product data or filters.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product does not exist or is hidden from the storefront.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates a product with the same handle already exists.
	ErrCatalogConflict = errors.New("catalog: conflict")
	// ErrCatalogUnavailable indicates the product store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

const defaultProductPageSize = 24

// CatalogServiceDeps wires the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Logger   Logger
	// Policy sanitizes product descriptions. Defaults to bluemonday's UGC policy.
	Policy *bluemonday.Policy
}

type catalogService struct {
	products repositories.ProductRepository
	logger   Logger
	policy   *bluemonday.Policy
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	policy := deps.Policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	return &catalogService{
		products: deps.Products,
		logger:   logger,
		policy:   policy,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error) {
	query.Filter.IncludeHidden = false
	return s.list(ctx, query)
}

func (s *catalogService) AdminListProducts(ctx context.Context, query ProductQuery) (ProductPage, error) {
	query.Filter.IncludeHidden = true
	return s.list(ctx, query)
}

func (s *catalogService) list(ctx context.Context, query ProductQuery) (ProductPage, error) {
	offset, err := pagination.DecodeToken(query.Pagination.PageToken)
	if err != nil {
		return ProductPage{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	if query.Filter.MaxPriceCents > 0 && query.Filter.MinPriceCents > query.Filter.MaxPriceCents {
		return ProductPage{}, fmt.Errorf("%w: minimum price exceeds maximum", ErrCatalogInvalidInput)
	}

	all, err := s.products.List(ctx)
	if err != nil {
		return ProductPage{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	matched := catalog.Apply(all, query.Filter, query.Sort)

	size := query.Pagination.PageSize
	if size <= 0 {
		size = defaultProductPageSize
	}
	items, next := pagination.Slice(matched, pagination.Params{PageSize: size, Offset: offset})
	return ProductPage{
		Items:         items,
		NextPageToken: next,
		Total:         len(matched),
		Facets:        catalog.ComputeFacets(matched),
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, handle string) (Product, error) {
	product, err := s.AdminGetProduct(ctx, handle)
	if err != nil {
		return Product{}, err
	}
	if !product.Visible() {
		return Product{}, ErrCatalogNotFound
	}
	return product, nil
}

func (s *catalogService) AdminGetProduct(ctx context.Context, handle string) (Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.products.Get(ctx, handle)
	if err != nil {
		return Product{}, translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	return product, nil
}

// Featured returns visible products with flagged ones first.
func (s *catalogService) Featured(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 8
	}
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	visible := catalog.Apply(all, catalog.Filter{}, catalog.SortFeatured)
	if len(visible) > limit {
		visible = visible[:limit]
	}
	return visible, nil
}

func (s *catalogService) Categories(ctx context.Context) (*catalog.CategoryTree, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	return catalog.BuildCategoryTree(all), nil
}

func (s *catalogService) Facets(ctx context.Context, filter catalog.Filter) (catalog.Facets, error) {
	filter.IncludeHidden = false
	all, err := s.products.List(ctx)
	if err != nil {
		return catalog.Facets{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}
	return catalog.ComputeFacets(catalog.Apply(all, filter, catalog.SortTitle)), nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	handle := catalog.Slugify(input.Handle)
	if handle == "" {
		handle = catalog.Slugify(input.Title)
	}
	if handle == "" {
		return Product{}, fmt.Errorf("%w: handle or title is required", ErrCatalogInvalidInput)
	}
	if _, err := s.products.Get(ctx, handle); err == nil {
		return Product{}, fmt.Errorf("%w: handle %s already exists", ErrCatalogConflict, handle)
	} else if !isRepoNotFound(err) {
		return Product{}, translateRepoError(err, nil, nil, ErrCatalogUnavailable)
	}

	product := domain.Product{ID: handle, Handle: handle}
	if err := s.applyInput(&product, input); err != nil {
		return Product{}, err
	}
	saved, err := s.products.Save(ctx, product)
	if err != nil {
		return Product{}, translateRepoError(err, nil, ErrCatalogConflict, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product_created", map[string]any{"handle": handle, "variants": len(saved.Variants)})
	return saved, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, handle string, input ProductInput) (Product, error) {
	product, err := s.AdminGetProduct(ctx, handle)
	if err != nil {
		return Product{}, err
	}
	if err := s.applyInput(&product, input); err != nil {
		return Product{}, err
	}
	saved, err := s.products.Save(ctx, product)
	if err != nil {
		return Product{}, translateRepoError(err, nil, ErrCatalogConflict, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product_updated", map[string]any{"handle": product.Handle})
	return saved, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.products.Delete(ctx, handle); err != nil {
		return translateRepoError(err, ErrCatalogNotFound, nil, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.product_deleted", map[string]any{"handle": handle})
	return nil
}

func (s *catalogService) AdjustInventory(ctx context.Context, cmd InventoryAdjustment) (Product, error) {
	product, err := s.AdminGetProduct(ctx, cmd.Handle)
	if err != nil {
		return Product{}, err
	}
	idx := variantIndex(product, cmd.VariantID)
	if idx < 0 {
		return Product{}, fmt.Errorf("%w: variant %s not found", ErrCatalogNotFound, cmd.VariantID)
	}
	variant := &product.Variants[idx]
	next := variant.InventoryQty + cmd.Delta
	if cmd.Set != nil {
		next = *cmd.Set
		variant.TrackInventory = true
	}
	if next < 0 {
		return Product{}, fmt.Errorf("%w: inventory cannot be negative", ErrCatalogInvalidInput)
	}
	previous := variant.InventoryQty
	variant.InventoryQty = next

	saved, err := s.products.Save(ctx, product)
	if err != nil {
		return Product{}, translateRepoError(err, nil, ErrCatalogConflict, ErrCatalogUnavailable)
	}
	s.logger(ctx, "catalog.inventory_adjusted", map[string]any{
		"handle":    product.Handle,
		"variantId": variant.ID,
		"from":      previous,
		"to":        next,
	})
	return saved, nil
}

// DecrementStock removes sold quantities from tracked variants. Stock never drops below zero; an
// oversell is logged instead of failing the paid order.
func (s *catalogService) DecrementStock(ctx context.Context, lines []StockLine) error {
	byProduct := make(map[string][]StockLine)
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, seen := byProduct[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		byProduct[line.ProductID] = append(byProduct[line.ProductID], line)
	}

	var errs []error
	for _, productID := range order {
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			if isRepoNotFound(err) {
				s.logger(ctx, "catalog.stock_product_missing", map[string]any{"productId": productID})
				continue
			}
			errs = append(errs, translateRepoError(err, nil, nil, ErrCatalogUnavailable))
			continue
		}
		changed := false
		for _, line := range byProduct[productID] {
			idx := variantIndex(product, line.VariantID)
			if idx < 0 || !product.Variants[idx].TrackInventory {
				continue
			}
			variant := &product.Variants[idx]
			if variant.InventoryQty < line.Quantity {
				s.logger(ctx, "catalog.stock_oversold", map[string]any{
					"productId": productID,
					"variantId": variant.ID,
					"available": variant.InventoryQty,
					"sold":      line.Quantity,
				})
			}
			variant.InventoryQty = max(variant.InventoryQty-line.Quantity, 0)
			changed = true
		}
		if !changed {
			continue
		}
		if _, err := s.products.Save(ctx, product); err != nil {
			errs = append(errs, translateRepoError(err, nil, nil, ErrCatalogUnavailable))
		}
	}
	return errors.Join(errs...)
}

func (s *catalogService) applyInput(product *domain.Product, input ProductInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrCatalogInvalidInput)
	}
	status := input.Status
	switch status {
	case "":
		status = domain.ProductStatusDraft
	case domain.ProductStatusActive, domain.ProductStatusDraft, domain.ProductStatusArchived:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrCatalogInvalidInput, status)
	}

	variants, err := normaliseVariants(product.Handle, input.Variants)
	if err != nil {
		return err
	}

	product.Title = title
	product.DescriptionHTML = s.policy.Sanitize(input.DescriptionHTML)
	product.Vendor = strings.TrimSpace(input.Vendor)
	product.ProductType = strings.TrimSpace(input.ProductType)
	product.Category = strings.Join(domain.SplitCategoryPath(input.Category), " > ")
	product.Tags = cleanStrings(input.Tags)
	product.Options = input.Options
	product.Variants = variants
	product.Images = normaliseImages(input.Images)
	product.Status = status
	product.SEOTitle = strings.TrimSpace(input.SEOTitle)
	product.SEODescription = strings.TrimSpace(input.SEODescription)
	product.Featured = input.Featured
	return nil
}

func normaliseVariants(handle string, variants []domain.ProductVariant) ([]domain.ProductVariant, error) {
	if len(variants) == 0 {
		return []domain.ProductVariant{{
			ID:               handle + "-default",
			Title:            "Default Title",
			RequiresShipping: true,
			Taxable:          true,
		}}, nil
	}
	out := make([]domain.ProductVariant, 0, len(variants))
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		if v.PriceCents < 0 || v.CompareAtCents < 0 || v.WeightGrams < 0 || v.InventoryQty < 0 {
			return nil, fmt.Errorf("%w: variant %d has a negative amount", ErrCatalogInvalidInput, i+1)
		}
		v.Title = strings.TrimSpace(v.Title)
		if v.Title == "" {
			v.Title = strings.Join(v.OptionValues, " / ")
		}
		if v.Title == "" {
			v.Title = "Default Title"
		}
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			base := catalog.Slugify(v.Title)
			if base == "" || base == "default-title" {
				base = "default"
			}
			v.ID = handle + "-" + base
		}
		id := v.ID
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", v.ID, n)
		}
		v.ID = id
		seen[id] = true
		out = append(out, v)
	}
	return out, nil
}

func normaliseImages(images []domain.ProductImage) []domain.ProductImage {
	out := make([]domain.ProductImage, 0, len(images))
	for _, img := range images {
		img.Src = strings.TrimSpace(img.Src)
		if img.Src == "" {
			continue
		}
		img.Position = len(out) + 1
		out = append(out, img)
	}
	return out
}

func variantIndex(p domain.Product, id string) int {
	for i, v := range p.Variants {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func cleanStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
