package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

var (
	// ErrImportInvalidInput indicates the upload could not be read or failed strict validation.
	ErrImportInvalidInput = errors.New("import: invalid input")
	// ErrImportUnavailable indicates the product store could not be reached.
	ErrImportUnavailable = errors.New("import: unavailable")
)

// ImportServiceDeps wires the catalog import service.
type ImportServiceDeps struct {
	Products repositories.ProductRepository
	Clock    func() time.Time
	Logger   Logger
	Policy   *bluemonday.Policy
}

type importService struct {
	products repositories.ProductRepository
	now      func() time.Time
	logger   Logger
	policy   *bluemonday.Policy
}

var _ ImportService = (*importService)(nil)

// NewImportService constructs an ImportService.
func NewImportService(deps ImportServiceDeps) (ImportService, error) {
	if deps.Products == nil {
		return nil, errors.New("import service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	policy := deps.Policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	return &importService{
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
		policy:   policy,
	}, nil
}

// Import reads the spreadsheet, normalizes it, and upserts products by handle. Existing products
// keep their creation time and, unless Replace is set, their current inventory levels.
func (s *importService) Import(ctx context.Context, cmd ImportCommand) (ImportSummary, error) {
	if cmd.Reader == nil {
		return ImportSummary{}, fmt.Errorf("%w: file is required", ErrImportInvalidInput)
	}
	rows, err := catalog.ReadRows(cmd.Reader, cmd.Format)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %v", ErrImportInvalidInput, err)
	}
	result, err := catalog.Normalize(rows, catalog.NormalizeOptions{
		Strict: cmd.Strict,
		Now:    s.now,
		Policy: s.policy,
	})
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %w", ErrImportInvalidInput, err)
	}

	existing, err := s.products.List(ctx)
	if err != nil {
		return ImportSummary{}, translateRepoError(err, nil, nil, ErrImportUnavailable)
	}
	current := make(map[string]domain.Product, len(existing))
	for _, p := range existing {
		current[p.Handle] = p
	}

	summary := ImportSummary{
		RowsRead: result.RowsRead,
		Created:  []string{},
		Updated:  []string{},
		Skipped:  len(result.Errors),
		Warnings: result.Warnings,
		Errors:   result.Errors,
		DryRun:   cmd.DryRun,
	}

	toSave := make([]domain.Product, 0, len(result.Products))
	incoming := make(map[string]bool, len(result.Products))
	for _, product := range result.Products {
		incoming[product.Handle] = true
		if prev, ok := current[product.Handle]; ok {
			product = mergeImported(prev, product, cmd.Replace)
			summary.Updated = append(summary.Updated, product.Handle)
		} else {
			summary.Created = append(summary.Created, product.Handle)
		}
		toSave = append(toSave, product)
	}

	if cmd.ArchiveMissing {
		for _, prev := range existing {
			if incoming[prev.Handle] || prev.Status == domain.ProductStatusArchived {
				continue
			}
			prev.Status = domain.ProductStatusArchived
			toSave = append(toSave, prev)
			summary.Archived = append(summary.Archived, prev.Handle)
		}
	}
	summary.Products = toSave

	fields := map[string]any{
		"rows":     summary.RowsRead,
		"created":  len(summary.Created),
		"updated":  len(summary.Updated),
		"archived": len(summary.Archived),
		"skipped":  summary.Skipped,
		"warnings": len(summary.Warnings),
		"dryRun":   cmd.DryRun,
	}
	if cmd.DryRun {
		s.logger(ctx, "import.dry_run", fields)
		return summary, nil
	}
	if err := s.products.SaveMany(ctx, toSave); err != nil {
		return summary, translateRepoError(err, nil, nil, ErrImportUnavailable)
	}
	s.logger(ctx, "import.completed", fields)
	return summary, nil
}

// mergeImported carries store-owned state from prev onto the imported product. In replace mode the
// file is authoritative for everything except the creation time.
func mergeImported(prev, next domain.Product, replace bool) domain.Product {
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	if replace {
		return next
	}
	for i, v := range next.Variants {
		idx := slices.IndexFunc(prev.Variants, func(p domain.ProductVariant) bool { return p.ID == v.ID })
		if idx < 0 {
			continue
		}
		old := prev.Variants[idx]
		if old.TrackInventory && v.TrackInventory {
			next.Variants[i].InventoryQty = old.InventoryQty
		}
	}
	if len(next.Images) == 0 {
		next.Images = prev.Images
	}
	if !next.Featured {
		next.Featured = prev.Featured
	}
	return next
}
