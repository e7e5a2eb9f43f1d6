package catalog

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

const maxOptions = 3

// Column names as they appear after header normalization.
const (
	colHandle           = "handle"
	colTitle            = "title"
	colBody             = "body (html)"
	colBodyAlt          = "body"
	colVendor           = "vendor"
	colCategory         = "product category"
	colCategoryAlt      = "category"
	colType             = "type"
	colTypeAlt          = "product type"
	colTags             = "tags"
	colPublished        = "published"
	colStatus           = "status"
	colSKU              = "variant sku"
	colGrams            = "variant grams"
	colWeight           = "variant weight"
	colWeightUnit       = "variant weight unit"
	colInventoryTracker = "variant inventory tracker"
	colInventoryQty     = "variant inventory qty"
	colPrice            = "variant price"
	colCompareAt        = "variant compare at price"
	colRequiresShipping = "variant requires shipping"
	colTaxable          = "variant taxable"
	colVariantImage     = "variant image"
	colImageSrc         = "image src"
	colImagePosition    = "image position"
	colImageAlt         = "image alt text"
	colSEOTitle         = "seo title"
	colSEODescription   = "seo description"
	colFeatured         = "featured"
)

// NormalizeOptions tunes Normalize.
type NormalizeOptions struct {
	// Strict aborts on the first row error instead of skipping the row.
	Strict bool
	// DefaultStatus applies when neither Status nor Published is present.
	DefaultStatus domain.ProductStatus
	Now           func() time.Time
	Policy        *bluemonday.Policy
}

// RowError reports a rejected row.
type RowError struct {
	Row     int    `json:"row"`
	Handle  string `json:"handle,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Warning reports a row that was accepted with adjustments.
type Warning struct {
	Row     int    `json:"row"`
	Handle  string `json:"handle,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the output of Normalize.
type ImportResult struct {
	Products []domain.Product `json:"products"`
	Errors   []RowError       `json:"errors,omitempty"`
	Warnings []Warning        `json:"warnings,omitempty"`
	RowsRead int              `json:"rowsRead"`
}

type productBuilder struct {
	product     domain.Product
	hasTitle    bool
	optionNames []string
	collapsed   bool
	combos      map[string]bool
	variantIDs  map[string]bool
	images      []imageEntry
	imageIndex  map[string]int
	firstRow    int
}

type imageEntry struct {
	src      string
	alt      string
	position int
	order    int
}

type parsedVariant struct {
	sku              string
	priceCents       int64
	hasPrice         bool
	compareAtCents   int64
	grams            int
	qty              int
	tracked          bool
	requiresShipping bool
	taxable          bool
	image            string
}

// Normalize groups spreadsheet rows into products keyed by handle. Handles keep their first-seen
// order. Rows that cannot be parsed are reported as RowErrors and skipped, or abort the import in
// strict mode.
func Normalize(rows []Row, opts NormalizeOptions) (ImportResult, error) {
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = domain.ProductStatusActive
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == nil {
		opts.Policy = bluemonday.UGCPolicy()
	}
	now := opts.Now().UTC()

	result := ImportResult{RowsRead: len(rows)}
	builders := make(map[string]*productBuilder)
	var order []string

	reject := func(rowErr RowError) error {
		if opts.Strict {
			return &rowErr
		}
		result.Errors = append(result.Errors, rowErr)
		return nil
	}

	for _, row := range rows {
		rawHandle := row.Get(colHandle)
		handle := Slugify(rawHandle)
		if handle == "" {
			msg := "missing handle"
			if rawHandle != "" {
				msg = fmt.Sprintf("handle %q has no usable characters", rawHandle)
			}
			if err := reject(RowError{Row: row.Number, Field: "Handle", Message: msg}); err != nil {
				return ImportResult{}, err
			}
			continue
		}

		pv, fieldErr := parseVariantFields(row)
		if fieldErr != nil {
			fieldErr.Handle = handle
			if err := reject(*fieldErr); err != nil {
				return ImportResult{}, err
			}
			continue
		}

		b, ok := builders[handle]
		if !ok {
			b = &productBuilder{
				product: domain.Product{
					ID:        handle,
					Handle:    handle,
					Status:    opts.DefaultStatus,
					CreatedAt: now,
					UpdatedAt: now,
				},
				combos:     make(map[string]bool),
				variantIDs: make(map[string]bool),
				imageIndex: make(map[string]int),
				firstRow:   row.Number,
			}
			builders[handle] = b
			order = append(order, handle)
		}

		if !b.hasTitle && row.Get(colTitle) != "" {
			b.applyProductFields(row, opts)
		}
		if b.optionNames == nil {
			b.captureOptionNames(row)
		}

		b.addImage(row.Get(colImageSrc), row.Get(colImageAlt), parsePosition(row.Get(colImagePosition)))
		if pv.image != "" {
			b.addImage(pv.image, "", 0)
		}

		if !hasVariantSignal(row, pv) {
			continue
		}
		if warn := b.addVariant(row, pv); warn != "" {
			result.Warnings = append(result.Warnings, Warning{Row: row.Number, Handle: handle, Message: warn})
		}
	}

	result.Products = make([]domain.Product, 0, len(order))
	for _, handle := range order {
		b := builders[handle]
		if !b.hasTitle {
			b.product.Title = handle
			result.Warnings = append(result.Warnings, Warning{Row: b.firstRow, Handle: handle, Message: "no title found; using handle"})
		}
		result.Products = append(result.Products, b.finish())
	}
	return result, nil
}

func parseVariantFields(row Row) (parsedVariant, *RowError) {
	pv := parsedVariant{
		sku:              row.Get(colSKU),
		requiresShipping: parseBool(row.Get(colRequiresShipping), true),
		taxable:          parseBool(row.Get(colTaxable), true),
		image:            row.Get(colVariantImage),
	}

	if raw := row.Get(colPrice); raw != "" {
		cents, err := ParsePriceCents(raw)
		if err != nil {
			return pv, &RowError{Row: row.Number, Field: "Variant Price", Message: fmt.Sprintf("invalid price %q", raw)}
		}
		pv.priceCents = cents
		pv.hasPrice = true
	}
	if raw := row.Get(colCompareAt); raw != "" {
		cents, err := ParsePriceCents(raw)
		if err != nil {
			return pv, &RowError{Row: row.Number, Field: "Variant Compare At Price", Message: fmt.Sprintf("invalid price %q", raw)}
		}
		pv.compareAtCents = cents
	}

	if raw := row.Get(colWeight); raw != "" {
		grams, err := ParseWeightGrams(raw, row.Get(colWeightUnit))
		if err != nil {
			return pv, &RowError{Row: row.Number, Field: "Variant Weight", Message: err.Error()}
		}
		pv.grams = grams
	} else if raw := row.Get(colGrams); raw != "" {
		grams, err := ParseWeightGrams(raw, "g")
		if err != nil {
			return pv, &RowError{Row: row.Number, Field: "Variant Grams", Message: err.Error()}
		}
		pv.grams = grams
	}

	if raw := row.Get(colInventoryQty); raw != "" {
		qty, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return pv, &RowError{Row: row.Number, Field: "Variant Inventory Qty", Message: fmt.Sprintf("invalid quantity %q", raw)}
		}
		pv.qty = qty
	}
	if row.Has(colInventoryTracker) {
		pv.tracked = row.Get(colInventoryTracker) != ""
	} else {
		pv.tracked = row.Get(colInventoryQty) != ""
	}
	return pv, nil
}

func hasVariantSignal(row Row, pv parsedVariant) bool {
	if pv.sku != "" || pv.hasPrice {
		return true
	}
	for i := 1; i <= maxOptions; i++ {
		if row.Get(optionValueKey(i)) != "" {
			return true
		}
	}
	return false
}

func (b *productBuilder) applyProductFields(row Row, opts NormalizeOptions) {
	b.hasTitle = true
	p := &b.product
	p.Title = row.Get(colTitle)
	if body := row.Get(colBody, colBodyAlt); body != "" {
		p.DescriptionHTML = strings.TrimSpace(opts.Policy.Sanitize(body))
	}
	p.Vendor = row.Get(colVendor)
	p.ProductType = row.Get(colType, colTypeAlt)
	p.Category = strings.Join(domain.SplitCategoryPath(row.Get(colCategory, colCategoryAlt, colType, colTypeAlt)), " > ")
	p.Tags = splitTags(row.Get(colTags))
	p.SEOTitle = row.Get(colSEOTitle)
	p.SEODescription = row.Get(colSEODescription)
	p.Featured = parseBool(row.Get(colFeatured), false)

	switch status := domain.ProductStatus(strings.ToLower(row.Get(colStatus))); status {
	case domain.ProductStatusActive, domain.ProductStatusDraft, domain.ProductStatusArchived:
		p.Status = status
	default:
		if raw := row.Get(colPublished); raw != "" {
			if parseBool(raw, true) {
				p.Status = domain.ProductStatusActive
			} else {
				p.Status = domain.ProductStatusDraft
			}
		}
	}
}

func (b *productBuilder) captureOptionNames(row Row) {
	var names []string
	for i := 1; i <= maxOptions; i++ {
		name := row.Get(optionNameKey(i))
		if name == "" {
			break
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return
	}
	b.optionNames = names
	if len(names) == 1 && strings.EqualFold(names[0], "Title") {
		value := row.Get(optionValueKey(1))
		b.collapsed = value == "" || strings.EqualFold(value, "Default Title")
	}
}

func (b *productBuilder) addVariant(row Row, pv parsedVariant) string {
	var values []string
	if !b.collapsed {
		var previous []string
		if n := len(b.product.Variants); n > 0 {
			previous = b.product.Variants[n-1].OptionValues
		}
		values = make([]string, len(b.optionNames))
		for i := range b.optionNames {
			v := row.Get(optionValueKey(i + 1))
			if v == "" && i < len(previous) {
				v = previous[i]
			}
			values[i] = v
		}
	}

	key := strings.ToLower(strings.Join(values, "\x1f"))
	if b.combos[key] {
		label := strings.Join(values, " / ")
		if label == "" {
			label = "Default Title"
		}
		return fmt.Sprintf("duplicate option combination %q merged into earlier variant", label)
	}
	b.combos[key] = true

	title := strings.Join(values, " / ")
	if title == "" {
		title = "Default Title"
	}
	b.product.Variants = append(b.product.Variants, domain.ProductVariant{
		ID:               b.variantID(values, pv.sku),
		SKU:              pv.sku,
		Title:            title,
		OptionValues:     values,
		PriceCents:       pv.priceCents,
		CompareAtCents:   pv.compareAtCents,
		WeightGrams:      pv.grams,
		InventoryQty:     pv.qty,
		TrackInventory:   pv.tracked,
		RequiresShipping: pv.requiresShipping,
		Taxable:          pv.taxable,
		ImageSrc:         normalizeImageURL(pv.image),
	})
	return ""
}

func (b *productBuilder) variantID(values []string, sku string) string {
	base := b.product.Handle + "-default"
	switch {
	case len(values) > 0:
		if s := Slugify(strings.Join(values, " ")); s != "" {
			base = b.product.Handle + "-" + s
		}
	case sku != "":
		if s := Slugify(sku); s != "" {
			base = b.product.Handle + "-" + s
		}
	}
	id := base
	for n := 2; b.variantIDs[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	b.variantIDs[id] = true
	return id
}

func (b *productBuilder) addImage(src, alt string, position int) {
	src = normalizeImageURL(src)
	if src == "" {
		return
	}
	if idx, ok := b.imageIndex[src]; ok {
		existing := &b.images[idx]
		if existing.alt == "" {
			existing.alt = alt
		}
		if existing.position == 0 && position > 0 {
			existing.position = position
		}
		return
	}
	b.imageIndex[src] = len(b.images)
	b.images = append(b.images, imageEntry{src: src, alt: alt, position: position, order: len(b.images)})
}

func (b *productBuilder) finish() domain.Product {
	p := b.product

	if len(p.Variants) == 0 {
		p.Variants = []domain.ProductVariant{{
			ID:               p.Handle + "-default",
			Title:            "Default Title",
			RequiresShipping: true,
			Taxable:          true,
		}}
	}

	if !b.collapsed && len(b.optionNames) > 0 {
		p.Options = make([]domain.ProductOption, len(b.optionNames))
		for i, name := range b.optionNames {
			p.Options[i] = domain.ProductOption{Name: name}
			seen := make(map[string]bool)
			for _, v := range p.Variants {
				if i >= len(v.OptionValues) {
					continue
				}
				value := v.OptionValues[i]
				if value == "" || seen[value] {
					continue
				}
				seen[value] = true
				p.Options[i].Values = append(p.Options[i].Values, value)
			}
		}
	}

	images := append([]imageEntry(nil), b.images...)
	sort.SliceStable(images, func(i, j int) bool {
		pi, pj := sortPosition(images[i].position), sortPosition(images[j].position)
		if pi != pj {
			return pi < pj
		}
		return images[i].order < images[j].order
	})
	for i, img := range images {
		p.Images = append(p.Images, domain.ProductImage{Src: img.src, Alt: img.alt, Position: i + 1})
	}
	return p
}

func sortPosition(pos int) int {
	if pos <= 0 {
		return int(^uint(0) >> 1)
	}
	return pos
}

// normalizeImageURL trims and lower-cases scheme and host. Paths and query strings are kept as-is.
func normalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

func parseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "active":
		return true
	case "false", "no", "n", "0", "draft":
		return false
	}
	return fallback
}

func parsePosition(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func optionNameKey(i int) string  { return fmt.Sprintf("option%d name", i) }
func optionValueKey(i int) string { return fmt.Sprintf("option%d value", i) }
