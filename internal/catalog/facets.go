package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

// SortKey orders product listings.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortTitle     SortKey = "title"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNewest    SortKey = "newest"
)

// ParseSortKey falls back to SortFeatured for unknown values.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortTitle, SortPriceAsc, SortPriceDesc, SortNewest:
		return key
	}
	return SortFeatured
}

// Filter narrows product listings. Zero values match everything.
type Filter struct {
	CategoryPath  string
	Vendor        string
	ProductType   string
	Tags          []string
	Options       map[string]string
	MinPriceCents int64
	MaxPriceCents int64
	InStockOnly   bool
	Query         string
	// IncludeHidden keeps draft and archived products, for admin listings.
	IncludeHidden bool
}

// Matches reports whether p satisfies every criterion of f.
func (f Filter) Matches(p domain.Product) bool {
	if !f.IncludeHidden && !p.Visible() {
		return false
	}
	if path := strings.Trim(strings.ToLower(f.CategoryPath), "/"); path != "" {
		own := CategorySlugPath(p)
		if own != path && !strings.HasPrefix(own, path+"/") {
			return false
		}
	}
	if f.Vendor != "" && !strings.EqualFold(p.Vendor, f.Vendor) {
		return false
	}
	if f.ProductType != "" && !strings.EqualFold(p.ProductType, f.ProductType) {
		return false
	}
	for _, tag := range f.Tags {
		if !containsFold(p.Tags, tag) {
			return false
		}
	}
	if f.InStockOnly && !p.InStock() {
		return false
	}
	if !f.matchesVariants(p) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" && !matchesQuery(p, q) {
		return false
	}
	return true
}

// matchesVariants requires a single variant to satisfy the option and price criteria together.
func (f Filter) matchesVariants(p domain.Product) bool {
	if len(f.Options) == 0 && f.MinPriceCents == 0 && f.MaxPriceCents == 0 {
		return true
	}
	for _, v := range p.Variants {
		if f.MinPriceCents > 0 && v.PriceCents < f.MinPriceCents {
			continue
		}
		if f.MaxPriceCents > 0 && v.PriceCents > f.MaxPriceCents {
			continue
		}
		if variantHasOptions(p, v, f.Options) {
			return true
		}
	}
	return false
}

func variantHasOptions(p domain.Product, v domain.ProductVariant, want map[string]string) bool {
	for name, value := range want {
		idx := optionIndex(p, name)
		if idx < 0 || idx >= len(v.OptionValues) || !strings.EqualFold(v.OptionValues[idx], value) {
			return false
		}
	}
	return true
}

func optionIndex(p domain.Product, name string) int {
	for i, opt := range p.Options {
		if strings.EqualFold(opt.Name, name) {
			return i
		}
	}
	return -1
}

func matchesQuery(p domain.Product, q string) bool {
	q = strings.ToLower(q)
	fields := []string{p.Title, p.Vendor, p.ProductType, p.Category}
	fields = append(fields, p.Tags...)
	for _, v := range p.Variants {
		fields = append(fields, v.SKU)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// Apply returns the products matching f, sorted by key.
func Apply(products []domain.Product, f Filter, key SortKey) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	SortProducts(out, key)
	return out
}

// SortProducts sorts in place. Ties fall back to title then handle for stable pages.
func SortProducts(products []domain.Product, key SortKey) {
	byTitle := func(a, b domain.Product) bool {
		ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if ta != tb {
			return ta < tb
		}
		return a.Handle < b.Handle
	}
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch key {
		case SortPriceAsc, SortPriceDesc:
			pa, _ := a.PriceRange()
			pb, _ := b.PriceRange()
			if pa != pb {
				if key == SortPriceAsc {
					return pa < pb
				}
				return pa > pb
			}
		case SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case SortFeatured:
			if a.Featured != b.Featured {
				return a.Featured
			}
		}
		return byTitle(a, b)
	})
}

// FacetValue is one selectable value with its match count.
type FacetValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Facets summarises a product set for faceted navigation.
type Facets struct {
	Vendors       []FacetValue            `json:"vendors"`
	Types         []FacetValue            `json:"types"`
	Tags          []FacetValue            `json:"tags"`
	Options       map[string][]FacetValue `json:"options"`
	MinPriceCents int64                   `json:"minPriceCents"`
	MaxPriceCents int64                   `json:"maxPriceCents"`
	Total         int                     `json:"total"`
}

type facetCounter struct {
	counts map[string]*FacetValue
	order  []string
}

func newFacetCounter() *facetCounter {
	return &facetCounter{counts: make(map[string]*FacetValue)}
}

func (c *facetCounter) add(value string, label func(string) string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key := strings.ToLower(value)
	if fv, ok := c.counts[key]; ok {
		fv.Count++
		return
	}
	c.counts[key] = &FacetValue{Value: value, Label: label(value), Count: 1}
	c.order = append(c.order, key)
}

func (c *facetCounter) values() []FacetValue {
	out := make([]FacetValue, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.counts[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out
}

// ComputeFacets counts vendors, types, tags and option values over products. Option values count
// products, not variants.
func ComputeFacets(products []domain.Product) Facets {
	title := cases.Title(language.English)
	asTitle := func(v string) string { return title.String(v) }
	keep := func(v string) string { return v }

	vendors, types, tags := newFacetCounter(), newFacetCounter(), newFacetCounter()
	options := make(map[string]*facetCounter)
	var optionOrder []string

	facets := Facets{Total: len(products), Options: make(map[string][]FacetValue)}
	for i, p := range products {
		vendors.add(p.Vendor, keep)
		types.add(p.ProductType, keep)
		for _, tag := range p.Tags {
			tags.add(tag, asTitle)
		}
		for idx, opt := range p.Options {
			name := opt.Name
			counter, ok := options[name]
			if !ok {
				counter = newFacetCounter()
				options[name] = counter
				optionOrder = append(optionOrder, name)
			}
			seen := make(map[string]bool)
			for _, v := range p.Variants {
				if idx >= len(v.OptionValues) {
					continue
				}
				value := v.OptionValues[idx]
				if key := strings.ToLower(value); !seen[key] {
					seen[key] = true
					counter.add(value, keep)
				}
			}
		}

		lo, hi := p.PriceRange()
		if i == 0 || lo < facets.MinPriceCents {
			facets.MinPriceCents = lo
		}
		if hi > facets.MaxPriceCents {
			facets.MaxPriceCents = hi
		}
	}

	facets.Vendors = vendors.values()
	facets.Types = types.values()
	facets.Tags = tags.values()
	for _, name := range optionOrder {
		facets.Options[name] = options[name].values()
	}
	return facets
}
