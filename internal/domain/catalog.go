package domain

import (
	"strings"
	"time"
)

// ProductStatus controls storefront visibility.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// Product is a sellable catalog item. Its ID is the URL handle.
type Product struct {
	ID              string           `json:"id"`
	Handle          string           `json:"handle"`
	Title           string           `json:"title"`
	DescriptionHTML string           `json:"descriptionHtml,omitempty"`
	Vendor          string           `json:"vendor,omitempty"`
	ProductType     string           `json:"productType,omitempty"`
	Category        string           `json:"category,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Options         []ProductOption  `json:"options,omitempty"`
	Variants        []ProductVariant `json:"variants"`
	Images          []ProductImage   `json:"images,omitempty"`
	Status          ProductStatus    `json:"status"`
	SEOTitle        string           `json:"seoTitle,omitempty"`
	SEODescription  string           `json:"seoDescription,omitempty"`
	Featured        bool             `json:"featured,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ProductOption names a variant axis (e.g. Size) and its values in display order.
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ProductVariant is a purchasable combination of option values.
type ProductVariant struct {
	ID               string   `json:"id"`
	SKU              string   `json:"sku,omitempty"`
	Title            string   `json:"title"`
	OptionValues     []string `json:"optionValues,omitempty"`
	PriceCents       int64    `json:"priceCents"`
	CompareAtCents   int64    `json:"compareAtCents,omitempty"`
	WeightGrams      int      `json:"weightGrams"`
	InventoryQty     int      `json:"inventoryQty"`
	TrackInventory   bool     `json:"trackInventory"`
	RequiresShipping bool     `json:"requiresShipping"`
	Taxable          bool     `json:"taxable"`
	ImageSrc         string   `json:"imageSrc,omitempty"`
}

// Available reports whether qty units can be sold.
func (v ProductVariant) Available(qty int) bool {
	if !v.TrackInventory {
		return true
	}
	return v.InventoryQty >= qty
}

// ProductImage is an image reference on the CDN.
type ProductImage struct {
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Position int    `json:"position"`
}

// Variant finds a variant by id.
func (p Product) Variant(id string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// DefaultVariant returns the first variant, which storefront pages preselect.
func (p Product) DefaultVariant() (ProductVariant, bool) {
	if len(p.Variants) == 0 {
		return ProductVariant{}, false
	}
	return p.Variants[0], true
}

// PriceRange returns the lowest and highest variant price.
func (p Product) PriceRange() (minCents, maxCents int64) {
	for i, v := range p.Variants {
		if i == 0 || v.PriceCents < minCents {
			minCents = v.PriceCents
		}
		if v.PriceCents > maxCents {
			maxCents = v.PriceCents
		}
	}
	return minCents, maxCents
}

// InStock reports whether any variant can be purchased.
func (p Product) InStock() bool {
	for _, v := range p.Variants {
		if v.Available(1) {
			return true
		}
	}
	return false
}

// Visible reports whether the storefront may show the product.
func (p Product) Visible() bool {
	return p.Status == ProductStatusActive
}

// CoverImage returns the first image, if any.
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// CategoryPath splits Category into trimmed segments. Both ">" and "/" separate levels.
func (p Product) CategoryPath() []string {
	return SplitCategoryPath(p.Category)
}

// SplitCategoryPath splits "Gates > Hardware / Hinges" into its trimmed non-empty segments.
func SplitCategoryPath(path string) []string {
	fields := strings.FieldsFunc(path, func(r rune) bool { return r == '>' || r == '/' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
