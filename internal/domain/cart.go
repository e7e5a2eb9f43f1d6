package domain

import "time"

// Cart is an anonymous storefront basket keyed by a cookie or header identifier.
type Cart struct {
	ID             string      `json:"id"`
	Items          []CartItem  `json:"items"`
	Currency       string      `json:"currency"`
	Destination    Destination `json:"destination,omitempty"`
	ShippingMethod string      `json:"shippingMethod,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// CartItem is a single variant line in the cart. Price and weight are snapshotted when added and
// refreshed when the quantity changes.
type CartItem struct {
	ID               string `json:"id"`
	ProductID        string `json:"productId"`
	VariantID        string `json:"variantId"`
	Title            string `json:"title"`
	VariantTitle     string `json:"variantTitle,omitempty"`
	SKU              string `json:"sku,omitempty"`
	ImageURL         string `json:"imageUrl,omitempty"`
	Quantity         int    `json:"quantity"`
	UnitPriceCents   int64  `json:"unitPriceCents"`
	WeightGrams      int    `json:"weightGrams"`
	RequiresShipping bool   `json:"requiresShipping"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// CartTotals summarises the cart in minor units. Prices are tax inclusive; TaxCents is the GST
// component contained in TotalCents.
type CartTotals struct {
	SubtotalCents int64          `json:"subtotalCents"`
	ShippingCents int64          `json:"shippingCents"`
	TaxCents      int64          `json:"taxCents"`
	TotalCents    int64          `json:"totalCents"`
	WeightGrams   int            `json:"weightGrams"`
	ItemCount     int            `json:"itemCount"`
	Shipping      *ShippingQuote `json:"shipping,omitempty"`
}

// ItemCount sums quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums line totals.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

// ShippableWeight sums the weight of lines that require shipping.
func (c Cart) ShippableWeight() int {
	grams := 0
	for _, item := range c.Items {
		if item.RequiresShipping {
			grams += item.WeightGrams * item.Quantity
		}
	}
	return grams
}
