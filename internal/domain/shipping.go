package domain

// Shipping methods offered at checkout.
const (
	ShippingMethodStandard = "standard"
	ShippingMethodExpress  = "express"
	ShippingMethodPickup   = "pickup"
)

// Destination identifies where an order ships.
type Destination struct {
	Country  string `json:"country,omitempty"`
	State    string `json:"state,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// IsZero reports whether no destination has been provided.
func (d Destination) IsZero() bool {
	return d.Country == "" && d.State == "" && d.Postcode == ""
}

// ShippingQuote is one priced delivery option.
type ShippingQuote struct {
	Method        string `json:"method"`
	Label         string `json:"label"`
	ZoneCode      string `json:"zoneCode,omitempty"`
	ZoneName      string `json:"zoneName,omitempty"`
	AmountCents   int64  `json:"amountCents"`
	WeightGrams   int    `json:"weightGrams"`
	Free          bool   `json:"free,omitempty"`
	EstimatedDays string `json:"estimatedDays,omitempty"`
}
