package shipping

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

var (
	ErrUnsupportedDestination = errors.New("shipping: destination not supported")
	ErrNoZone                 = errors.New("shipping: no zone matches destination")
	ErrOverweight             = errors.New("shipping: parcel exceeds maximum weight")
)

// ParcelItem is a line contributing to the parcel.
type ParcelItem struct {
	Grams            int
	Quantity         int
	RequiresShipping bool
}

// Parcel is what gets quoted.
type Parcel struct {
	Items         []ParcelItem
	SubtotalCents int64
}

// ParcelFromCart converts cart lines into a parcel.
func ParcelFromCart(cart domain.Cart) Parcel {
	parcel := Parcel{SubtotalCents: cart.Subtotal()}
	for _, item := range cart.Items {
		parcel.Items = append(parcel.Items, ParcelItem{
			Grams:            item.WeightGrams,
			Quantity:         item.Quantity,
			RequiresShipping: item.RequiresShipping,
		})
	}
	return parcel
}

// WeightGrams sums grams × quantity over items that require shipping.
func (p Parcel) WeightGrams() int {
	total := 0
	for _, item := range p.Items {
		if item.RequiresShipping && item.Quantity > 0 {
			total += item.Grams * item.Quantity
		}
	}
	return total
}

// Estimator prices parcels against a zone table.
type Estimator struct {
	table *Table
}

// NewEstimator validates the table before use.
func NewEstimator(table *Table) (*Estimator, error) {
	if table == nil {
		return nil, errors.New("shipping: zone table is required")
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{table: table}, nil
}

// Table exposes the rate card backing the estimator.
func (e *Estimator) Table() *Table {
	return e.table
}

// ZoneFor resolves the zone for a destination: postcode range first, then state, then the
// default zone.
func (e *Estimator) ZoneFor(dest domain.Destination) (*Zone, error) {
	if !domestic(dest) {
		return nil, ErrUnsupportedDestination
	}

	if postcode, err := strconv.Atoi(strings.TrimSpace(dest.Postcode)); err == nil {
		for i := range e.table.Zones {
			for _, r := range e.table.Zones[i].Postcodes {
				if r.Contains(postcode) {
					return &e.table.Zones[i], nil
				}
			}
		}
	}

	if state := strings.ToUpper(strings.TrimSpace(dest.State)); state != "" {
		for i := range e.table.Zones {
			for _, s := range e.table.Zones[i].States {
				if s == state {
					return &e.table.Zones[i], nil
				}
			}
		}
	}

	if zone, ok := e.table.zone(e.table.DefaultZone); ok {
		return zone, nil
	}
	return nil, ErrNoZone
}

// Quote returns the delivery options for a parcel in the order standard, express, pickup.
// When the parcel is over the weight limit the pickup quote is still returned alongside
// ErrOverweight.
func (e *Estimator) Quote(dest domain.Destination, parcel Parcel) ([]domain.ShippingQuote, error) {
	if !domestic(dest) {
		return nil, ErrUnsupportedDestination
	}
	grams := parcel.WeightGrams()
	if grams == 0 {
		quotes := []domain.ShippingQuote{{
			Method:      domain.ShippingMethodStandard,
			Label:       "No shipping required",
			AmountCents: 0,
			Free:        true,
		}}
		if e.table.PickupEnabled {
			quotes = append(quotes, e.pickupQuote(0))
		}
		return quotes, nil
	}

	zone, err := e.ZoneFor(dest)
	if err != nil {
		return nil, err
	}

	if e.table.MaxWeightGrams > 0 && grams > e.table.MaxWeightGrams {
		if e.table.PickupEnabled {
			return []domain.ShippingQuote{e.pickupQuote(grams)}, ErrOverweight
		}
		return nil, ErrOverweight
	}

	standard := zone.standardCost(grams)
	free := zone.FreeOverCents > 0 && parcel.SubtotalCents >= zone.FreeOverCents
	quotes := []domain.ShippingQuote{{
		Method:        domain.ShippingMethodStandard,
		Label:         "Standard delivery",
		ZoneCode:      zone.Code,
		ZoneName:      zone.Name,
		AmountCents:   standard,
		WeightGrams:   grams,
		EstimatedDays: zone.EstimatedDays,
	}}
	if free {
		quotes[0].AmountCents = 0
		quotes[0].Free = true
	}

	if zone.Express {
		express := decimal.NewFromInt(standard).Mul(decimal.NewFromFloat(e.table.ExpressMultiplier)).Ceil().IntPart()
		quotes = append(quotes, domain.ShippingQuote{
			Method:        domain.ShippingMethodExpress,
			Label:         "Express delivery",
			ZoneCode:      zone.Code,
			ZoneName:      zone.Name,
			AmountCents:   express,
			WeightGrams:   grams,
			EstimatedDays: zone.ExpressDays,
		})
	}

	if e.table.PickupEnabled {
		quotes = append(quotes, e.pickupQuote(grams))
	}
	return quotes, nil
}

// domestic reports whether dest is in Australia. A blank country means Australia.
func domestic(dest domain.Destination) bool {
	switch strings.ToUpper(strings.TrimSpace(dest.Country)) {
	case "", "AU", "AUSTRALIA":
		return true
	}
	return false
}

// Select picks the quote for method from a Quote result.
func Select(quotes []domain.ShippingQuote, method string) (domain.ShippingQuote, bool) {
	for _, q := range quotes {
		if q.Method == method {
			return q, true
		}
	}
	return domain.ShippingQuote{}, false
}

func (e *Estimator) pickupQuote(grams int) domain.ShippingQuote {
	return domain.ShippingQuote{
		Method:      domain.ShippingMethodPickup,
		Label:       e.table.PickupLabel,
		AmountCents: 0,
		WeightGrams: grams,
	}
}

// standardCost charges the base rate plus PerKgCents for every started kilogram beyond the
// included weight.
func (z *Zone) standardCost(grams int) int64 {
	cost := z.BaseCents
	if extra := grams - z.IncludedGrams; extra > 0 {
		kgs := int64((extra + 999) / 1000)
		cost += kgs * z.PerKgCents
	}
	return cost
}
