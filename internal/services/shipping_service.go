package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

var (
	// ErrShippingInvalidInput indicates an ad-hoc quote request was malformed.
	ErrShippingInvalidInput = errors.New("shipping service: invalid input")
	// ErrShippingUnavailable indicates the destination cannot be delivered to.
	ErrShippingUnavailable = errors.New("shipping service: destination not serviced")
)

// ShippingServiceDeps wires the shipping service.
type ShippingServiceDeps struct {
	Estimator *shipping.Estimator
	Logger    Logger
}

type shippingService struct {
	estimator *shipping.Estimator
	logger    Logger
}

var _ ShippingService = (*shippingService)(nil)

// NewShippingService constructs a ShippingService over a validated estimator.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Estimator == nil {
		return nil, errors.New("shipping service: estimator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &shippingService{estimator: deps.Estimator, logger: logger}, nil
}

// QuoteCart prices the cart's shippable items to its destination. Overweight carts return the
// pickup quote together with shipping.ErrOverweight.
func (s *shippingService) QuoteCart(ctx context.Context, cart Cart) ([]ShippingQuote, error) {
	quotes, err := s.estimator.Quote(normaliseDestination(cart.Destination), shipping.ParcelFromCart(cart))
	if err != nil {
		s.logger(ctx, "shipping.quote_failed", map[string]any{
			"cartId":   cart.ID,
			"postcode": cart.Destination.Postcode,
			"state":    cart.Destination.State,
			"error":    err.Error(),
		})
		return quotes, translateShippingError(err)
	}
	return quotes, nil
}

func (s *shippingService) Quote(ctx context.Context, req QuoteRequest) ([]ShippingQuote, error) {
	if req.WeightGrams < 0 || req.SubtotalCents < 0 {
		return nil, fmt.Errorf("%w: weight and subtotal must not be negative", ErrShippingInvalidInput)
	}
	dest := normaliseDestination(req.Destination)
	if dest.Postcode == "" && dest.State == "" {
		return nil, fmt.Errorf("%w: postcode or state is required", ErrShippingInvalidInput)
	}
	parcel := shipping.Parcel{
		Items:         []shipping.ParcelItem{{Grams: req.WeightGrams, Quantity: 1, RequiresShipping: true}},
		SubtotalCents: req.SubtotalCents,
	}
	quotes, err := s.estimator.Quote(dest, parcel)
	if err != nil {
		return quotes, translateShippingError(err)
	}
	return quotes, nil
}

func (s *shippingService) Table() *shipping.Table {
	return s.estimator.Table()
}

// translateShippingError keeps ErrOverweight visible to callers, which still get the pickup quote.
func translateShippingError(err error) error {
	switch {
	case errors.Is(err, shipping.ErrOverweight):
		return err
	case errors.Is(err, shipping.ErrUnsupportedDestination), errors.Is(err, shipping.ErrNoZone):
		return fmt.Errorf("%w: %w", ErrShippingUnavailable, err)
	}
	return err
}

func normaliseDestination(dest domain.Destination) domain.Destination {
	dest.Country = strings.ToUpper(strings.TrimSpace(dest.Country))
	if dest.Country == "" {
		dest.Country = "AU"
	}
	dest.State = strings.ToUpper(strings.TrimSpace(dest.State))
	dest.Postcode = strings.TrimSpace(dest.Postcode)
	return dest
}
