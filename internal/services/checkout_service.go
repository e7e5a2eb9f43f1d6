package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

const orderIDPlaceholder = "{ORDER_ID}"

var (
	// ErrCheckoutInvalidInput indicates the customer or address details are incomplete.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutCartNotFound indicates the cart does not exist.
	ErrCheckoutCartNotFound = errors.New("checkout: cart not found")
	// ErrCheckoutEmptyCart indicates the cart has no items.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutInsufficientStock indicates a cart line can no longer be fulfilled.
	ErrCheckoutInsufficientStock = errors.New("checkout: insufficient stock")
	// ErrCheckoutShippingUnavailable indicates the address cannot be quoted.
	ErrCheckoutShippingUnavailable = errors.New("checkout: shipping unavailable")
	// ErrCheckoutPaymentFailed indicates the payment session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutUnavailable indicates a backend failure.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// checkoutSessionManager abstracts payments.Manager for easier testing.
type checkoutSessionManager interface {
	CreateCheckoutSession(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Products    repositories.ProductRepository
	Orders      repositories.OrderRepository
	Shipping    ShippingService
	Payments    checkoutSessionManager
	Clock       func() time.Time
	Logger      Logger
	Currency    string
	GSTRate     float64
	Locale      string
	SuccessURL  string
	CancelURL   string
	IDGenerator func(time.Time) string
}

type checkoutService struct {
	carts      repositories.CartRepository
	products   repositories.ProductRepository
	orders     repositories.OrderRepository
	shipping   ShippingService
	payments   checkoutSessionManager
	now        func() time.Time
	logger     Logger
	currency   string
	gstRate    float64
	locale     string
	successURL string
	cancelURL  string
	newID      func(time.Time) string
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("checkout service: cart repository is required")
	case deps.Products == nil:
		return nil, errors.New("checkout service: product repository is required")
	case deps.Orders == nil:
		return nil, errors.New("checkout service: order repository is required")
	case deps.Shipping == nil:
		return nil, errors.New("checkout service: shipping service is required")
	case deps.Payments == nil:
		return nil, errors.New("checkout service: payment manager is required")
	case strings.TrimSpace(deps.SuccessURL) == "" || strings.TrimSpace(deps.CancelURL) == "":
		return nil, errors.New("checkout service: success and cancel urls are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "AUD"
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func(t time.Time) string { return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String() }
	}
	return &checkoutService{
		carts:      deps.Carts,
		products:   deps.Products,
		orders:     deps.Orders,
		shipping:   deps.Shipping,
		payments:   deps.Payments,
		now:        func() time.Time { return clock().UTC() },
		logger:     logger,
		currency:   currency,
		gstRate:    deps.GSTRate,
		locale:     deps.Locale,
		successURL: deps.SuccessURL,
		cancelURL:  deps.CancelURL,
		newID:      newID,
	}, nil
}

// StartCheckout validates the cart against current stock and prices, records a pending order, and
// opens a hosted payment session. When the gateway fails the order is cancelled.
func (s *checkoutService) StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutResult, error) {
	customer, address, err := validateCheckoutDetails(cmd.Customer, cmd.Address)
	if err != nil {
		return CheckoutResult{}, err
	}

	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		return CheckoutResult{}, ErrCheckoutCartNotFound
	}
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return CheckoutResult{}, translateRepoError(err, ErrCheckoutCartNotFound, nil, ErrCheckoutUnavailable)
	}
	if len(cart.Items) == 0 {
		return CheckoutResult{}, ErrCheckoutEmptyCart
	}

	items, err := s.priceItems(ctx, cart)
	if err != nil {
		return CheckoutResult{}, err
	}
	cart.Items = items
	cart.Destination = normaliseDestination(address.Destination())

	quotes, err := s.shipping.QuoteCart(ctx, cart)
	quote, ok := selectQuote(quotes, cart.ShippingMethod)
	if !ok {
		if err == nil {
			err = errors.New("no delivery options")
		}
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrCheckoutShippingUnavailable, err)
	}
	if cart.ShippingMethod != "" && quote.Method != cart.ShippingMethod {
		s.logger(ctx, "checkout.shipping_method_fallback", map[string]any{
			"cartId":    cart.ID,
			"requested": cart.ShippingMethod,
			"used":      quote.Method,
		})
	}

	now := s.now()
	order := s.buildOrder(now, cart, customer, address, quote)
	order.Notes = strings.TrimSpace(cmd.Notes)
	order, err = s.orders.Save(ctx, order)
	if err != nil {
		return CheckoutResult{}, translateRepoError(err, nil, nil, ErrCheckoutUnavailable)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.PaymentContext{Currency: order.Currency}, s.sessionRequest(order))
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		cancelledAt := s.now()
		order.Status = domain.OrderStatusCancelled
		order.CancelledAt = &cancelledAt
		order.Payment.Status = string(payments.StatusFailed)
		order.Payment.SessionError = err.Error()
		if _, saveErr := s.orders.Save(ctx, order); saveErr != nil {
			s.logger(ctx, "checkout.cancel_persist_failed", map[string]any{"orderId": order.ID, "error": saveErr.Error()})
		}
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrCheckoutPaymentFailed, err)
	}

	order.Payment.Provider = session.Provider
	order.Payment.SessionID = session.ID
	order.Payment.IntentID = session.IntentID
	order.Payment.RedirectURL = session.RedirectURL
	order, err = s.orders.Save(ctx, order)
	if err != nil {
		return CheckoutResult{}, translateRepoError(err, nil, nil, ErrCheckoutUnavailable)
	}

	s.logger(ctx, "checkout.started", map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.Number,
		"cartId":      cart.ID,
		"sessionId":   session.ID,
		"totalCents":  order.Totals.TotalCents,
	})
	return CheckoutResult{Order: order, RedirectURL: session.RedirectURL}, nil
}

// priceItems re-reads every line from the catalog so the order uses current prices and stock.
func (s *checkoutService) priceItems(ctx context.Context, cart Cart) ([]CartItem, error) {
	items := make([]CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			if isRepoNotFound(err) {
				return nil, fmt.Errorf("%w: %s is no longer available", ErrCheckoutInsufficientStock, item.Title)
			}
			return nil, translateRepoError(err, nil, nil, ErrCheckoutUnavailable)
		}
		variant, ok := product.Variant(item.VariantID)
		if !ok || !product.Visible() {
			return nil, fmt.Errorf("%w: %s is no longer available", ErrCheckoutInsufficientStock, item.Title)
		}
		if !variant.Available(item.Quantity) {
			return nil, fmt.Errorf("%w: only %d of %s left", ErrCheckoutInsufficientStock, variant.InventoryQty, item.Title)
		}
		items = append(items, snapshotItem(item, product, variant, item.Quantity))
	}
	return items, nil
}

func (s *checkoutService) buildOrder(now time.Time, cart Cart, customer Customer, address Address, quote ShippingQuote) Order {
	id := s.newID(now)
	order := Order{
		ID:              id,
		Number:          orderNumber(now, id),
		CartID:          cart.ID,
		Status:          domain.OrderStatusPendingPayment,
		Customer:        customer,
		ShippingAddress: address,
		Shipping:        quote,
		Currency:        s.currency,
		Payment:         domain.PaymentInfo{Status: string(payments.StatusPending)},
		Ledger:          domain.LedgerInfo{Status: domain.LedgerStatusPending},
		CreatedAt:       now,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Title:          item.Title,
			VariantTitle:   item.VariantTitle,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.LineTotal(),
			WeightGrams:    item.WeightGrams,
		})
	}
	shippingQuote := quote
	order.Totals = CartTotals{
		SubtotalCents: cart.Subtotal(),
		ShippingCents: quote.AmountCents,
		WeightGrams:   cart.ShippableWeight(),
		ItemCount:     cart.ItemCount(),
		Shipping:      &shippingQuote,
	}
	order.Totals.TotalCents = order.Totals.SubtotalCents + order.Totals.ShippingCents
	order.Totals.TaxCents = catalog.IncludedTax(order.Totals.TotalCents, s.gstRate)
	order.Payment.AmountCents = order.Totals.TotalCents
	return order
}

func (s *checkoutService) sessionRequest(order Order) payments.CheckoutSessionRequest {
	req := payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		Amount:         order.Totals.TotalCents,
		Currency:       order.Currency,
		CustomerEmail:  order.Customer.Email,
		SuccessURL:     strings.ReplaceAll(s.successURL, orderIDPlaceholder, order.ID),
		CancelURL:      strings.ReplaceAll(s.cancelURL, orderIDPlaceholder, order.ID),
		Locale:         s.locale,
		IdempotencyKey: "checkout-" + order.ID,
		Metadata: map[string]string{
			"orderId":     order.ID,
			"orderNumber": order.Number,
			"cartId":      order.CartID,
		},
	}
	for _, item := range order.Items {
		name := item.Title
		if item.VariantTitle != "" {
			name += " - " + item.VariantTitle
		}
		req.Items = append(req.Items, payments.CheckoutLineItem{
			Name:     name,
			SKU:      item.SKU,
			Quantity: int64(item.Quantity),
			Amount:   item.UnitPriceCents,
			Currency: order.Currency,
		})
	}
	if order.Shipping.AmountCents > 0 {
		req.Items = append(req.Items, payments.CheckoutLineItem{
			Name:     "Shipping: " + order.Shipping.Label,
			Quantity: 1,
			Amount:   order.Shipping.AmountCents,
			Currency: order.Currency,
		})
	}
	return req
}

// orderNumber renders FAB-YYMMDD-XXXX using the random tail of the order's ULID.
func orderNumber(now time.Time, id string) string {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("FAB-%s-%s", now.Format("060102"), strings.ToUpper(suffix))
}

func validateCheckoutDetails(customer Customer, address Address) (Customer, Address, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.Name == "" {
		return Customer{}, Address{}, fmt.Errorf("%w: name is required", ErrCheckoutInvalidInput)
	}
	if parsed, err := mail.ParseAddress(customer.Email); err != nil || parsed.Address != customer.Email {
		return Customer{}, Address{}, fmt.Errorf("%w: a valid email is required", ErrCheckoutInvalidInput)
	}

	address.Name = strings.TrimSpace(address.Name)
	if address.Name == "" {
		address.Name = customer.Name
	}
	address.Line1 = strings.TrimSpace(address.Line1)
	address.Line2 = strings.TrimSpace(address.Line2)
	address.Suburb = strings.TrimSpace(address.Suburb)
	address.State = strings.ToUpper(strings.TrimSpace(address.State))
	address.Postcode = strings.TrimSpace(address.Postcode)
	address.Country = strings.ToUpper(strings.TrimSpace(address.Country))
	if address.Country == "" {
		address.Country = "AU"
	}
	if address.Phone == "" {
		address.Phone = customer.Phone
	}
	var missing []string
	for field, value := range map[string]string{"line1": address.Line1, "suburb": address.Suburb, "state": address.State, "postcode": address.Postcode} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Customer{}, Address{}, fmt.Errorf("%w: address is missing %s", ErrCheckoutInvalidInput, strings.Join(missing, ", "))
	}
	return customer, address, nil
}
