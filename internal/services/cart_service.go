package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartNotFound indicates the requested cart or cart item does not exist.
	ErrCartNotFound = errors.New("cart service: not found")
	// ErrCartProductUnavailable indicates the product or variant cannot be purchased.
	ErrCartProductUnavailable = errors.New("cart service: product unavailable")
	// ErrCartInsufficientStock indicates the variant has no stock left for the requested quantity.
	ErrCartInsufficientStock = errors.New("cart service: insufficient stock")
	// ErrCartShippingUnavailable indicates the destination cannot be delivered to.
	ErrCartShippingUnavailable = errors.New("cart service: shipping unavailable")
	// ErrCartUnavailable indicates a backend failure.
	ErrCartUnavailable = errors.New("cart service: unavailable")
)

const defaultMaxLineQuantity = 99

// CartServiceDeps wires the repository, catalog, and shipping dependencies for cart operations.
type CartServiceDeps struct {
	Carts           repositories.CartRepository
	Products        repositories.ProductRepository
	Shipping        ShippingService
	Logger          Logger
	DefaultCurrency string
	GSTRate         float64
	MaxLineQuantity int
	IDGenerator     func() string
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	shipping ShippingService
	logger   Logger
	currency string
	gstRate  float64
	maxQty   int
	newID    func() string
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	if deps.Shipping == nil {
		return nil, errors.New("cart service: shipping service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "AUD"
	}
	maxQty := deps.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = defaultMaxLineQuantity
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		shipping: deps.Shipping,
		logger:   logger,
		currency: currency,
		gstRate:  deps.GSTRate,
		maxQty:   maxQty,
		newID:    idGen,
	}, nil
}

// GetOrCreate loads the cart, creating a fresh one when the id is empty or unknown.
func (s *cartService) GetOrCreate(ctx context.Context, cartID string) (CartView, error) {
	cart, err := s.loadOrCreate(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart), nil
}

func (s *cartService) Get(ctx context.Context, cartID string) (CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart), nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error) {
	if cmd.Quantity == 0 {
		cmd.Quantity = 1
	}
	if cmd.Quantity < 0 || strings.TrimSpace(cmd.ProductID) == "" {
		return CartView{}, ErrCartInvalidInput
	}

	product, variant, err := s.purchasable(ctx, cmd.ProductID, cmd.VariantID)
	if err != nil {
		return CartView{}, err
	}
	cart, err := s.loadOrCreate(ctx, cmd.CartID)
	if err != nil {
		return CartView{}, err
	}

	idx := -1
	for i, item := range cart.Items {
		if item.ProductID == product.ID && item.VariantID == variant.ID {
			idx = i
			break
		}
	}
	existing := 0
	if idx >= 0 {
		existing = cart.Items[idx].Quantity
	}
	qty, err := s.allowedQuantity(variant, existing, existing+cmd.Quantity)
	if err != nil {
		return CartView{}, err
	}

	if idx >= 0 {
		cart.Items[idx] = snapshotItem(cart.Items[idx], product, variant, qty)
	} else {
		cart.Items = append(cart.Items, snapshotItem(domain.CartItem{ID: s.newID()}, product, variant, qty))
	}
	saved, err := s.save(ctx, cart)
	if err != nil {
		return CartView{}, err
	}
	s.logger(ctx, "cart.item_added", map[string]any{
		"cartId":    saved.ID,
		"productId": product.ID,
		"variantId": variant.ID,
		"quantity":  qty,
	})
	return s.view(ctx, saved), nil
}

// UpdateItemQuantity sets a line's quantity; zero removes the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (CartView, error) {
	if quantity < 0 {
		return CartView{}, ErrCartInvalidInput
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, cartID, itemID)
	}
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	idx := itemIndex(cart, itemID)
	if idx < 0 {
		return CartView{}, fmt.Errorf("%w: item %s", ErrCartNotFound, itemID)
	}
	item := cart.Items[idx]
	product, variant, err := s.purchasable(ctx, item.ProductID, item.VariantID)
	if err != nil {
		return CartView{}, err
	}
	qty, err := s.allowedQuantity(variant, 0, quantity)
	if err != nil {
		return CartView{}, err
	}
	cart.Items[idx] = snapshotItem(item, product, variant, qty)
	saved, err := s.save(ctx, cart)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, saved), nil
}

func (s *cartService) RemoveItem(ctx context.Context, cartID, itemID string) (CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	idx := itemIndex(cart, itemID)
	if idx < 0 {
		return CartView{}, fmt.Errorf("%w: item %s", ErrCartNotFound, itemID)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	saved, err := s.save(ctx, cart)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, saved), nil
}

// Clear deletes the cart. Clearing a cart that no longer exists is not an error.
func (s *cartService) Clear(ctx context.Context, cartID string) error {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil
	}
	if err := s.carts.Delete(ctx, cartID); err != nil && !isRepoNotFound(err) {
		return translateRepoError(err, nil, nil, ErrCartUnavailable)
	}
	return nil
}

// SetDestination stores the delivery destination after checking it can be quoted.
func (s *cartService) SetDestination(ctx context.Context, cartID string, dest Destination) (CartView, error) {
	dest = normaliseDestination(dest)
	if dest.Postcode == "" && dest.State == "" {
		return CartView{}, fmt.Errorf("%w: postcode or state is required", ErrCartInvalidInput)
	}
	if dest.Country != "AU" && dest.Country != "AUSTRALIA" {
		return CartView{}, fmt.Errorf("%w: only Australian addresses are serviced", ErrCartShippingUnavailable)
	}
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	cart.Destination = dest
	if _, err := s.shipping.QuoteCart(ctx, cart); errors.Is(err, ErrShippingUnavailable) {
		return CartView{}, fmt.Errorf("%w: %w", ErrCartShippingUnavailable, err)
	}
	saved, err := s.save(ctx, cart)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, saved), nil
}

func (s *cartService) SelectShippingMethod(ctx context.Context, cartID, method string) (CartView, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	if cart.Destination.IsZero() {
		return CartView{}, fmt.Errorf("%w: set a destination first", ErrCartInvalidInput)
	}
	quotes, _ := s.shipping.QuoteCart(ctx, cart)
	if _, ok := shipping.Select(quotes, method); !ok {
		return CartView{}, fmt.Errorf("%w: shipping method %q is not available", ErrCartInvalidInput, method)
	}
	cart.ShippingMethod = method
	saved, err := s.save(ctx, cart)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, saved), nil
}

// view prices the cart. Shipping is included once a destination is known, or when nothing in the
// cart needs shipping.
func (s *cartService) view(ctx context.Context, cart Cart) CartView {
	v := CartView{
		Cart: cart,
		Totals: CartTotals{
			SubtotalCents: cart.Subtotal(),
			WeightGrams:   cart.ShippableWeight(),
			ItemCount:     cart.ItemCount(),
		},
	}
	if len(cart.Items) > 0 && (!cart.Destination.IsZero() || v.Totals.WeightGrams == 0) {
		quotes, err := s.shipping.QuoteCart(ctx, cart)
		if err != nil {
			v.ShippingError = err.Error()
		}
		v.Quotes = quotes
		if quote, ok := selectQuote(quotes, cart.ShippingMethod); ok {
			v.Totals.Shipping = &quote
			v.Totals.ShippingCents = quote.AmountCents
		}
	}
	v.Totals.TotalCents = v.Totals.SubtotalCents + v.Totals.ShippingCents
	v.Totals.TaxCents = catalog.IncludedTax(v.Totals.TotalCents, s.gstRate)
	return v
}

// selectQuote prefers the chosen method, then standard, then whatever is offered.
func selectQuote(quotes []ShippingQuote, method string) (ShippingQuote, bool) {
	if method != "" {
		if q, ok := shipping.Select(quotes, method); ok {
			return q, true
		}
	}
	if q, ok := shipping.Select(quotes, domain.ShippingMethodStandard); ok {
		return q, true
	}
	if len(quotes) > 0 {
		return quotes[0], true
	}
	return ShippingQuote{}, false
}

func (s *cartService) purchasable(ctx context.Context, productID, variantID string) (Product, ProductVariant, error) {
	product, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return Product{}, ProductVariant{}, translateRepoError(err, ErrCartProductUnavailable, nil, ErrCartUnavailable)
	}
	if !product.Visible() {
		return Product{}, ProductVariant{}, ErrCartProductUnavailable
	}
	var (
		variant ProductVariant
		ok      bool
	)
	if strings.TrimSpace(variantID) == "" {
		variant, ok = product.DefaultVariant()
	} else {
		variant, ok = product.Variant(strings.TrimSpace(variantID))
	}
	if !ok {
		return Product{}, ProductVariant{}, fmt.Errorf("%w: variant %s", ErrCartProductUnavailable, variantID)
	}
	return product, variant, nil
}

// allowedQuantity caps requested at available stock and the per-line limit. It fails only when
// nothing beyond what the cart already holds can be sold.
func (s *cartService) allowedQuantity(variant ProductVariant, existing, requested int) (int, error) {
	qty := min(requested, s.maxQty)
	if !variant.TrackInventory {
		return qty, nil
	}
	if variant.InventoryQty <= 0 || (existing > 0 && variant.InventoryQty <= existing) {
		return 0, ErrCartInsufficientStock
	}
	return min(qty, variant.InventoryQty), nil
}

func snapshotItem(item domain.CartItem, product Product, variant ProductVariant, qty int) domain.CartItem {
	item.ProductID = product.ID
	item.VariantID = variant.ID
	item.Title = product.Title
	item.VariantTitle = variant.Title
	if item.VariantTitle == "Default Title" {
		item.VariantTitle = ""
	}
	item.SKU = variant.SKU
	item.ImageURL = variant.ImageSrc
	if item.ImageURL == "" {
		item.ImageURL = product.CoverImage()
	}
	item.Quantity = qty
	item.UnitPriceCents = variant.PriceCents
	item.WeightGrams = variant.WeightGrams
	item.RequiresShipping = variant.RequiresShipping
	return item
}

func itemIndex(cart Cart, itemID string) int {
	itemID = strings.TrimSpace(itemID)
	for i, item := range cart.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func (s *cartService) load(ctx context.Context, cartID string) (Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return Cart{}, ErrCartNotFound
	}
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return Cart{}, translateRepoError(err, ErrCartNotFound, nil, ErrCartUnavailable)
	}
	return cart, nil
}

func (s *cartService) loadOrCreate(ctx context.Context, cartID string) (Cart, error) {
	cart, err := s.load(ctx, cartID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return Cart{}, err
	}
	cart = Cart{ID: s.newID(), Currency: s.currency, Items: []CartItem{}}
	saved, err := s.save(ctx, cart)
	if err != nil {
		return Cart{}, err
	}
	s.logger(ctx, "cart.created", map[string]any{"cartId": saved.ID})
	return saved, nil
}

func (s *cartService) save(ctx context.Context, cart Cart) (Cart, error) {
	saved, err := s.carts.Save(ctx, cart)
	if err != nil {
		return Cart{}, translateRepoError(err, nil, nil, ErrCartUnavailable)
	}
	return saved, nil
}
