package services

import (
	"context"
	"io"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Product            = domain.Product
	ProductVariant     = domain.ProductVariant
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartTotals         = domain.CartTotals
	Destination        = domain.Destination
	ShippingQuote      = domain.ShippingQuote
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	Customer           = domain.Customer
	Address            = domain.Address
	GalleryItem        = domain.GalleryItem
	Service            = domain.Service
	BlogPost           = domain.BlogPost
	ContactSubmission  = domain.ContactSubmission
	ContactStatus      = domain.ContactStatus
	SystemHealthReport = domain.SystemHealthReport
)

// Logger is the structured event sink services log through.
type Logger func(ctx context.Context, event string, fields map[string]any)

func nopLogger(context.Context, string, map[string]any) {}

// CatalogService serves product browsing and the admin product editor.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error)
	GetProduct(ctx context.Context, handle string) (Product, error)
	Featured(ctx context.Context, limit int) ([]Product, error)
	Categories(ctx context.Context) (*catalog.CategoryTree, error)
	Facets(ctx context.Context, filter catalog.Filter) (catalog.Facets, error)

	AdminListProducts(ctx context.Context, query ProductQuery) (ProductPage, error)
	AdminGetProduct(ctx context.Context, handle string) (Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, handle string, input ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, handle string) error
	AdjustInventory(ctx context.Context, cmd InventoryAdjustment) (Product, error)
	DecrementStock(ctx context.Context, lines []StockLine) error
}

// ProductQuery combines faceted filters, sort order, and paging.
type ProductQuery struct {
	Filter     catalog.Filter
	Sort       catalog.SortKey
	Pagination Pagination
}

// ProductPage is one page of products plus the facets of the whole filtered set.
type ProductPage struct {
	Items         []Product      `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
	Total         int            `json:"total"`
	Facets        catalog.Facets `json:"facets"`
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Handle          string                  `json:"handle"`
	Title           string                  `json:"title"`
	DescriptionHTML string                  `json:"descriptionHtml"`
	Vendor          string                  `json:"vendor"`
	ProductType     string                  `json:"productType"`
	Category        string                  `json:"category"`
	Tags            []string                `json:"tags"`
	Options         []domain.ProductOption  `json:"options"`
	Variants        []domain.ProductVariant `json:"variants"`
	Images          []domain.ProductImage   `json:"images"`
	Status          domain.ProductStatus    `json:"status"`
	SEOTitle        string                  `json:"seoTitle"`
	SEODescription  string                  `json:"seoDescription"`
	Featured        bool                    `json:"featured"`
}

// InventoryAdjustment changes a variant's stock. Set replaces the quantity; otherwise Delta is added.
type InventoryAdjustment struct {
	Handle    string `json:"-"`
	VariantID string `json:"variantId"`
	Delta     int    `json:"delta"`
	Set       *int   `json:"set,omitempty"`
}

// StockLine is one purchased variant quantity.
type StockLine struct {
	ProductID string
	VariantID string
	Quantity  int
}

// ImportService loads catalog spreadsheets.
type ImportService interface {
	Import(ctx context.Context, cmd ImportCommand) (ImportSummary, error)
}

// ImportCommand describes one spreadsheet import.
type ImportCommand struct {
	Reader         io.Reader
	Format         catalog.Format
	Strict         bool
	DryRun         bool
	Replace        bool
	ArchiveMissing bool
}

// ImportSummary reports what an import did or, for dry runs, would do.
type ImportSummary struct {
	RowsRead int                `json:"rowsRead"`
	Created  []string           `json:"created"`
	Updated  []string           `json:"updated"`
	Archived []string           `json:"archived,omitempty"`
	Skipped  int                `json:"skipped"`
	Warnings []catalog.Warning  `json:"warnings,omitempty"`
	Errors   []catalog.RowError `json:"errors,omitempty"`
	DryRun   bool               `json:"dryRun"`
	Products []Product          `json:"-"`
}

// ShippingService quotes delivery for carts and ad-hoc parcels.
type ShippingService interface {
	QuoteCart(ctx context.Context, cart Cart) ([]ShippingQuote, error)
	Quote(ctx context.Context, req QuoteRequest) ([]ShippingQuote, error)
	Table() *shipping.Table
}

// QuoteRequest is an ad-hoc quote without a cart.
type QuoteRequest struct {
	Destination   Destination `json:"destination"`
	WeightGrams   int         `json:"weightGrams"`
	SubtotalCents int64       `json:"subtotalCents"`
}

// CartService manages anonymous carts and their shipping selection.
type CartService interface {
	GetOrCreate(ctx context.Context, cartID string) (CartView, error)
	Get(ctx context.Context, cartID string) (CartView, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (CartView, error)
	RemoveItem(ctx context.Context, cartID, itemID string) (CartView, error)
	Clear(ctx context.Context, cartID string) error
	SetDestination(ctx context.Context, cartID string, dest Destination) (CartView, error)
	SelectShippingMethod(ctx context.Context, cartID, method string) (CartView, error)
}

// AddCartItemCommand adds a variant to a cart, creating the cart when CartID is empty or unknown.
type AddCartItemCommand struct {
	CartID    string `json:"-"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CartView is a cart with its computed totals and available shipping options.
type CartView struct {
	Cart          Cart            `json:"cart"`
	Totals        CartTotals      `json:"totals"`
	Quotes        []ShippingQuote `json:"quotes,omitempty"`
	ShippingError string          `json:"shippingError,omitempty"`
}

// CheckoutService turns a cart into a pending order and a hosted payment session.
type CheckoutService interface {
	StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutResult, error)
}

// StartCheckoutCommand carries the customer's details captured on the checkout form.
type StartCheckoutCommand struct {
	CartID   string   `json:"-"`
	Customer Customer `json:"customer"`
	Address  Address  `json:"address"`
	Notes    string   `json:"notes,omitempty"`
}

// CheckoutResult is the created order and where to send the customer.
type CheckoutResult struct {
	Order       Order  `json:"order"`
	RedirectURL string `json:"redirectUrl"`
}

// OrderService runs payment callbacks and admin order management.
type OrderService interface {
	HandlePaymentEvent(ctx context.Context, provider string, payload []byte, signature string) (PaymentEventResult, error)
	ListOrders(ctx context.Context, filter domain.OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
	Refund(ctx context.Context, cmd RefundOrderCommand) (Order, error)
	ResyncLedger(ctx context.Context, orderID string) (Order, error)
	Stats(ctx context.Context) (OrderStats, error)
}

// PaymentEventResult describes what a webhook did.
type PaymentEventResult struct {
	EventID string `json:"eventId"`
	OrderID string `json:"orderId,omitempty"`
	Action  string `json:"action"`
}

// OrderStatusCommand moves an order along the status graph.
type OrderStatusCommand struct {
	OrderID string      `json:"-"`
	Status  OrderStatus `json:"status"`
	Note    string      `json:"note,omitempty"`
}

// RefundOrderCommand refunds a paid order. A nil Amount refunds in full.
type RefundOrderCommand struct {
	OrderID string `json:"-"`
	Amount  *int64 `json:"amountCents,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// OrderStats feeds the admin dashboard.
type OrderStats struct {
	ByStatus     map[OrderStatus]int `json:"byStatus"`
	Recent       []Order             `json:"recent"`
	RevenueCents int64               `json:"revenueCents"`
	LedgerFailed int                 `json:"ledgerFailed"`
}

// ContentService manages gallery, services, blog, and contact submissions.
type ContentService interface {
	ListGallery(ctx context.Context, includeDrafts bool) ([]GalleryItem, error)
	GetGalleryItem(ctx context.Context, id string) (GalleryItem, error)
	SaveGalleryItem(ctx context.Context, item GalleryItem) (GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id string) error
	ReorderGallery(ctx context.Context, ids []string) ([]GalleryItem, error)

	ListServices(ctx context.Context, includeDrafts bool) ([]Service, error)
	GetService(ctx context.Context, slug string) (Service, error)
	SaveService(ctx context.Context, service Service) (Service, error)
	DeleteService(ctx context.Context, id string) error

	ListPosts(ctx context.Context, includeDrafts bool, pager Pagination) (domain.CursorPage[BlogPost], error)
	GetPost(ctx context.Context, slug string, includeDrafts bool) (BlogPost, error)
	SavePost(ctx context.Context, post BlogPost) (BlogPost, error)
	DeletePost(ctx context.Context, id string) error

	SubmitContact(ctx context.Context, cmd ContactCommand) (ContactSubmission, error)
	ListContacts(ctx context.Context, status ContactStatus) ([]ContactSubmission, error)
	MarkContact(ctx context.Context, id string, status ContactStatus) (ContactSubmission, error)
	DeleteContact(ctx context.Context, id string) error
}

// ContactCommand is a public contact form post.
type ContactCommand struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	ServiceSlug string `json:"service"`
	RemoteAddr  string `json:"-"`
	UserAgent   string `json:"-"`
}

// MediaService stores uploaded images on the CDN bucket.
type MediaService interface {
	UploadImage(ctx context.Context, cmd UploadImageCommand) (UploadedImage, error)
	SignedUploadURL(ctx context.Context, folder, filename, contentType string) (SignedUpload, error)
}

// UploadImageCommand is one image file posted from the admin.
type UploadImageCommand struct {
	Folder      string
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadedImage lists the public URLs of the stored renditions.
type UploadedImage struct {
	OriginalURL  string `json:"originalUrl"`
	MediumURL    string `json:"mediumUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// SignedUpload lets the browser PUT an object straight to the bucket.
type SignedUpload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectURL string            `json:"objectUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// SystemService reports health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	BuildInfo() BuildInfo
}
