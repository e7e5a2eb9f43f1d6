package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/shipping"
)

type stubCatalogService struct {
	listFn      func(context.Context, services.ProductQuery) (services.ProductPage, error)
	getFn       func(context.Context, string) (services.Product, error)
	categories  *catalog.CategoryTree
	facetsFn    func(context.Context, catalog.Filter) (catalog.Facets, error)
	adminListFn func(context.Context, services.ProductQuery) (services.ProductPage, error)
	adminGetFn  func(context.Context, string) (services.Product, error)
	createFn    func(context.Context, services.ProductInput) (services.Product, error)
	updateFn    func(context.Context, string, services.ProductInput) (services.Product, error)
	deleteFn    func(context.Context, string) error
	adjustFn    func(context.Context, services.InventoryAdjustment) (services.Product, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, q services.ProductQuery) (services.ProductPage, error) {
	if s.listFn != nil {
		return s.listFn(ctx, q)
	}
	return services.ProductPage{}, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, handle string) (services.Product, error) {
	if s.getFn != nil {
		return s.getFn(ctx, handle)
	}
	return services.Product{}, services.ErrCatalogNotFound
}

func (s *stubCatalogService) Featured(context.Context, int) ([]services.Product, error) {
	return nil, nil
}

func (s *stubCatalogService) Categories(context.Context) (*catalog.CategoryTree, error) {
	return s.categories, nil
}

func (s *stubCatalogService) Facets(ctx context.Context, f catalog.Filter) (catalog.Facets, error) {
	if s.facetsFn != nil {
		return s.facetsFn(ctx, f)
	}
	return catalog.Facets{}, nil
}

func (s *stubCatalogService) AdminListProducts(ctx context.Context, q services.ProductQuery) (services.ProductPage, error) {
	if s.adminListFn != nil {
		return s.adminListFn(ctx, q)
	}
	return services.ProductPage{}, nil
}

func (s *stubCatalogService) AdminGetProduct(ctx context.Context, handle string) (services.Product, error) {
	if s.adminGetFn != nil {
		return s.adminGetFn(ctx, handle)
	}
	return services.Product{}, services.ErrCatalogNotFound
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, in services.ProductInput) (services.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, in)
	}
	return services.Product{}, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, handle string, in services.ProductInput) (services.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, handle, in)
	}
	return services.Product{}, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, handle string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, handle)
	}
	return nil
}

func (s *stubCatalogService) AdjustInventory(ctx context.Context, cmd services.InventoryAdjustment) (services.Product, error) {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, cmd)
	}
	return services.Product{}, nil
}

func (s *stubCatalogService) DecrementStock(context.Context, []services.StockLine) error {
	return nil
}

type stubImportService struct {
	importFn func(context.Context, services.ImportCommand) (services.ImportSummary, error)
}

func (s *stubImportService) Import(ctx context.Context, cmd services.ImportCommand) (services.ImportSummary, error) {
	return s.importFn(ctx, cmd)
}

type stubShippingService struct {
	quoteFn func(context.Context, services.QuoteRequest) ([]services.ShippingQuote, error)
}

func (s *stubShippingService) QuoteCart(context.Context, services.Cart) ([]services.ShippingQuote, error) {
	return nil, nil
}

func (s *stubShippingService) Quote(ctx context.Context, req services.QuoteRequest) ([]services.ShippingQuote, error) {
	return s.quoteFn(ctx, req)
}

func (s *stubShippingService) Table() *shipping.Table {
	return nil
}

type stubCartService struct {
	getFn      func(context.Context, string) (services.CartView, error)
	addFn      func(context.Context, services.AddCartItemCommand) (services.CartView, error)
	updateFn   func(context.Context, string, string, int) (services.CartView, error)
	removeFn   func(context.Context, string, string) (services.CartView, error)
	clearFn    func(context.Context, string) error
	destFn     func(context.Context, string, services.Destination) (services.CartView, error)
	shippingFn func(context.Context, string, string) (services.CartView, error)
}

func (s *stubCartService) GetOrCreate(ctx context.Context, cartID string) (services.CartView, error) {
	return s.Get(ctx, cartID)
}

func (s *stubCartService) Get(ctx context.Context, cartID string) (services.CartView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cartID)
	}
	return services.CartView{}, services.ErrCartNotFound
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.CartView, error) {
	return s.addFn(ctx, cmd)
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cartID, itemID string, qty int) (services.CartView, error) {
	return s.updateFn(ctx, cartID, itemID, qty)
}

func (s *stubCartService) RemoveItem(ctx context.Context, cartID, itemID string) (services.CartView, error) {
	return s.removeFn(ctx, cartID, itemID)
}

func (s *stubCartService) Clear(ctx context.Context, cartID string) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, cartID)
	}
	return nil
}

func (s *stubCartService) SetDestination(ctx context.Context, cartID string, dest services.Destination) (services.CartView, error) {
	return s.destFn(ctx, cartID, dest)
}

func (s *stubCartService) SelectShippingMethod(ctx context.Context, cartID, method string) (services.CartView, error) {
	return s.shippingFn(ctx, cartID, method)
}

type stubCheckoutService struct {
	startFn func(context.Context, services.StartCheckoutCommand) (services.CheckoutResult, error)
}

func (s *stubCheckoutService) StartCheckout(ctx context.Context, cmd services.StartCheckoutCommand) (services.CheckoutResult, error) {
	return s.startFn(ctx, cmd)
}

type stubOrderService struct {
	eventFn  func(context.Context, string, []byte, string) (services.PaymentEventResult, error)
	listFn   func(context.Context, domain.OrderListFilter) (domain.CursorPage[services.Order], error)
	getFn    func(context.Context, string) (services.Order, error)
	statusFn func(context.Context, services.OrderStatusCommand) (services.Order, error)
	refundFn func(context.Context, services.RefundOrderCommand) (services.Order, error)
	ledgerFn func(context.Context, string) (services.Order, error)
	stats    services.OrderStats
}

func (s *stubOrderService) HandlePaymentEvent(ctx context.Context, provider string, payload []byte, sig string) (services.PaymentEventResult, error) {
	return s.eventFn(ctx, provider, payload, sig)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter domain.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, id string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return services.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.OrderStatusCommand) (services.Order, error) {
	return s.statusFn(ctx, cmd)
}

func (s *stubOrderService) Refund(ctx context.Context, cmd services.RefundOrderCommand) (services.Order, error) {
	return s.refundFn(ctx, cmd)
}

func (s *stubOrderService) ResyncLedger(ctx context.Context, id string) (services.Order, error) {
	return s.ledgerFn(ctx, id)
}

func (s *stubOrderService) Stats(context.Context) (services.OrderStats, error) {
	return s.stats, nil
}

type stubContentService struct {
	gallery      []services.GalleryItem
	galleryErr   error
	saveGallery  func(context.Context, services.GalleryItem) (services.GalleryItem, error)
	reorderFn    func(context.Context, []string) ([]services.GalleryItem, error)
	svcs         []services.Service
	saveService  func(context.Context, services.Service) (services.Service, error)
	postsFn      func(context.Context, bool, services.Pagination) (domain.CursorPage[services.BlogPost], error)
	getPostFn    func(context.Context, string, bool) (services.BlogPost, error)
	savePostFn   func(context.Context, services.BlogPost) (services.BlogPost, error)
	submitFn     func(context.Context, services.ContactCommand) (services.ContactSubmission, error)
	contactsFn   func(context.Context, services.ContactStatus) ([]services.ContactSubmission, error)
	markFn       func(context.Context, string, services.ContactStatus) (services.ContactSubmission, error)
	deleted      []string
	includeDraft []bool
}

func (s *stubContentService) ListGallery(_ context.Context, includeDrafts bool) ([]services.GalleryItem, error) {
	s.includeDraft = append(s.includeDraft, includeDrafts)
	return s.gallery, s.galleryErr
}

func (s *stubContentService) GetGalleryItem(_ context.Context, id string) (services.GalleryItem, error) {
	for _, item := range s.gallery {
		if item.ID == id {
			return item, nil
		}
	}
	return services.GalleryItem{}, services.ErrContentNotFound
}

func (s *stubContentService) SaveGalleryItem(ctx context.Context, item services.GalleryItem) (services.GalleryItem, error) {
	if s.saveGallery != nil {
		return s.saveGallery(ctx, item)
	}
	return item, nil
}

func (s *stubContentService) DeleteGalleryItem(_ context.Context, id string) error {
	s.deleted = append(s.deleted, "gallery:"+id)
	return nil
}

func (s *stubContentService) ReorderGallery(ctx context.Context, ids []string) ([]services.GalleryItem, error) {
	return s.reorderFn(ctx, ids)
}

func (s *stubContentService) ListServices(_ context.Context, includeDrafts bool) ([]services.Service, error) {
	s.includeDraft = append(s.includeDraft, includeDrafts)
	return s.svcs, nil
}

func (s *stubContentService) GetService(_ context.Context, slug string) (services.Service, error) {
	for _, svc := range s.svcs {
		if svc.Slug == slug {
			return svc, nil
		}
	}
	return services.Service{}, services.ErrContentNotFound
}

func (s *stubContentService) SaveService(ctx context.Context, svc services.Service) (services.Service, error) {
	if s.saveService != nil {
		return s.saveService(ctx, svc)
	}
	return svc, nil
}

func (s *stubContentService) DeleteService(_ context.Context, id string) error {
	s.deleted = append(s.deleted, "service:"+id)
	return nil
}

func (s *stubContentService) ListPosts(ctx context.Context, includeDrafts bool, pager services.Pagination) (domain.CursorPage[services.BlogPost], error) {
	return s.postsFn(ctx, includeDrafts, pager)
}

func (s *stubContentService) GetPost(ctx context.Context, slug string, includeDrafts bool) (services.BlogPost, error) {
	return s.getPostFn(ctx, slug, includeDrafts)
}

func (s *stubContentService) SavePost(ctx context.Context, post services.BlogPost) (services.BlogPost, error) {
	if s.savePostFn != nil {
		return s.savePostFn(ctx, post)
	}
	return post, nil
}

func (s *stubContentService) DeletePost(_ context.Context, id string) error {
	s.deleted = append(s.deleted, "post:"+id)
	return nil
}

func (s *stubContentService) SubmitContact(ctx context.Context, cmd services.ContactCommand) (services.ContactSubmission, error) {
	return s.submitFn(ctx, cmd)
}

func (s *stubContentService) ListContacts(ctx context.Context, status services.ContactStatus) ([]services.ContactSubmission, error) {
	return s.contactsFn(ctx, status)
}

func (s *stubContentService) MarkContact(ctx context.Context, id string, status services.ContactStatus) (services.ContactSubmission, error) {
	return s.markFn(ctx, id, status)
}

func (s *stubContentService) DeleteContact(_ context.Context, id string) error {
	s.deleted = append(s.deleted, "contact:"+id)
	return nil
}

type stubMediaService struct {
	uploadFn func(context.Context, services.UploadImageCommand) (services.UploadedImage, error)
	signFn   func(context.Context, string, string, string) (services.SignedUpload, error)
}

func (s *stubMediaService) UploadImage(ctx context.Context, cmd services.UploadImageCommand) (services.UploadedImage, error) {
	return s.uploadFn(ctx, cmd)
}

func (s *stubMediaService) SignedUploadURL(ctx context.Context, folder, filename, contentType string) (services.SignedUpload, error) {
	return s.signFn(ctx, folder, filename, contentType)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

var (
	_ services.CatalogService  = (*stubCatalogService)(nil)
	_ services.ImportService   = (*stubImportService)(nil)
	_ services.ShippingService = (*stubShippingService)(nil)
	_ services.CartService     = (*stubCartService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
	_ services.OrderService    = (*stubOrderService)(nil)
	_ services.ContentService  = (*stubContentService)(nil)
	_ services.MediaService    = (*stubMediaService)(nil)
)
