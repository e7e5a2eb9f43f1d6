package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	maxContactBodySize = 16 * 1024
	maxQuoteBodySize   = 4 * 1024
	publicCacheControl = "public, max-age=60"
)

// PublicHandlers serves anonymous catalog and content reads plus the contact form.
type PublicHandlers struct {
	catalog  services.CatalogService
	content  services.ContentService
	shipping services.ShippingService
	limiter  RateLimiter
}

// PublicOption customises PublicHandlers.
type PublicOption func(*PublicHandlers)

// WithPublicCatalogService wires product endpoints.
func WithPublicCatalogService(svc services.CatalogService) PublicOption {
	return func(h *PublicHandlers) { h.catalog = svc }
}

// WithPublicContentService wires gallery, services, blog, and contact endpoints.
func WithPublicContentService(svc services.ContentService) PublicOption {
	return func(h *PublicHandlers) { h.content = svc }
}

// WithPublicShippingService wires the ad-hoc shipping quote endpoint.
func WithPublicShippingService(svc services.ShippingService) PublicOption {
	return func(h *PublicHandlers) { h.shipping = svc }
}

// WithContactRateLimiter throttles contact submissions per client address.
func WithContactRateLimiter(limiter RateLimiter) PublicOption {
	return func(h *PublicHandlers) { h.limiter = limiter }
}

// NewPublicHandlers constructs public handlers.
func NewPublicHandlers(opts ...PublicOption) *PublicHandlers {
	h := &PublicHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{handle}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/facets", h.getFacets)
	r.Get("/services", h.listServices)
	r.Get("/services/{slug}", h.getService)
	r.Get("/gallery", h.listGallery)
	r.Get("/blog", h.listPosts)
	r.Get("/blog/{slug}", h.getPost)
	r.Post("/contact", h.submitContact)
	r.Post("/shipping/quote", h.quoteShipping)
}

func (h *PublicHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	query, err := productQueryFromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	page, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	if page.Items == nil {
		page.Items = []services.Product{}
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *PublicHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *PublicHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	tree, err := h.catalog.Categories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err, "category")
		return
	}
	roots := []*catalog.CategoryNode{}
	if tree != nil && tree.Roots != nil {
		roots = tree.Roots
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": roots})
}

func (h *PublicHandlers) getFacets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	filter, err := catalog.FilterFromValues(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	facets, err := h.catalog.Facets(ctx, filter)
	if err != nil {
		writeCatalogError(ctx, w, err, "facet")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, facets)
}

func (h *PublicHandlers) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	items, err := h.content.ListServices(ctx, false)
	if err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	if items == nil {
		items = []services.Service{}
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *PublicHandlers) getService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	svc, err := h.content.GetService(ctx, chi.URLParam(r, "slug"))
	if err == nil && !svc.Published {
		err = services.ErrContentNotFound
	}
	if err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *PublicHandlers) listGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	items, err := h.content.ListGallery(ctx, false)
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filtered := items[:0:0]
		for _, item := range items {
			if strings.EqualFold(item.Category, category) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if items == nil {
		items = []services.GalleryItem{}
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *PublicHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{DefaultPageSize: 10, MaxPageSize: 50})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	page, err := h.content.ListPosts(ctx, false, services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *PublicHandlers) getPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	post, err := h.content.GetPost(ctx, chi.URLParam(r, "slug"), false)
	if err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

func (h *PublicHandlers) submitContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(ClientKey(r.RemoteAddr)) {
		w.Header().Set("Retry-After", "60")
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many enquiries, try again shortly", http.StatusTooManyRequests))
		return
	}
	var cmd services.ContactCommand
	if err := httpx.DecodeJSON(r, maxContactBodySize, &cmd); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	cmd.RemoteAddr = ClientKey(r.RemoteAddr)
	cmd.UserAgent = r.UserAgent()
	submission, err := h.content.SubmitContact(ctx, cmd)
	if err != nil {
		writeContentError(ctx, w, err, "contact")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     submission.ID,
		"status": "received",
	})
}

func (h *PublicHandlers) quoteShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		writeUnavailable(ctx, w, "shipping")
		return
	}
	var req services.QuoteRequest
	if err := httpx.DecodeJSON(r, maxQuoteBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	quotes, err := h.shipping.Quote(ctx, req)
	if err != nil && len(quotes) == 0 {
		writeShippingError(ctx, w, err)
		return
	}
	payload := map[string]any{"quotes": quotes}
	if err != nil {
		payload["warning"] = err.Error()
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func productQueryFromRequest(r *http.Request) (services.ProductQuery, error) {
	values := r.URL.Query()
	filter, err := catalog.FilterFromValues(values)
	if err != nil {
		return services.ProductQuery{}, err
	}
	params, err := pagination.Parse(values, pagination.Options{DefaultPageSize: 24, MaxPageSize: 100})
	if err != nil {
		return services.ProductQuery{}, err
	}
	return services.ProductQuery{
		Filter:     filter,
		Sort:       catalog.ParseSortKey(values.Get("sort")),
		Pagination: services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}, nil
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_unavailable", name+" service is unavailable", http.StatusServiceUnavailable))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(strings.ReplaceAll(resource, " ", "_")+"_not_found", resource+" not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		writeUnavailable(ctx, w, "catalog")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process "+resource, http.StatusInternalServerError))
	}
}

func writeContentError(ctx context.Context, w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(strings.ReplaceAll(resource, " ", "_")+"_not_found", resource+" not found", http.StatusNotFound))
	case errors.Is(err, services.ErrContentConflict):
		httpx.WriteError(ctx, w, httpx.NewError("slug_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrContentUnavailable):
		writeUnavailable(ctx, w, "content")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("content_error", "failed to process "+resource, http.StatusInternalServerError))
	}
}

func writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("destination_not_serviced", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to quote shipping", http.StatusInternalServerError))
	}
}

func parseBoolParam(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
