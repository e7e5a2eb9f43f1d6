package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/handlers"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	homeFeaturedLimit = 8
	homePostsLimit    = 3
	shopPageSize      = 24
	blogPageSize      = 10
	maxFormBytes      = 64 << 10
)

type homeView struct {
	Featured []services.Product
	Services []services.Service
	Posts    []services.BlogPost
}

func (p *Pages) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	featured, err := p.catalog.Featured(ctx, homeFeaturedLimit)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	svcs, err := p.content.ListServices(ctx, false)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view := homeView{Featured: featured, Services: svcs}
	if p.site.EnableBlog {
		posts, err := p.content.ListPosts(ctx, false, services.Pagination{PageSize: homePostsLimit})
		if err != nil {
			requestctx.Logger(ctx).Warn("web.home_posts_failed", zap.Error(err))
		} else {
			view.Posts = posts.Items
		}
	}
	p.render(w, r, http.StatusOK, "home", pageData{Title: p.site.Name, Data: view})
}

type shopView struct {
	Query       url.Values
	Filter      catalog.Filter
	Sort        catalog.SortKey
	SortOptions []catalog.SortKey
	Categories  []*catalog.CategoryNode
	Breadcrumbs []*catalog.CategoryNode
	Page        services.ProductPage
}

var sortOptions = []catalog.SortKey{
	catalog.SortFeatured,
	catalog.SortTitle,
	catalog.SortPriceAsc,
	catalog.SortPriceDesc,
	catalog.SortNewest,
}

func (p *Pages) shop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()
	filter, err := catalog.FilterFromValues(values)
	if err != nil {
		p.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	params, err := pagination.Parse(values, pagination.Options{DefaultPageSize: shopPageSize, MaxPageSize: 96})
	if err != nil {
		p.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sort := catalog.ParseSortKey(values.Get("sort"))
	page, err := p.catalog.ListProducts(ctx, services.ProductQuery{
		Filter:     filter,
		Sort:       sort,
		Pagination: services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	})
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view := shopView{Query: values, Filter: filter, Sort: sort, SortOptions: sortOptions, Page: page}
	if tree, err := p.catalog.Categories(ctx); err == nil && tree != nil {
		view.Categories = tree.Roots
		if filter.CategoryPath != "" {
			view.Breadcrumbs = tree.Breadcrumbs(filter.CategoryPath)
		}
	} else if err != nil {
		requestctx.Logger(ctx).Warn("web.categories_failed", zap.Error(err))
	}
	title := "Shop"
	if n := len(view.Breadcrumbs); n > 0 {
		title = view.Breadcrumbs[n-1].Name
	}
	p.render(w, r, http.StatusOK, "shop", pageData{Title: title, Data: view})
}

type productView struct {
	Product     services.Product
	Breadcrumbs []*catalog.CategoryNode
	Selected    services.ProductVariant
	InStock     bool
}

func (p *Pages) product(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := p.catalog.GetProduct(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	view := productView{Product: product, InStock: product.InStock()}
	if v, ok := product.Variant(r.URL.Query().Get("variant")); ok {
		view.Selected = v
	} else if v, ok := product.DefaultVariant(); ok {
		view.Selected = v
	}
	if tree, err := p.catalog.Categories(ctx); err == nil && tree != nil {
		view.Breadcrumbs = tree.Breadcrumbs(catalog.CategorySlugPath(product))
	}
	p.render(w, r, http.StatusOK, "product", pageData{Title: product.Title, Data: view})
}

type cartView struct {
	View            services.CartView
	ShippingMethods []string
	CheckoutEnabled bool
}

func (p *Pages) cart(w http.ResponseWriter, r *http.Request) {
	p.renderCart(w, r, http.StatusOK, "")
}

func (p *Pages) renderCart(w http.ResponseWriter, r *http.Request, status int, message string) {
	ctx := r.Context()
	view := services.CartView{}
	if cartID := handlers.CartIDFromRequest(r); cartID != "" {
		loaded, err := p.carts.Get(ctx, cartID)
		switch {
		case err == nil:
			view = loaded
		case errors.Is(err, services.ErrCartNotFound):
			handlers.ClearCartCookie(w, p.secureCookies)
		default:
			p.serviceError(w, r, err)
			return
		}
	}
	data := pageData{
		Title:     "Your cart",
		CartCount: view.Totals.ItemCount,
		Error:     message,
		Data: cartView{
			View:            view,
			ShippingMethods: []string{domain.ShippingMethodStandard, domain.ShippingMethodExpress, domain.ShippingMethodPickup},
			CheckoutEnabled: p.checkout != nil && p.site.EnableCheckout,
		},
	}
	if data.CartCount == 0 {
		data.CartCount = -1
	}
	p.render(w, r, status, "cart", data)
}

func (p *Pages) addToCart(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	quantity := 1
	if raw := strings.TrimSpace(r.PostFormValue("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			p.renderCart(w, r, http.StatusBadRequest, "Quantity must be a whole number above zero.")
			return
		}
		quantity = n
	}
	view, err := p.carts.AddItem(r.Context(), services.AddCartItemCommand{
		CartID:    handlers.CartIDFromRequest(r),
		ProductID: strings.TrimSpace(r.PostFormValue("productId")),
		VariantID: strings.TrimSpace(r.PostFormValue("variantId")),
		Quantity:  quantity,
	})
	if err != nil {
		p.cartError(w, r, err)
		return
	}
	handlers.SetCartCookie(w, view.Cart.ID, p.secureCookies)
	redirect(w, r, "/cart")
}

func (p *Pages) updateCartItem(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil || quantity < 0 {
		p.renderCart(w, r, http.StatusBadRequest, "Quantity must be a whole number.")
		return
	}
	ctx := r.Context()
	cartID := handlers.CartIDFromRequest(r)
	itemID := chi.URLParam(r, "itemID")
	if quantity == 0 {
		_, err = p.carts.RemoveItem(ctx, cartID, itemID)
	} else {
		_, err = p.carts.UpdateItemQuantity(ctx, cartID, itemID, quantity)
	}
	if err != nil {
		p.cartError(w, r, err)
		return
	}
	redirect(w, r, "/cart")
}

func (p *Pages) removeCartItem(w http.ResponseWriter, r *http.Request) {
	_, err := p.carts.RemoveItem(r.Context(), handlers.CartIDFromRequest(r), chi.URLParam(r, "itemID"))
	if err != nil && !errors.Is(err, services.ErrCartNotFound) {
		p.cartError(w, r, err)
		return
	}
	redirect(w, r, "/cart")
}

func (p *Pages) updateShipping(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	ctx := r.Context()
	cartID := handlers.CartIDFromRequest(r)
	dest := services.Destination{
		Country:  strings.ToUpper(strings.TrimSpace(r.PostFormValue("country"))),
		State:    strings.ToUpper(strings.TrimSpace(r.PostFormValue("state"))),
		Postcode: strings.TrimSpace(r.PostFormValue("postcode")),
	}
	if !dest.IsZero() {
		if _, err := p.carts.SetDestination(ctx, cartID, dest); err != nil {
			p.cartError(w, r, err)
			return
		}
	}
	if method := strings.TrimSpace(r.PostFormValue("method")); method != "" {
		if _, err := p.carts.SelectShippingMethod(ctx, cartID, method); err != nil {
			p.cartError(w, r, err)
			return
		}
	}
	redirect(w, r, "/cart")
}

func (p *Pages) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		p.renderCart(w, r, http.StatusBadRequest, "That change could not be applied to your cart.")
	case errors.Is(err, services.ErrCartNotFound):
		handlers.ClearCartCookie(w, p.secureCookies)
		redirect(w, r, "/cart")
	case errors.Is(err, services.ErrCartProductUnavailable):
		p.renderCart(w, r, http.StatusUnprocessableEntity, "That product is no longer available.")
	case errors.Is(err, services.ErrCartInsufficientStock):
		p.renderCart(w, r, http.StatusConflict, "We do not have enough stock for that quantity.")
	case errors.Is(err, services.ErrCartShippingUnavailable):
		p.renderCart(w, r, http.StatusUnprocessableEntity, "We cannot ship to that destination with the selected method.")
	default:
		p.serviceError(w, r, err)
	}
}

type checkoutView struct {
	Cart     services.CartView
	Customer services.Customer
	Address  services.Address
	Notes    string
}

func (p *Pages) checkoutForm(w http.ResponseWriter, r *http.Request) {
	cartID := handlers.CartIDFromRequest(r)
	if cartID == "" {
		redirect(w, r, "/cart")
		return
	}
	view, err := p.carts.Get(r.Context(), cartID)
	if err != nil {
		p.cartError(w, r, err)
		return
	}
	if len(view.Cart.Items) == 0 {
		redirect(w, r, "/cart")
		return
	}
	form := checkoutView{Cart: view, Address: services.Address{Country: "AU"}}
	form.Address.State = view.Cart.Destination.State
	form.Address.Postcode = view.Cart.Destination.Postcode
	p.render(w, r, http.StatusOK, "checkout", pageData{Title: "Checkout", CartCount: view.Totals.ItemCount, Data: form})
}

func (p *Pages) submitCheckout(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	ctx := r.Context()
	cartID := handlers.CartIDFromRequest(r)
	if cartID == "" {
		redirect(w, r, "/cart")
		return
	}
	form := checkoutView{
		Customer: services.Customer{
			Name:  strings.TrimSpace(r.PostFormValue("name")),
			Email: strings.TrimSpace(r.PostFormValue("email")),
			Phone: strings.TrimSpace(r.PostFormValue("phone")),
		},
		Address: services.Address{
			Name:     strings.TrimSpace(r.PostFormValue("name")),
			Company:  strings.TrimSpace(r.PostFormValue("company")),
			Line1:    strings.TrimSpace(r.PostFormValue("line1")),
			Line2:    strings.TrimSpace(r.PostFormValue("line2")),
			Suburb:   strings.TrimSpace(r.PostFormValue("suburb")),
			State:    strings.ToUpper(strings.TrimSpace(r.PostFormValue("state"))),
			Postcode: strings.TrimSpace(r.PostFormValue("postcode")),
			Country:  strings.ToUpper(strings.TrimSpace(r.PostFormValue("country"))),
			Phone:    strings.TrimSpace(r.PostFormValue("phone")),
		},
		Notes: strings.TrimSpace(r.PostFormValue("notes")),
	}
	result, err := p.checkout.StartCheckout(ctx, services.StartCheckoutCommand{
		CartID:   cartID,
		Customer: form.Customer,
		Address:  form.Address,
		Notes:    form.Notes,
	})
	if err != nil {
		status, message := checkoutFailure(err)
		if status == 0 {
			p.serviceError(w, r, err)
			return
		}
		if view, loadErr := p.carts.Get(ctx, cartID); loadErr == nil {
			form.Cart = view
		}
		p.render(w, r, status, "checkout", pageData{Title: "Checkout", Error: message, Data: form})
		return
	}
	redirect(w, r, result.RedirectURL)
}

func checkoutFailure(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		return http.StatusBadRequest, "Please check your contact and delivery details."
	case errors.Is(err, services.ErrCheckoutCartNotFound), errors.Is(err, services.ErrCheckoutEmptyCart):
		return http.StatusBadRequest, "Your cart is empty."
	case errors.Is(err, services.ErrCheckoutInsufficientStock):
		return http.StatusConflict, "Some items sold out while you were checking out. Please review your cart."
	case errors.Is(err, services.ErrCheckoutShippingUnavailable):
		return http.StatusUnprocessableEntity, "We cannot deliver to that address. Choose pickup or another destination."
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		return http.StatusBadGateway, "The payment page could not be opened. Please try again shortly."
	}
	return 0, ""
}

func (p *Pages) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	// The cart was converted to an order.
	handlers.ClearCartCookie(w, p.secureCookies)
	data := pageData{Title: "Thank you", CartCount: -1, Data: map[string]string{"OrderID": r.URL.Query().Get("order")}}
	p.render(w, r, http.StatusOK, "checkout_success", data)
}

func (p *Pages) checkoutCancel(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "checkout_cancel", pageData{Title: "Payment cancelled"})
}

func (p *Pages) servicesList(w http.ResponseWriter, r *http.Request) {
	svcs, err := p.content.ListServices(r.Context(), false)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "services", pageData{Title: "Services", Data: svcs})
}

func (p *Pages) serviceDetail(w http.ResponseWriter, r *http.Request) {
	svc, err := p.content.GetService(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	if !svc.Published {
		p.renderError(w, r, http.StatusNotFound, "That page could not be found.")
		return
	}
	p.render(w, r, http.StatusOK, "service", pageData{Title: svc.Title, Data: svc})
}

type galleryView struct {
	Items      []services.GalleryItem
	Categories []string
	Active     string
}

func (p *Pages) gallery(w http.ResponseWriter, r *http.Request) {
	items, err := p.content.ListGallery(r.Context(), false)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	active := strings.TrimSpace(r.URL.Query().Get("category"))
	view := galleryView{Active: active}
	seen := map[string]bool{}
	for _, item := range items {
		if item.Category != "" && !seen[strings.ToLower(item.Category)] {
			seen[strings.ToLower(item.Category)] = true
			view.Categories = append(view.Categories, item.Category)
		}
		if active == "" || strings.EqualFold(item.Category, active) {
			view.Items = append(view.Items, item)
		}
	}
	p.render(w, r, http.StatusOK, "gallery", pageData{Title: "Gallery", Data: view})
}

func (p *Pages) blogList(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.FromRequest(r, pagination.Options{DefaultPageSize: blogPageSize, MaxPageSize: 50})
	if err != nil {
		p.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := p.content.ListPosts(r.Context(), false, services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "blog", pageData{Title: "Blog", Data: page})
}

func (p *Pages) blogPost(w http.ResponseWriter, r *http.Request) {
	post, err := p.content.GetPost(r.Context(), chi.URLParam(r, "slug"), false)
	if err != nil {
		p.serviceError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "post", pageData{Title: post.Title, Data: post})
}

type contactView struct {
	Form     services.ContactCommand
	Services []services.Service
	Sent     bool
}

func (p *Pages) contactForm(w http.ResponseWriter, r *http.Request) {
	view := contactView{
		Form: services.ContactCommand{ServiceSlug: r.URL.Query().Get("service")},
		Sent: r.URL.Query().Get("sent") == "1",
	}
	p.renderContact(w, r, http.StatusOK, view, "")
}

func (p *Pages) renderContact(w http.ResponseWriter, r *http.Request, status int, view contactView, message string) {
	if svcs, err := p.content.ListServices(r.Context(), false); err == nil {
		view.Services = svcs
	}
	data := pageData{Title: "Contact us", Error: message, Data: view}
	if view.Sent {
		data.Flash = "Thanks, we will be in touch within one business day."
	}
	p.render(w, r, status, "contact", data)
}

func (p *Pages) submitContact(w http.ResponseWriter, r *http.Request) {
	if p.contactLimiter != nil && !p.contactLimiter.Allow(handlers.ClientKey(r.RemoteAddr)) {
		w.Header().Set("Retry-After", "60")
		p.renderContact(w, r, http.StatusTooManyRequests, contactView{}, "You have sent a few messages already. Please wait a minute and try again.")
		return
	}
	if !parseForm(w, r) {
		p.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	cmd := services.ContactCommand{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
		Subject:     strings.TrimSpace(r.PostFormValue("subject")),
		Message:     strings.TrimSpace(r.PostFormValue("message")),
		ServiceSlug: strings.TrimSpace(r.PostFormValue("service")),
		RemoteAddr:  handlers.ClientKey(r.RemoteAddr),
		UserAgent:   r.UserAgent(),
	}
	if _, err := p.content.SubmitContact(r.Context(), cmd); err != nil {
		if errors.Is(err, services.ErrContentInvalidInput) {
			p.renderContact(w, r, http.StatusBadRequest, contactView{Form: cmd}, "Please include your name, a valid email address, and a message.")
			return
		}
		p.serviceError(w, r, err)
		return
	}
	redirect(w, r, "/contact?sent=1")
}

// cartCount returns the header badge count. A negative CartCount on pageData means "known empty".
func (p *Pages) cartCount(r *http.Request) int {
	cartID := handlers.CartIDFromRequest(r)
	if cartID == "" {
		return 0
	}
	view, err := p.carts.Get(r.Context(), cartID)
	if err != nil {
		return 0
	}
	return view.Totals.ItemCount
}

// serviceError renders the page for errors every service shares.
func (p *Pages) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogNotFound),
		errors.Is(err, services.ErrContentNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		p.renderError(w, r, http.StatusNotFound, "That page could not be found.")
	case errors.Is(err, services.ErrCatalogInvalidInput),
		errors.Is(err, services.ErrContentInvalidInput),
		errors.Is(err, services.ErrOrderInvalidInput):
		p.renderError(w, r, http.StatusBadRequest, "The request was not valid.")
	case errors.Is(err, services.ErrCatalogUnavailable),
		errors.Is(err, services.ErrContentUnavailable),
		errors.Is(err, services.ErrCartUnavailable),
		errors.Is(err, services.ErrCheckoutUnavailable),
		errors.Is(err, services.ErrOrderUnavailable):
		requestctx.Logger(r.Context()).Error("web.service_unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		p.renderError(w, r, http.StatusServiceUnavailable, "We are having trouble loading this page. Please try again shortly.")
	default:
		requestctx.Logger(r.Context()).Error("web.unexpected_error", zap.String("path", r.URL.Path), zap.Error(err))
		p.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
	}
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm() == nil
}
