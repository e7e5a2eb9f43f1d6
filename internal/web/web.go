// Package web serves the server-rendered storefront and the admin back-office pages.
package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/handlers"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/auth"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

// Site carries the store-wide settings shown on every page.
type Site struct {
	Name           string
	Currency       string
	ContactEmail   string
	EnableCheckout bool
	EnableBlog     bool
}

// Deps lists the services the pages render. Catalog, Carts, and Content are required; the rest
// disable their pages when nil.
type Deps struct {
	Site     Site
	Catalog  services.CatalogService
	Carts    services.CartService
	Checkout services.CheckoutService
	Content  services.ContentService
	Orders   services.OrderService
	Guard    *auth.Guard
}

// Option customises page behaviour.
type Option func(*Pages)

// WithContactRateLimiter throttles contact form posts per client address.
func WithContactRateLimiter(limiter handlers.RateLimiter) Option {
	return func(p *Pages) {
		p.contactLimiter = limiter
	}
}

// WithSecureCookies marks the cart cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(p *Pages) {
		p.secureCookies = secure
	}
}

// Pages renders HTML for browsers.
type Pages struct {
	site      Site
	templates map[string]*template.Template

	catalog  services.CatalogService
	carts    services.CartService
	checkout services.CheckoutService
	content  services.ContentService
	orders   services.OrderService
	guard    *auth.Guard

	contactLimiter handlers.RateLimiter
	secureCookies  bool
}

// New parses the embedded templates and returns the page handlers.
func New(deps Deps, opts ...Option) (*Pages, error) {
	if deps.Catalog == nil || deps.Carts == nil || deps.Content == nil {
		return nil, errors.New("web: catalog, cart, and content services are required")
	}
	if deps.Site.Name == "" {
		deps.Site.Name = "Fabrow Metal Fabrication"
	}
	if deps.Site.Currency == "" {
		deps.Site.Currency = "AUD"
	}
	templates, err := parseTemplates(deps.Site)
	if err != nil {
		return nil, err
	}
	p := &Pages{
		site:      deps.Site,
		templates: templates,
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		checkout:  deps.Checkout,
		content:   deps.Content,
		orders:    deps.Orders,
		guard:     deps.Guard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Routes registers the storefront at the root and the back-office under /admin.
func (p *Pages) Routes(r chi.Router) {
	r.Get("/", p.home)
	r.Get("/shop", p.shop)
	r.Get("/shop/{handle}", p.product)

	r.Get("/cart", p.cart)
	r.Post("/cart/items", p.addToCart)
	r.Post("/cart/items/{itemID}", p.updateCartItem)
	r.Post("/cart/items/{itemID}/remove", p.removeCartItem)
	r.Post("/cart/shipping", p.updateShipping)

	if p.checkout != nil && p.site.EnableCheckout {
		r.Get("/checkout", p.checkoutForm)
		r.Post("/checkout", p.submitCheckout)
		r.Get("/checkout/success", p.checkoutSuccess)
		r.Get("/checkout/cancel", p.checkoutCancel)
	}

	r.Get("/services", p.servicesList)
	r.Get("/services/{slug}", p.serviceDetail)
	r.Get("/gallery", p.gallery)
	if p.site.EnableBlog {
		r.Get("/blog", p.blogList)
		r.Get("/blog/{slug}", p.blogPost)
	}
	r.Get("/contact", p.contactForm)
	r.Post("/contact", p.submitContact)

	if p.guard != nil {
		r.Route("/admin", p.adminRoutes)
	}
}

// NotFound renders the storefront 404 page.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "We could not find that page.")
}

func (p *Pages) adminRoutes(r chi.Router) {
	r.Get("/login", p.loginForm)
	r.Post("/login", p.login)

	r.Group(func(admin chi.Router) {
		admin.Use(p.guard.RequireAdmin(p.adminAuthFailure))
		admin.Post("/logout", p.logout)
		admin.Get("/", p.dashboard)
		admin.Get("/products", p.adminProducts)
		admin.Get("/contacts", p.adminContacts)
		admin.Post("/contacts/{id}/status", p.adminMarkContact)
		if p.orders != nil {
			admin.Get("/orders", p.adminOrders)
			admin.Get("/orders/{id}", p.adminOrder)
			admin.Post("/orders/{id}/status", p.adminOrderStatus)
		}
	})
}

func (p *Pages) adminAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrCSRFMismatch) {
		p.renderError(w, r, http.StatusForbidden, "Your session token did not match. Reload the page and try again.")
		return
	}
	redirect(w, r, "/admin/login?next="+url.QueryEscape(r.URL.RequestURI()))
}
