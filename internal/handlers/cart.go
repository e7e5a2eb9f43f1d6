package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	// CartCookieName carries the anonymous cart identifier for browsers.
	CartCookieName = "cart_id"
	// CartHeaderName carries the cart identifier for API clients that do not keep cookies.
	CartHeaderName = "X-Cart-ID"

	cartCookieMaxAge = 30 * 24 * time.Hour
	maxCartBodySize  = 8 * 1024
)

// CartIDFromRequest returns the cart identifier from the header, falling back to the cookie.
func CartIDFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(CartHeaderName)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(CartCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// SetCartCookie remembers the cart for later requests.
func SetCartCookie(w http.ResponseWriter, cartID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    cartID,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCartCookie forgets the cart, typically after checkout or an explicit clear.
func ClearCartCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CartMiddleware places the caller's cart identifier into the request context.
func CartMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := CartIDFromRequest(r); id != "" {
			r = r.WithContext(requestctx.WithCartID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// CartHandlers exposes the anonymous cart endpoints.
type CartHandlers struct {
	carts        services.CartService
	cookieSecure bool
}

// NewCartHandlers constructs cart handlers. secure marks the cart cookie Secure.
func NewCartHandlers(carts services.CartService, secure bool) *CartHandlers {
	return &CartHandlers{carts: carts, cookieSecure: secure}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(CartMiddleware)
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
	r.Put("/destination", h.setDestination)
	r.Put("/shipping-method", h.selectShippingMethod)
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type shippingMethodRequest struct {
	Method string `json:"method"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	cartID := requestctx.CartID(ctx)
	if cartID == "" {
		h.writeCart(w, services.CartView{Cart: services.Cart{Items: []services.CartItem{}}}, http.StatusOK)
		return
	}
	view, err := h.carts.Get(ctx, cartID)
	if errors.Is(err, services.ErrCartNotFound) {
		ClearCartCookie(w, h.cookieSecure)
		h.writeCart(w, services.CartView{Cart: services.Cart{Items: []services.CartItem{}}}, http.StatusOK)
		return
	}
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusOK)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	var cmd services.AddCartItemCommand
	if err := httpx.DecodeJSON(r, maxCartBodySize, &cmd); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	cmd.CartID = requestctx.CartID(ctx)
	view, err := h.carts.AddItem(ctx, cmd)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusCreated)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	var req updateCartItemRequest
	if err := httpx.DecodeJSON(r, maxCartBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest).
			WithFields(map[string]string{"quantity": "required"}))
		return
	}
	view, err := h.carts.UpdateItemQuantity(ctx, requestctx.CartID(ctx), chi.URLParam(r, "itemID"), *req.Quantity)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusOK)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	view, err := h.carts.RemoveItem(ctx, requestctx.CartID(ctx), chi.URLParam(r, "itemID"))
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusOK)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	if cartID := requestctx.CartID(ctx); cartID != "" {
		if err := h.carts.Clear(ctx, cartID); err != nil && !errors.Is(err, services.ErrCartNotFound) {
			writeCartError(ctx, w, err)
			return
		}
	}
	ClearCartCookie(w, h.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) setDestination(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	var dest services.Destination
	if err := httpx.DecodeJSON(r, maxCartBodySize, &dest); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	view, err := h.carts.SetDestination(ctx, requestctx.CartID(ctx), dest)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusOK)
}

func (h *CartHandlers) selectShippingMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	var req shippingMethodRequest
	if err := httpx.DecodeJSON(r, maxCartBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	view, err := h.carts.SelectShippingMethod(ctx, requestctx.CartID(ctx), req.Method)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, view, http.StatusOK)
}

func (h *CartHandlers) writeCart(w http.ResponseWriter, view services.CartView, status int) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if id := strings.TrimSpace(view.Cart.ID); id != "" {
		w.Header().Set(CartHeaderName, id)
		SetCartCookie(w, id, h.cookieSecure)
	}
	if !view.Cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", view.Cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	httpx.WriteJSON(w, status, view)
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is not available", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCartShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartUnavailable):
		writeUnavailable(ctx, w, "cart")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to update cart", http.StatusInternalServerError))
	}
}
