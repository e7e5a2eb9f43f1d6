package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

func newCartRouter(carts services.CartService) chi.Router {
	r := chi.NewRouter()
	r.Route("/cart", NewCartHandlers(carts, true).Routes)
	return r
}

func cartView(id string, items ...services.CartItem) services.CartView {
	return services.CartView{
		Cart: services.Cart{
			ID:        id,
			Items:     items,
			Currency:  "AUD",
			UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCartHandlers_GetWithoutCart(t *testing.T) {
	router := newCartRouter(&stubCartService{
		getFn: func(context.Context, string) (services.CartView, error) {
			t.Fatalf("service should not be called without a cart id")
			return services.CartView{}, nil
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items, got %s", rr.Body.String())
	}
}

func TestCartHandlers_GetUnknownCartClearsCookie(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "stale"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	cookie := findCookie(rr, CartCookieName)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected cart cookie to be cleared, got %+v", cookie)
	}
}

func TestCartHandlers_HeaderTakesPrecedence(t *testing.T) {
	var gotID string
	router := newCartRouter(&stubCartService{
		getFn: func(_ context.Context, id string) (services.CartView, error) {
			gotID = id
			return cartView(id), nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(CartHeaderName, "from-header")
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "from-cookie"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if gotID != "from-header" {
		t.Fatalf("expected header cart id, got %q", gotID)
	}
	if rr.Header().Get(CartHeaderName) != "from-header" {
		t.Fatalf("expected cart header echoed")
	}
	if rr.Header().Get("Last-Modified") == "" {
		t.Fatalf("expected Last-Modified header")
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected no-store cache-control, got %q", cc)
	}
}

func TestCartHandlers_AddItemCreatesCart(t *testing.T) {
	var captured services.AddCartItemCommand
	router := newCartRouter(&stubCartService{
		addFn: func(_ context.Context, cmd services.AddCartItemCommand) (services.CartView, error) {
			captured = cmd
			return cartView("cart-new", services.CartItem{ID: "line-1", ProductID: cmd.ProductID, VariantID: cmd.VariantID, Quantity: cmd.Quantity}), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"gate-hinge","variantId":"v1","quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CartID != "" || captured.ProductID != "gate-hinge" || captured.Quantity != 2 {
		t.Fatalf("unexpected command %+v", captured)
	}
	cookie := findCookie(rr, CartCookieName)
	if cookie == nil || cookie.Value != "cart-new" {
		t.Fatalf("expected cart cookie with new id, got %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected hardened cookie, got %+v", cookie)
	}
}

func TestCartHandlers_AddItemErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrCartInvalidInput, http.StatusBadRequest, "invalid_request"},
		{services.ErrCartProductUnavailable, http.StatusUnprocessableEntity, "product_unavailable"},
		{fmt.Errorf("%w: only 1 left", services.ErrCartInsufficientStock), http.StatusConflict, "insufficient_stock"},
		{services.ErrCartUnavailable, http.StatusServiceUnavailable, "cart_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			router := newCartRouter(&stubCartService{
				addFn: func(context.Context, services.AddCartItemCommand) (services.CartView, error) {
					return services.CartView{}, tc.err
				},
			})
			req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"p","variantId":"v","quantity":1}`))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if body := decodeBody(t, rr); body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
		})
	}
}

func TestCartHandlers_UpdateItemRequiresQuantity(t *testing.T) {
	router := newCartRouter(&stubCartService{
		updateFn: func(context.Context, string, string, int) (services.CartView, error) {
			t.Fatalf("service should not be called")
			return services.CartView{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/line-1", strings.NewReader(`{}`))
	req.Header.Set(CartHeaderName, "cart-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	fields, _ := decodeBody(t, rr)["fields"].(map[string]any)
	if fields["quantity"] != "required" {
		t.Fatalf("expected quantity field error, got %v", fields)
	}
}

func TestCartHandlers_UpdateItemPassesIdentifiers(t *testing.T) {
	var gotCart, gotItem string
	var gotQty int
	router := newCartRouter(&stubCartService{
		updateFn: func(_ context.Context, cartID, itemID string, qty int) (services.CartView, error) {
			gotCart, gotItem, gotQty = cartID, itemID, qty
			return cartView(cartID), nil
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/line-9", strings.NewReader(`{"quantity":0}`))
	req.Header.Set(CartHeaderName, "cart-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotCart != "cart-1" || gotItem != "line-9" || gotQty != 0 {
		t.Fatalf("unexpected args cart=%s item=%s qty=%d", gotCart, gotItem, gotQty)
	}
}

func TestCartHandlers_ClearIgnoresMissingCart(t *testing.T) {
	router := newCartRouter(&stubCartService{
		clearFn: func(context.Context, string) error { return services.ErrCartNotFound },
	})

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "gone"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if cookie := findCookie(rr, CartCookieName); cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared, got %+v", cookie)
	}
}

func TestCartHandlers_ShippingSelection(t *testing.T) {
	var gotDest services.Destination
	var gotMethod string
	router := newCartRouter(&stubCartService{
		destFn: func(_ context.Context, id string, dest services.Destination) (services.CartView, error) {
			gotDest = dest
			view := cartView(id)
			view.Quotes = []services.ShippingQuote{{Method: domain.ShippingMethodStandard, AmountCents: 1800}}
			return view, nil
		},
		shippingFn: func(_ context.Context, id, method string) (services.CartView, error) {
			gotMethod = method
			if method == "teleport" {
				return services.CartView{}, services.ErrCartShippingUnavailable
			}
			return cartView(id), nil
		},
	})

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(CartHeaderName, "cart-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := send(http.MethodPut, "/cart/destination", `{"country":"AU","state":"NSW","postcode":"2000"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotDest.Postcode != "2000" || gotDest.State != "NSW" {
		t.Fatalf("unexpected destination %+v", gotDest)
	}

	rr = send(http.MethodPut, "/cart/shipping-method", `{"method":"express"}`)
	if rr.Code != http.StatusOK || gotMethod != "express" {
		t.Fatalf("expected express selection, got status %d method %q", rr.Code, gotMethod)
	}

	rr = send(http.MethodPut, "/cart/shipping-method", `{"method":"teleport"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}
