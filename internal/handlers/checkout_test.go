package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

func newCheckoutRouter(svc services.CheckoutService) chi.Router {
	r := chi.NewRouter()
	r.Route("/checkout", NewCheckoutHandlers(svc).Routes)
	return r
}

const checkoutBody = `{"customer":{"name":"Jo Smith","email":"jo@example.com"},"address":{"name":"Jo Smith","line1":"1 Forge St","suburb":"Geelong","state":"VIC","postcode":"3220","country":"AU"}}`

func TestCheckoutHandlers_RequiresCart(t *testing.T) {
	router := newCheckoutRouter(&stubCheckoutService{
		startFn: func(context.Context, services.StartCheckoutCommand) (services.CheckoutResult, error) {
			t.Fatalf("service should not be called")
			return services.CheckoutResult{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(checkoutBody))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "cart_required" {
		t.Fatalf("expected cart_required, got %v", body["error"])
	}
}

func TestCheckoutHandlers_StartCheckout(t *testing.T) {
	var captured services.StartCheckoutCommand
	router := newCheckoutRouter(&stubCheckoutService{
		startFn: func(_ context.Context, cmd services.StartCheckoutCommand) (services.CheckoutResult, error) {
			captured = cmd
			return services.CheckoutResult{
				Order: services.Order{
					ID:       "ord_1",
					Number:   "FAB-1001",
					Status:   domain.OrderStatusPendingPayment,
					Currency: "AUD",
					Totals:   services.CartTotals{TotalCents: 12900},
				},
				RedirectURL: "https://checkout.stripe.test/session",
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(checkoutBody))
	req.AddCookie(&http.Cookie{Name: CartCookieName, Value: "cart-42"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CartID != "cart-42" || captured.Customer.Email != "jo@example.com" {
		t.Fatalf("unexpected command %+v", captured)
	}
	body := decodeBody(t, rr)
	if body["redirectUrl"] != "https://checkout.stripe.test/session" {
		t.Fatalf("expected redirect url, got %v", body["redirectUrl"])
	}
	if body["orderNumber"] != "FAB-1001" || body["status"] != "pending_payment" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["totalCents"] != float64(12900) {
		t.Fatalf("expected total 12900, got %v", body["totalCents"])
	}
}

func TestCheckoutHandlers_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrCheckoutInvalidInput, http.StatusBadRequest, "invalid_request"},
		{services.ErrCheckoutCartNotFound, http.StatusNotFound, "cart_not_found"},
		{services.ErrCheckoutEmptyCart, http.StatusConflict, "cart_empty"},
		{services.ErrCheckoutInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{services.ErrCheckoutShippingUnavailable, http.StatusUnprocessableEntity, "shipping_unavailable"},
		{services.ErrCheckoutPaymentFailed, http.StatusBadGateway, "payment_unavailable"},
		{services.ErrCheckoutUnavailable, http.StatusServiceUnavailable, "checkout_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			router := newCheckoutRouter(&stubCheckoutService{
				startFn: func(context.Context, services.StartCheckoutCommand) (services.CheckoutResult, error) {
					return services.CheckoutResult{}, tc.err
				},
			})
			req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(checkoutBody))
			req.Header.Set(CartHeaderName, "cart-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if body := decodeBody(t, rr); body["error"] != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, body["error"])
			}
		})
	}
}
