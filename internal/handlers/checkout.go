package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers turns the caller's cart into a pending order and a hosted payment page.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(CartMiddleware)
	r.Post("/", h.startCheckout)
}

type checkoutResponse struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	TotalCents  int64  `json:"totalCents"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirectUrl"`
}

func (h *CheckoutHandlers) startCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	cartID := requestctx.CartID(ctx)
	if cartID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("cart_required", "a cart is required to check out", http.StatusBadRequest))
		return
	}

	var cmd services.StartCheckoutCommand
	if err := httpx.DecodeJSON(r, maxCheckoutRequestBody, &cmd); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	cmd.CartID = cartID

	result, err := h.checkout.StartCheckout(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.Number,
		Status:      string(result.Order.Status),
		TotalCents:  result.Order.Totals.TotalCents,
		Currency:    result.Order.Currency,
		RedirectURL: result.RedirectURL,
	})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment provider rejected the checkout", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		writeUnavailable(ctx, w, "checkout")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to start checkout", http.StatusInternalServerError))
	}
}
