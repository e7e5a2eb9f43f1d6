package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	maxWebhookBodySize    = 256 * 1024
	stripeSignatureHeader = "Stripe-Signature"
)

// WebhookHandlers receives payment gateway callbacks.
type WebhookHandlers struct {
	orders services.OrderService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orders: orders}
}

// Routes registers the webhook endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleProvider(payments.ProviderStripe, stripeSignatureHeader))
}

func (h *WebhookHandlers) handleProvider(provider, signatureHeader string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.orders == nil {
			writeUnavailable(ctx, w, "order")
			return
		}
		payload, err := httpx.ReadLimitedBody(r, maxWebhookBodySize)
		if err != nil {
			httpx.WriteDecodeError(w, r, err)
			return
		}
		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "missing "+signatureHeader+" header", http.StatusBadRequest))
			return
		}

		result, err := h.orders.HandlePaymentEvent(ctx, provider, payload, signature)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrOrderInvalidSignature):
				httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
			case errors.Is(err, services.ErrOrderInvalidInput):
				httpx.WriteError(ctx, w, httpx.NewError("invalid_event", err.Error(), http.StatusBadRequest))
			case errors.Is(err, services.ErrOrderEventInProgress):
				// The gateway retries non-2xx deliveries, which is what an in-flight duplicate needs.
				httpx.WriteError(ctx, w, httpx.NewError("event_in_progress", "event is already being processed", http.StatusConflict))
			default:
				httpx.WriteError(ctx, w, httpx.NewError("webhook_failed", "failed to process event", http.StatusInternalServerError))
			}
			return
		}
		httpx.WriteJSON(w, http.StatusOK, result)
	}
}
