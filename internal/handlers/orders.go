package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const maxOrderBodySize = 8 * 1024

// OrderHandlers exposes back-office order management.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs admin order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints under the admin group.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/orders", func(rt chi.Router) {
		rt.Get("/", h.listOrders)
		rt.Get("/stats", h.stats)
		rt.Get("/{orderID}", h.getOrder)
		rt.Put("/{orderID}/status", h.updateStatus)
		rt.Post("/{orderID}/refund", h.refund)
		rt.Post("/{orderID}/ledger-sync", h.resyncLedger)
	})
}

type orderStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type refundRequest struct {
	AmountCents *int64 `json:"amountCents"`
	Reason      string `json:"reason"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	query := r.URL.Query()
	params, err := pagination.Parse(query, pagination.Options{DefaultPageSize: 25, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	filter := domain.OrderListFilter{
		Email:      strings.TrimSpace(query.Get("email")),
		Pagination: services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			status, ok := parseOrderStatus(value)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_query", "unknown status "+strings.TrimSpace(value), http.StatusBadRequest))
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if page.Items == nil {
		page.Items = []services.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *OrderHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	stats, err := h.orders.Stats(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	var req orderStatusRequest
	if err := httpx.DecodeJSON(r, maxOrderBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	status, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is invalid", http.StatusBadRequest).
			WithFields(map[string]string{"status": "must be one of pending_payment, paid, fulfilled, cancelled, refunded"}))
		return
	}
	order, err := h.orders.UpdateStatus(ctx, services.OrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  status,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) refund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	var req refundRequest
	if err := httpx.DecodeJSON(r, maxOrderBodySize, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	order, err := h.orders.Refund(ctx, services.RefundOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Amount:  req.AmountCents,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) resyncLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	order, err := h.orders.ResyncLedger(ctx, chi.URLParam(r, "orderID"))
	if err != nil && !errors.Is(err, services.ErrOrderLedgerFailed) {
		writeOrderError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if err != nil || order.Ledger.Status == domain.LedgerStatusFailed {
		status = http.StatusBadGateway
	}
	httpx.WriteJSON(w, status, order)
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderRefundFailed):
		httpx.WriteError(ctx, w, httpx.NewError("refund_failed", err.Error(), http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderLedgerFailed):
		httpx.WriteError(ctx, w, httpx.NewError("ledger_failed", err.Error(), http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderUnavailable):
		writeUnavailable(ctx, w, "order")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order", http.StatusInternalServerError))
	}
}
