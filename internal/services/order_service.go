package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/ledger"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/idempotency"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

const (
	// OrderEventPaid is published once an order has collected payment.
	OrderEventPaid = "order.paid"
	// OrderEventRefunded is published after a refund is issued or reported by the gateway.
	OrderEventRefunded = "order.refunded"
	// OrderEventCancelled is published when a pending order is abandoned or cancelled.
	OrderEventCancelled = "order.cancelled"

	paymentEventTTL  = 7 * 24 * time.Hour
	statsPageSize    = 100
	recentOrderLimit = 5

	paymentPartiallyRefunded = "partially_refunded"
)

var (
	// ErrOrderInvalidInput indicates a malformed admin command or webhook payload.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderInvalidSignature indicates the webhook signature did not verify.
	ErrOrderInvalidSignature = errors.New("order: invalid webhook signature")
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates the status change is not allowed from the current status.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderEventInProgress indicates the same webhook event is being handled concurrently.
	ErrOrderEventInProgress = errors.New("order: payment event in progress")
	// ErrOrderRefundFailed indicates the gateway rejected the refund.
	ErrOrderRefundFailed = errors.New("order: refund failed")
	// ErrOrderLedgerFailed indicates the accounting sync did not complete.
	ErrOrderLedgerFailed = errors.New("order: ledger sync failed")
	// ErrOrderUnavailable indicates a backend failure.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// OrderEvent is the message published for downstream consumers such as fulfilment and email.
type OrderEvent struct {
	Type           string             `json:"type"`
	OrderID        string             `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	Status         domain.OrderStatus `json:"status"`
	TotalCents     int64              `json:"totalCents"`
	Currency       string             `json:"currency"`
	Email          string             `json:"email,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// OrderEventPublisher delivers order events to the message bus.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// paymentGateway abstracts payments.Manager for the order workflow.
type paymentGateway interface {
	ParseWebhook(providerKey string, payload []byte, signature string) (payments.WebhookEvent, error)
	Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.PaymentDetails, error)
}

// stockDecrementer is the slice of CatalogService the order workflow needs.
type stockDecrementer interface {
	DecrementStock(ctx context.Context, lines []StockLine) error
}

// OrderServiceDeps wires the order service.
type OrderServiceDeps struct {
	Orders         repositories.OrderRepository
	Carts          repositories.CartRepository
	Stock          stockDecrementer
	Payments       paymentGateway
	Ledger         ledger.Client
	LedgerAccounts ledger.Accounts
	LedgerEnabled  bool
	Events         OrderEventPublisher
	Idempotency    idempotency.Store
	Clock          func() time.Time
	Logger         Logger
}

type orderService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	stock    stockDecrementer
	payments paymentGateway
	ledger   ledger.Client
	accounts ledger.Accounts
	ledgerOn bool
	events   OrderEventPublisher
	dedupe   idempotency.Store
	now      func() time.Time
	logger   Logger
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs an OrderService. Events and Ledger are optional; without an
// idempotency store, webhook deliveries are deduplicated in memory.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("order service: stock decrementer is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order service: payment gateway is required")
	}
	if deps.LedgerEnabled && deps.Ledger == nil {
		return nil, errors.New("order service: ledger client is required when ledger sync is enabled")
	}
	client := deps.Ledger
	if client == nil {
		client = ledger.NoopClient{}
	}
	store := deps.Idempotency
	if store == nil {
		store = idempotency.NewMemoryStore()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &orderService{
		orders:   deps.Orders,
		carts:    deps.Carts,
		stock:    deps.Stock,
		payments: deps.Payments,
		ledger:   client,
		accounts: deps.LedgerAccounts,
		ledgerOn: deps.LedgerEnabled,
		events:   deps.Events,
		dedupe:   store,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// HandlePaymentEvent verifies a gateway webhook and applies it to the matching order. Each event
// id is processed once; redeliveries return the stored outcome with Action "duplicate".
func (s *orderService) HandlePaymentEvent(ctx context.Context, provider string, payload []byte, signature string) (PaymentEventResult, error) {
	event, err := s.payments.ParseWebhook(provider, payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return PaymentEventResult{}, fmt.Errorf("%w: %v", ErrOrderInvalidSignature, err)
		}
		return PaymentEventResult{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	result := PaymentEventResult{EventID: event.ID, OrderID: event.OrderID, Action: "ignored"}
	if event.Kind == payments.EventIgnored || event.Kind == "" {
		return result, nil
	}

	key := "payment-event:" + event.Provider + ":" + event.ID
	fingerprint := idempotency.Fingerprint(event.Type, event.SessionID, event.IntentID)
	reservation, err := s.dedupe.Reserve(ctx, key, fingerprint, s.now(), paymentEventTTL)
	if err != nil {
		if errors.Is(err, idempotency.ErrFingerprintMismatch) {
			return result, fmt.Errorf("%w: event id reused for different payload", ErrOrderInvalidInput)
		}
		return result, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}
	switch reservation.State {
	case idempotency.ReservationStateCompleted:
		var stored PaymentEventResult
		if err := json.Unmarshal(reservation.Record.ResponseBody, &stored); err == nil {
			result.OrderID = stored.OrderID
		}
		result.Action = "duplicate"
		return result, nil
	case idempotency.ReservationStatePending:
		return result, ErrOrderEventInProgress
	}

	result, err = s.applyPaymentEvent(ctx, event)
	if err != nil {
		if releaseErr := s.dedupe.Release(ctx, key, fingerprint); releaseErr != nil {
			s.logger(ctx, "payment_event.release_failed", map[string]any{"eventId": event.ID, "error": releaseErr.Error()})
		}
		return result, err
	}
	body, _ := json.Marshal(result)
	if err := s.dedupe.SaveResponse(ctx, key, fingerprint, idempotency.Response{Status: http.StatusOK, Body: body}, s.now(), paymentEventTTL); err != nil {
		s.logger(ctx, "payment_event.save_failed", map[string]any{"eventId": event.ID, "error": err.Error()})
	}
	return result, nil
}

func (s *orderService) applyPaymentEvent(ctx context.Context, event payments.WebhookEvent) (PaymentEventResult, error) {
	result := PaymentEventResult{EventID: event.ID, OrderID: event.OrderID}
	order, found, err := s.orderForEvent(ctx, event)
	if err != nil {
		return result, err
	}
	if !found {
		s.logger(ctx, "payment_event.order_missing", map[string]any{
			"eventId":   event.ID,
			"type":      event.Type,
			"orderId":   event.OrderID,
			"sessionId": event.SessionID,
		})
		result.Action = "order_not_found"
		return result, nil
	}
	result.OrderID = order.ID

	switch event.Kind {
	case payments.EventCheckoutCompleted:
		if !event.Paid() {
			result.Action = "awaiting_payment"
			return result, nil
		}
		result.Action, err = s.markPaid(ctx, order, event)
	case payments.EventCheckoutExpired, payments.EventPaymentFailed:
		result.Action, err = s.cancelPending(ctx, order, event)
	case payments.EventRefunded:
		result.Action, err = s.markRefunded(ctx, order, event)
	default:
		result.Action = "ignored"
	}
	return result, err
}

func (s *orderService) orderForEvent(ctx context.Context, event payments.WebhookEvent) (Order, bool, error) {
	if id := strings.TrimSpace(event.OrderID); id != "" {
		order, err := s.orders.Get(ctx, id)
		if err == nil {
			return order, true, nil
		}
		if !isRepoNotFound(err) {
			return Order{}, false, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
		}
	}
	if sessionID := strings.TrimSpace(event.SessionID); sessionID != "" {
		order, err := s.orders.FindByPaymentSession(ctx, sessionID)
		if err == nil {
			return order, true, nil
		}
		if !isRepoNotFound(err) {
			return Order{}, false, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
		}
	}
	return Order{}, false, nil
}

// markPaid moves a pending order to paid. Stock, cart cleanup, ledger sync and event publishing
// are best effort; their failures are logged and never undo the payment.
func (s *orderService) markPaid(ctx context.Context, order Order, event payments.WebhookEvent) (string, error) {
	if order.Status != domain.OrderStatusPendingPayment {
		if order.Status == domain.OrderStatusCancelled {
			s.logger(ctx, "payment_event.paid_after_cancel", map[string]any{"orderId": order.ID, "eventId": event.ID})
		}
		return "already_processed", nil
	}
	now := s.now()
	order.Status = domain.OrderStatusPaid
	order.PaidAt = &now
	order.Payment.Status = string(payments.StatusSucceeded)
	order.Payment.LastEventID = event.ID
	order.Payment.CapturedAt = &now
	if order.Payment.Provider == "" {
		order.Payment.Provider = event.Provider
	}
	if event.IntentID != "" {
		order.Payment.IntentID = event.IntentID
	}
	if event.AmountTotal > 0 {
		order.Payment.AmountCents = event.AmountTotal
		if event.AmountTotal != order.Totals.TotalCents {
			s.logger(ctx, "payment_event.amount_mismatch", map[string]any{
				"orderId":  order.ID,
				"expected": order.Totals.TotalCents,
				"received": event.AmountTotal,
			})
		}
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return "", translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}

	lines := make([]StockLine, 0, len(saved.Items))
	for _, item := range saved.Items {
		lines = append(lines, StockLine{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
	}
	if err := s.stock.DecrementStock(ctx, lines); err != nil {
		s.logger(ctx, "order.stock_decrement_failed", map[string]any{"orderId": saved.ID, "error": err.Error()})
	}
	if saved.CartID != "" {
		if err := s.carts.Delete(ctx, saved.CartID); err != nil && !isRepoNotFound(err) {
			s.logger(ctx, "order.cart_cleanup_failed", map[string]any{"orderId": saved.ID, "cartId": saved.CartID, "error": err.Error()})
		}
	}

	saved = s.syncLedger(ctx, saved)
	if final, err := s.orders.Save(ctx, saved); err != nil {
		s.logger(ctx, "order.ledger_state_save_failed", map[string]any{"orderId": saved.ID, "error": err.Error()})
	} else {
		saved = final
	}
	s.publish(ctx, OrderEventPaid, saved)
	s.logger(ctx, "order.paid", map[string]any{
		"orderId":     saved.ID,
		"orderNumber": saved.Number,
		"totalCents":  saved.Totals.TotalCents,
		"ledger":      saved.Ledger.Status,
	})
	return "paid", nil
}

func (s *orderService) cancelPending(ctx context.Context, order Order, event payments.WebhookEvent) (string, error) {
	if order.Status != domain.OrderStatusPendingPayment {
		return "already_processed", nil
	}
	now := s.now()
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	order.Payment.Status = string(payments.StatusFailed)
	order.Payment.LastEventID = event.ID
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return "", translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	s.publish(ctx, OrderEventCancelled, saved)
	return "cancelled", nil
}

// markRefunded records a gateway-side refund. Partial refunds only update the payment. Orders
// that cannot move to refunded, such as fulfilled ones, keep their status and only record the
// payment state.
func (s *orderService) markRefunded(ctx context.Context, order Order, event payments.WebhookEvent) (string, error) {
	if order.Status == domain.OrderStatusRefunded {
		return "already_processed", nil
	}
	if event.AmountTotal > order.Payment.RefundedCents {
		order.Payment.RefundedCents = event.AmountTotal
	}
	order.Payment.LastEventID = event.ID
	if !event.FullyRefunded {
		order.Payment.Status = paymentPartiallyRefunded
		if _, err := s.orders.Save(ctx, order); err != nil {
			return "", translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
		}
		return "partial_refund_recorded", nil
	}

	now := s.now()
	order.Payment.Status = string(payments.StatusRefunded)
	action := "refund_recorded"
	if order.Status.CanTransition(domain.OrderStatusRefunded) {
		order.Status = domain.OrderStatusRefunded
		order.RefundedAt = &now
		action = "refunded"
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return "", translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	if action == "refunded" {
		s.publish(ctx, OrderEventRefunded, saved)
	}
	return action, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderListFilter) (domain.CursorPage[Order], error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}
	filter.Email = strings.TrimSpace(filter.Email)
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, translateRepoError(err, nil, nil, ErrOrderUnavailable)
	}
	return page, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Order{}, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	return order, nil
}

// UpdateStatus applies an admin status change along the allowed transitions. Setting the current
// status again is a no-op.
func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error) {
	if !cmd.Status.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}
	order, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status == cmd.Status {
		return order, nil
	}
	if !order.Status.CanTransition(cmd.Status) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidTransition, order.Status, cmd.Status)
	}
	previous := order.Status
	now := s.now()
	order.Status = cmd.Status
	switch cmd.Status {
	case domain.OrderStatusPaid:
		order.PaidAt = &now
		order.Payment.Status = "manual"
	case domain.OrderStatusFulfilled:
		order.FulfilledAt = &now
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
	case domain.OrderStatusRefunded:
		order.RefundedAt = &now
	}
	if cmd.Status == domain.OrderStatusPaid {
		order = s.syncLedger(ctx, order)
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return Order{}, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	switch cmd.Status {
	case domain.OrderStatusPaid:
		s.publish(ctx, OrderEventPaid, saved)
	case domain.OrderStatusCancelled:
		s.publish(ctx, OrderEventCancelled, saved)
	case domain.OrderStatusRefunded:
		s.publish(ctx, OrderEventRefunded, saved)
	}
	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": saved.ID,
		"from":    string(previous),
		"to":      string(saved.Status),
		"note":    strings.TrimSpace(cmd.Note),
	})
	return saved, nil
}

// Refund issues a gateway refund for a paid order. A full refund moves the order to refunded; a
// partial one keeps it paid and marks the payment partially refunded.
func (s *orderService) Refund(ctx context.Context, cmd RefundOrderCommand) (Order, error) {
	order, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !order.Status.CanTransition(domain.OrderStatusRefunded) {
		return Order{}, fmt.Errorf("%w: cannot refund a %s order", ErrOrderInvalidTransition, order.Status)
	}
	if order.Payment.IntentID == "" {
		return Order{}, fmt.Errorf("%w: order has no captured payment", ErrOrderInvalidInput)
	}
	captured := order.Payment.AmountCents
	if captured <= 0 {
		captured = order.Totals.TotalCents
	}
	remaining := captured - order.Payment.RefundedCents
	if remaining <= 0 {
		return Order{}, fmt.Errorf("%w: order has nothing left to refund", ErrOrderInvalidInput)
	}
	amount := remaining
	var requested *int64
	if cmd.Amount != nil {
		amount = *cmd.Amount
		if amount <= 0 || amount > remaining {
			return Order{}, fmt.Errorf("%w: refund amount must be between 1 and %d", ErrOrderInvalidInput, remaining)
		}
		requested = &amount
	}
	full := amount == remaining
	// The key covers the amount already refunded so a repeated equal amount is a new refund
	// while a retried request replays the first.
	idemKey := fmt.Sprintf("refund-%s-%d-%d", order.ID, order.Payment.RefundedCents, amount)

	details, err := s.payments.Refund(ctx, payments.PaymentContext{Provider: order.Payment.Provider, Currency: order.Currency}, payments.RefundRequest{
		IntentID:       order.Payment.IntentID,
		Amount:         requested,
		Reason:         cmd.Reason,
		IdempotencyKey: idemKey,
		Metadata:       map[string]string{"orderId": order.ID, "orderNumber": order.Number},
	})
	if err != nil {
		s.logger(ctx, "order.refund_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return Order{}, fmt.Errorf("%w: %v", ErrOrderRefundFailed, err)
	}

	now := s.now()
	order.Payment.RefundID = details.RefundID
	order.Payment.RefundedCents += amount
	if full {
		order.Status = domain.OrderStatusRefunded
		order.RefundedAt = &now
		order.Payment.Status = string(payments.StatusRefunded)
	} else {
		order.Payment.Status = paymentPartiallyRefunded
	}
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return Order{}, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	if full {
		s.publish(ctx, OrderEventRefunded, saved)
	}
	s.logger(ctx, "order.refunded", map[string]any{
		"orderId":  saved.ID,
		"refundId": details.RefundID,
		"full":     full,
		"reason":   cmd.Reason,
	})
	return saved, nil
}

// ResyncLedger retries accounting sync for a paid or fulfilled order. Steps that already
// succeeded are skipped.
func (s *orderService) ResyncLedger(ctx context.Context, orderID string) (Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusPaid && order.Status != domain.OrderStatusFulfilled {
		return Order{}, fmt.Errorf("%w: ledger sync requires a paid order", ErrOrderInvalidInput)
	}
	order = s.syncLedger(ctx, order)
	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return Order{}, translateRepoError(err, ErrOrderNotFound, nil, ErrOrderUnavailable)
	}
	if saved.Ledger.Status == domain.LedgerStatusFailed {
		return saved, fmt.Errorf("%w: %s", ErrOrderLedgerFailed, saved.Ledger.LastError)
	}
	return saved, nil
}

func (s *orderService) Stats(ctx context.Context) (OrderStats, error) {
	stats := OrderStats{ByStatus: map[OrderStatus]int{}, Recent: []Order{}}
	filter := domain.OrderListFilter{Pagination: domain.Pagination{PageSize: statsPageSize}}
	for {
		page, err := s.orders.List(ctx, filter)
		if err != nil {
			return OrderStats{}, translateRepoError(err, nil, nil, ErrOrderUnavailable)
		}
		for _, order := range page.Items {
			stats.ByStatus[order.Status]++
			if len(stats.Recent) < recentOrderLimit {
				stats.Recent = append(stats.Recent, order)
			}
			if order.Status == domain.OrderStatusPaid || order.Status == domain.OrderStatusFulfilled {
				stats.RevenueCents += order.Totals.TotalCents
			}
			if order.Ledger.Status == domain.LedgerStatusFailed {
				stats.LedgerFailed++
			}
		}
		if page.NextPageToken == "" {
			break
		}
		filter.Pagination.PageToken = page.NextPageToken
	}
	return stats, nil
}

// syncLedger pushes the contact, invoice and payment for a paid order, resuming after the last
// step that succeeded. Failures are recorded on the order, not returned.
func (s *orderService) syncLedger(ctx context.Context, order Order) Order {
	if !s.ledgerOn {
		order.Ledger.Status = domain.LedgerStatusDisabled
		return order
	}
	order.Ledger.Attempts++
	fail := func(step string, err error) Order {
		order.Ledger.Status = domain.LedgerStatusFailed
		order.Ledger.LastError = fmt.Sprintf("%s: %v", step, err)
		s.logger(ctx, "order.ledger_failed", map[string]any{
			"orderId":  order.ID,
			"step":     step,
			"attempts": order.Ledger.Attempts,
			"error":    err.Error(),
		})
		return order
	}

	if order.Ledger.ContactID == "" {
		id, err := s.ledger.UpsertContact(ctx, ledger.ContactFromOrder(order))
		if err != nil {
			return fail("contact", err)
		}
		order.Ledger.ContactID = id
	}
	if order.Ledger.InvoiceID == "" {
		result, err := s.ledger.CreateInvoice(ctx, ledger.BuildInvoice(order, order.Ledger.ContactID, s.accounts))
		if err != nil {
			return fail("invoice", err)
		}
		order.Ledger.InvoiceID = result.InvoiceID
	}
	if order.Ledger.PaymentID == "" {
		paidAt := s.now()
		if order.PaidAt != nil {
			paidAt = *order.PaidAt
		}
		reference := order.Payment.IntentID
		if reference == "" {
			reference = order.Number
		}
		id, err := s.ledger.RecordPayment(ctx, ledger.Payment{
			InvoiceID:   order.Ledger.InvoiceID,
			AccountCode: s.accounts.Payment,
			AmountCents: order.Totals.TotalCents,
			Date:        paidAt,
			Reference:   reference,
		})
		if err != nil {
			return fail("payment", err)
		}
		order.Ledger.PaymentID = id
	}
	now := s.now()
	order.Ledger.Status = domain.LedgerStatusSynced
	order.Ledger.LastError = ""
	order.Ledger.SyncedAt = &now
	return order
}

func (s *orderService) publish(ctx context.Context, eventType string, order Order) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		Status:         order.Status,
		TotalCents:     order.Totals.TotalCents,
		Currency:       order.Currency,
		Email:          order.Customer.Email,
		OccurredAt:     s.now(),
		IdempotencyKey: eventType + ":" + order.ID,
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{"orderId": order.ID, "type": eventType, "error": err.Error()})
	}
}
