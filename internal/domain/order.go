package domain

import "time"

// OrderStatus tracks the payment and fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusFulfilled      OrderStatus = "fulfilled"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusFulfilled, OrderStatusCancelled, OrderStatusRefunded},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Order is a placed checkout. Items and totals are frozen copies of the cart at checkout time.
type Order struct {
	ID              string        `json:"id"`
	Number          string        `json:"number"`
	CartID          string        `json:"cartId,omitempty"`
	Status          OrderStatus   `json:"status"`
	Items           []OrderItem   `json:"items"`
	Customer        Customer      `json:"customer"`
	ShippingAddress Address       `json:"shippingAddress"`
	Shipping        ShippingQuote `json:"shipping"`
	Totals          CartTotals    `json:"totals"`
	Currency        string        `json:"currency"`
	Payment         PaymentInfo   `json:"payment"`
	Ledger          LedgerInfo    `json:"ledger"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
	FulfilledAt     *time.Time    `json:"fulfilledAt,omitempty"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	RefundedAt      *time.Time    `json:"refundedAt,omitempty"`
}

// OrderItem is a purchased line.
type OrderItem struct {
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId"`
	Title          string `json:"title"`
	VariantTitle   string `json:"variantTitle,omitempty"`
	SKU            string `json:"sku,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
	WeightGrams    int    `json:"weightGrams"`
}

// Customer holds contact details captured at checkout. There are no customer accounts.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// PaymentInfo records gateway references for an order.
type PaymentInfo struct {
	Provider      string     `json:"provider,omitempty"`
	SessionID     string     `json:"sessionId,omitempty"`
	IntentID      string     `json:"intentId,omitempty"`
	Status        string     `json:"status,omitempty"`
	AmountCents   int64      `json:"amountCents"`
	RefundID      string     `json:"refundId,omitempty"`
	RefundedCents int64      `json:"refundedCents,omitempty"`
	LastEventID   string     `json:"lastEventId,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
	RedirectURL   string     `json:"redirectUrl,omitempty"`
	SessionError  string     `json:"sessionError,omitempty"`
}

// Ledger sync states.
const (
	LedgerStatusPending  = "pending"
	LedgerStatusSynced   = "synced"
	LedgerStatusFailed   = "failed"
	LedgerStatusDisabled = "disabled"
)

// LedgerInfo records accounting sync progress.
type LedgerInfo struct {
	Status    string     `json:"status,omitempty"`
	ContactID string     `json:"contactId,omitempty"`
	InvoiceID string     `json:"invoiceId,omitempty"`
	PaymentID string     `json:"paymentId,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Attempts  int        `json:"attempts,omitempty"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status     []OrderStatus
	Email      string
	Pagination Pagination
}
