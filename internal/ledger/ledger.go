package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
)

// Client syncs paid orders into the accounting ledger.
type Client interface {
	UpsertContact(ctx context.Context, contact Contact) (string, error)
	CreateInvoice(ctx context.Context, invoice Invoice) (InvoiceResult, error)
	RecordPayment(ctx context.Context, payment Payment) (string, error)
	Ping(ctx context.Context) error
}

// Contact is the customer record in the ledger.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Address domain.Address
}

// LineItem amounts are tax inclusive minor units.
type LineItem struct {
	Description     string
	Quantity        int
	UnitAmountCents int64
	AccountCode     string
	TaxType         string
	ItemCode        string
}

// Invoice is an accounts-receivable invoice for one order.
type Invoice struct {
	ContactID string
	Reference string
	Date      time.Time
	DueDate   time.Time
	Currency  string
	LineItems []LineItem
}

// TotalCents sums line amounts.
func (i Invoice) TotalCents() int64 {
	var total int64
	for _, item := range i.LineItems {
		total += item.UnitAmountCents * int64(item.Quantity)
	}
	return total
}

// InvoiceResult identifies the created invoice.
type InvoiceResult struct {
	InvoiceID     string
	InvoiceNumber string
	TotalCents    int64
}

// Payment applies money received against an invoice.
type Payment struct {
	InvoiceID   string
	AccountCode string
	AmountCents int64
	Date        time.Time
	Reference   string
}

// Accounts maps order components onto chart-of-accounts codes.
type Accounts struct {
	Sales    string
	Shipping string
	Payment  string
	TaxType  string
}

// ContactFromOrder derives the ledger contact for an order's customer.
func ContactFromOrder(order domain.Order) Contact {
	name := strings.TrimSpace(order.Customer.Name)
	if name == "" {
		name = order.Customer.Email
	}
	return Contact{
		Name:    name,
		Email:   order.Customer.Email,
		Phone:   order.Customer.Phone,
		Address: order.ShippingAddress,
	}
}

// BuildInvoice maps an order into an invoice with one line per item and shipping as its own line.
func BuildInvoice(order domain.Order, contactID string, accounts Accounts) Invoice {
	date := order.CreatedAt
	if order.PaidAt != nil {
		date = *order.PaidAt
	}
	invoice := Invoice{
		ContactID: contactID,
		Reference: order.Number,
		Date:      date,
		DueDate:   date,
		Currency:  order.Currency,
	}
	for _, item := range order.Items {
		desc := item.Title
		if item.VariantTitle != "" && item.VariantTitle != "Default Title" {
			desc = fmt.Sprintf("%s (%s)", item.Title, item.VariantTitle)
		}
		invoice.LineItems = append(invoice.LineItems, LineItem{
			Description:     desc,
			Quantity:        item.Quantity,
			UnitAmountCents: item.UnitPriceCents,
			AccountCode:     accounts.Sales,
			TaxType:         accounts.TaxType,
			ItemCode:        item.SKU,
		})
	}
	if order.Totals.ShippingCents > 0 {
		label := order.Shipping.Label
		if label == "" {
			label = "Shipping"
		}
		invoice.LineItems = append(invoice.LineItems, LineItem{
			Description:     label,
			Quantity:        1,
			UnitAmountCents: order.Totals.ShippingCents,
			AccountCode:     accounts.Shipping,
			TaxType:         accounts.TaxType,
		})
	}
	return invoice
}

// NoopClient is used when ledger sync is disabled.
type NoopClient struct{}

func (NoopClient) UpsertContact(context.Context, Contact) (string, error) { return "", nil }

func (NoopClient) CreateInvoice(context.Context, Invoice) (InvoiceResult, error) {
	return InvoiceResult{}, nil
}

func (NoopClient) RecordPayment(context.Context, Payment) (string, error) { return "", nil }

func (NoopClient) Ping(context.Context) error { return nil }
