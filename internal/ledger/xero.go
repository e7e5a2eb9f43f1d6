package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTimeout = 10 * time.Second
	tenantHeader   = "xero-tenant-id"
	maxErrorBody   = 4 << 10
	dateLayout     = "2006-01-02"
)

// APIError reports a non-2xx ledger response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger: status %d: %s", e.Status, e.Body)
}

// XeroConfig configures the accounting API client.
type XeroConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	TenantID     string
	Scopes       []string
	Timeout      time.Duration
	// HTTPClient is used for token and API calls; it defaults to a client with Timeout.
	HTTPClient *http.Client
}

// XeroClient talks to the Xero accounting API with client-credentials tokens.
type XeroClient struct {
	baseURL  string
	tenantID string
	http     *http.Client
}

var _ Client = (*XeroClient)(nil)

// NewXeroClient builds a client whose transport refreshes tokens automatically.
func NewXeroClient(ctx context.Context, cfg XeroConfig) (*XeroClient, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("ledger: client id and secret are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("ledger: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	underlying := cfg.HTTPClient
	if underlying == nil {
		underlying = &http.Client{Timeout: timeout}
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, underlying)
	client := cc.Client(tokenCtx)
	client.Timeout = timeout

	return &XeroClient{baseURL: base, tenantID: strings.TrimSpace(cfg.TenantID), http: client}, nil
}

type xeroPhone struct {
	PhoneType   string `json:"PhoneType"`
	PhoneNumber string `json:"PhoneNumber"`
}

type xeroAddress struct {
	AddressType  string `json:"AddressType"`
	AddressLine1 string `json:"AddressLine1,omitempty"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City,omitempty"`
	Region       string `json:"Region,omitempty"`
	PostalCode   string `json:"PostalCode,omitempty"`
	Country      string `json:"Country,omitempty"`
}

type xeroContact struct {
	ContactID    string        `json:"ContactID,omitempty"`
	Name         string        `json:"Name,omitempty"`
	EmailAddress string        `json:"EmailAddress,omitempty"`
	Phones       []xeroPhone   `json:"Phones,omitempty"`
	Addresses    []xeroAddress `json:"Addresses,omitempty"`
}

type xeroLineItem struct {
	Description string      `json:"Description"`
	Quantity    int         `json:"Quantity"`
	UnitAmount  json.Number `json:"UnitAmount"`
	AccountCode string      `json:"AccountCode,omitempty"`
	TaxType     string      `json:"TaxType,omitempty"`
	ItemCode    string      `json:"ItemCode,omitempty"`
}

type xeroInvoice struct {
	InvoiceID       string         `json:"InvoiceID,omitempty"`
	InvoiceNumber   string         `json:"InvoiceNumber,omitempty"`
	Type            string         `json:"Type,omitempty"`
	Contact         *xeroContact   `json:"Contact,omitempty"`
	LineAmountTypes string         `json:"LineAmountTypes,omitempty"`
	Status          string         `json:"Status,omitempty"`
	Reference       string         `json:"Reference,omitempty"`
	Date            string         `json:"Date,omitempty"`
	DueDate         string         `json:"DueDate,omitempty"`
	CurrencyCode    string         `json:"CurrencyCode,omitempty"`
	LineItems       []xeroLineItem `json:"LineItems,omitempty"`
	Total           json.Number    `json:"Total,omitempty"`
}

type xeroPayment struct {
	PaymentID string       `json:"PaymentID,omitempty"`
	Invoice   *xeroInvoice `json:"Invoice,omitempty"`
	Account   *struct {
		Code string `json:"Code"`
	} `json:"Account,omitempty"`
	Amount    json.Number `json:"Amount,omitempty"`
	Date      string      `json:"Date,omitempty"`
	Reference string      `json:"Reference,omitempty"`
}

// UpsertContact creates or updates the contact and returns its ledger id. Xero matches existing
// contacts by name.
func (c *XeroClient) UpsertContact(ctx context.Context, contact Contact) (string, error) {
	payload := xeroContact{Name: contact.Name, EmailAddress: contact.Email}
	if contact.Phone != "" {
		payload.Phones = []xeroPhone{{PhoneType: "DEFAULT", PhoneNumber: contact.Phone}}
	}
	if a := contact.Address; a.Line1 != "" {
		payload.Addresses = []xeroAddress{{
			AddressType:  "STREET",
			AddressLine1: a.Line1,
			AddressLine2: a.Line2,
			City:         a.Suburb,
			Region:       a.State,
			PostalCode:   a.Postcode,
			Country:      a.Country,
		}}
	}

	var resp struct {
		Contacts []xeroContact `json:"Contacts"`
	}
	if err := c.do(ctx, http.MethodPost, "Contacts", map[string]any{"Contacts": []xeroContact{payload}}, &resp); err != nil {
		return "", err
	}
	if len(resp.Contacts) == 0 || resp.Contacts[0].ContactID == "" {
		return "", errors.New("ledger: contact response missing id")
	}
	return resp.Contacts[0].ContactID, nil
}

// CreateInvoice posts an authorised ACCREC invoice with tax-inclusive line amounts.
func (c *XeroClient) CreateInvoice(ctx context.Context, invoice Invoice) (InvoiceResult, error) {
	payload := xeroInvoice{
		Type:            "ACCREC",
		Contact:         &xeroContact{ContactID: invoice.ContactID},
		LineAmountTypes: "Inclusive",
		Status:          "AUTHORISED",
		Reference:       invoice.Reference,
		Date:            formatDate(invoice.Date),
		DueDate:         formatDate(invoice.DueDate),
		CurrencyCode:    invoice.Currency,
	}
	for _, item := range invoice.LineItems {
		payload.LineItems = append(payload.LineItems, xeroLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitAmount:  centsToNumber(item.UnitAmountCents),
			AccountCode: item.AccountCode,
			TaxType:     item.TaxType,
			ItemCode:    item.ItemCode,
		})
	}

	var resp struct {
		Invoices []xeroInvoice `json:"Invoices"`
	}
	if err := c.do(ctx, http.MethodPost, "Invoices", map[string]any{"Invoices": []xeroInvoice{payload}}, &resp); err != nil {
		return InvoiceResult{}, err
	}
	if len(resp.Invoices) == 0 || resp.Invoices[0].InvoiceID == "" {
		return InvoiceResult{}, errors.New("ledger: invoice response missing id")
	}
	created := resp.Invoices[0]
	return InvoiceResult{
		InvoiceID:     created.InvoiceID,
		InvoiceNumber: created.InvoiceNumber,
		TotalCents:    numberToCents(created.Total),
	}, nil
}

// RecordPayment applies a payment to an invoice and returns the payment id.
func (c *XeroClient) RecordPayment(ctx context.Context, payment Payment) (string, error) {
	payload := xeroPayment{
		Invoice:   &xeroInvoice{InvoiceID: payment.InvoiceID},
		Amount:    centsToNumber(payment.AmountCents),
		Date:      formatDate(payment.Date),
		Reference: payment.Reference,
	}
	payload.Account = &struct {
		Code string `json:"Code"`
	}{Code: payment.AccountCode}

	var resp struct {
		Payments []xeroPayment `json:"Payments"`
	}
	if err := c.do(ctx, http.MethodPut, "Payments", map[string]any{"Payments": []xeroPayment{payload}}, &resp); err != nil {
		return "", err
	}
	if len(resp.Payments) == 0 {
		return "", errors.New("ledger: payment response empty")
	}
	return resp.Payments[0].PaymentID, nil
}

// Ping fetches the organisation record to confirm credentials and tenant.
func (c *XeroClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "Organisation", nil, nil)
}

func (c *XeroClient) do(ctx context.Context, method, path string, body any, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenantID != "" {
		req.Header.Set(tenantHeader, c.tenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger: decode %s: %w", path, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func centsToNumber(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).StringFixed(2))
}

func numberToCents(n json.Number) int64 {
	if n == "" {
		return 0
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
