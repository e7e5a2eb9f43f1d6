package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/payments"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories/documents"
)

const testOrderID = "01HZ0000000000000000ORDABCD"

func newCheckoutFixture(t *testing.T, gateway *stubCheckoutPayments) (CheckoutService, *documents.Registry) {
	t.Helper()
	reg := newTestRegistry(t)
	seedProducts(t, reg, gateHinge(), steelBollard(), giftVoucher(), draftPlate())
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:       reg.Carts(),
		Products:    reg.Products(),
		Orders:      reg.Orders(),
		Shipping:    newTestShipping(t),
		Payments:    gateway,
		Clock:       fixedClock,
		GSTRate:     0.1,
		Locale:      "en",
		SuccessURL:  "https://fabrow.test/checkout/success?order={ORDER_ID}",
		CancelURL:   "https://fabrow.test/cart?cancelled={ORDER_ID}",
		IDGenerator: func(time.Time) string { return testOrderID },
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	return svc, reg
}

func seedCart(t *testing.T, reg *documents.Registry, cart domain.Cart) {
	t.Helper()
	if _, err := reg.Carts().Save(context.Background(), cart); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func hingeCart(qty int) domain.Cart {
	return domain.Cart{
		ID:             "cart-1",
		Currency:       "AUD",
		ShippingMethod: domain.ShippingMethodExpress,
		Items: []domain.CartItem{{
			ID:               "line-1",
			ProductID:        "gate-hinge",
			VariantID:        "gate-hinge-small",
			Title:            "Heavy Gate Hinge",
			Quantity:         qty,
			UnitPriceCents:   999,
			WeightGrams:      450,
			RequiresShipping: true,
		}},
	}
}

func checkoutCommand() StartCheckoutCommand {
	return StartCheckoutCommand{
		CartID:   "cart-1",
		Customer: Customer{Name: " Sam Welder ", Email: "sam@example.com", Phone: "0400 000 000"},
		Address: Address{
			Line1:    "12 Forge St",
			Suburb:   "Adelaide",
			State:    "sa",
			Postcode: "5000",
		},
		Notes: " Leave at the gate ",
	}
}

func TestNewCheckoutServiceValidatesDeps(t *testing.T) {
	reg := newTestRegistry(t)
	deps := CheckoutServiceDeps{
		Carts:      reg.Carts(),
		Products:   reg.Products(),
		Orders:     reg.Orders(),
		Shipping:   newTestShipping(t),
		Payments:   &stubCheckoutPayments{},
		SuccessURL: "https://fabrow.test/ok",
	}
	if _, err := NewCheckoutService(deps); err == nil {
		t.Fatalf("expected error without cancel url")
	}
	deps.CancelURL = "https://fabrow.test/cancel"
	deps.Payments = nil
	if _, err := NewCheckoutService(deps); err == nil {
		t.Fatalf("expected error without payment manager")
	}
}

func TestCheckoutServiceStartCheckout(t *testing.T) {
	gateway := &stubCheckoutPayments{session: payments.CheckoutSession{
		ID:          "cs_test_1",
		Provider:    "stripe",
		RedirectURL: "https://checkout.stripe.test/cs_test_1",
	}}
	svc, reg := newCheckoutFixture(t, gateway)
	seedCart(t, reg, hingeCart(2))
	ctx := context.Background()

	result, err := svc.StartCheckout(ctx, checkoutCommand())
	if err != nil {
		t.Fatalf("StartCheckout: %v", err)
	}
	order := result.Order
	if result.RedirectURL != "https://checkout.stripe.test/cs_test_1" {
		t.Fatalf("unexpected redirect %q", result.RedirectURL)
	}
	if order.ID != testOrderID || order.Number != "FAB-240520-ABCD" {
		t.Fatalf("unexpected order identity %s %s", order.ID, order.Number)
	}
	if order.Status != domain.OrderStatusPendingPayment || order.Ledger.Status != domain.LedgerStatusPending {
		t.Fatalf("unexpected order state %s ledger %s", order.Status, order.Ledger.Status)
	}
	if order.Customer.Name != "Sam Welder" || order.ShippingAddress.Name != "Sam Welder" || order.ShippingAddress.State != "SA" {
		t.Fatalf("unexpected customer details %+v %+v", order.Customer, order.ShippingAddress)
	}
	if order.Notes != "Leave at the gate" {
		t.Fatalf("unexpected notes %q", order.Notes)
	}
	if order.Items[0].UnitPriceCents != 1250 || order.Items[0].TotalCents != 2500 {
		t.Fatalf("expected current catalog price, got %+v", order.Items[0])
	}
	if order.Shipping.Method != domain.ShippingMethodExpress || order.Totals.ShippingCents != 1920 {
		t.Fatalf("expected selected express delivery, got %+v", order.Shipping)
	}
	if order.Totals.TotalCents != 4420 || order.Totals.TaxCents != 402 || order.Payment.AmountCents != 4420 {
		t.Fatalf("unexpected totals %+v", order.Totals)
	}
	if order.Payment.SessionID != "cs_test_1" || order.Payment.Provider != "stripe" {
		t.Fatalf("session not recorded: %+v", order.Payment)
	}

	req := gateway.req
	if gateway.ctx.Currency != "AUD" {
		t.Fatalf("expected AUD payment context, got %+v", gateway.ctx)
	}
	if req.SuccessURL != "https://fabrow.test/checkout/success?order="+testOrderID || !strings.HasSuffix(req.CancelURL, testOrderID) {
		t.Fatalf("order id not substituted: %s %s", req.SuccessURL, req.CancelURL)
	}
	if req.IdempotencyKey != "checkout-"+testOrderID || req.Metadata["cartId"] != "cart-1" {
		t.Fatalf("unexpected session request %+v", req)
	}
	if len(req.Items) != 2 || req.Items[1].Amount != 1920 || !strings.HasPrefix(req.Items[1].Name, "Shipping: ") {
		t.Fatalf("expected product and shipping lines, got %+v", req.Items)
	}
	if req.Items[0].Name != "Heavy Gate Hinge - Small" || req.Items[0].Quantity != 2 {
		t.Fatalf("unexpected product line %+v", req.Items[0])
	}

	stored, err := reg.Orders().Get(ctx, testOrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Payment.SessionID != "cs_test_1" {
		t.Fatalf("expected stored order to carry session id, got %+v", stored.Payment)
	}
}

func TestCheckoutServiceCancelsOrderWhenGatewayFails(t *testing.T) {
	gateway := &stubCheckoutPayments{err: errBoom}
	svc, reg := newCheckoutFixture(t, gateway)
	seedCart(t, reg, hingeCart(1))
	ctx := context.Background()

	_, err := svc.StartCheckout(ctx, checkoutCommand())
	if !errors.Is(err, ErrCheckoutPaymentFailed) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	stored, err := reg.Orders().Get(ctx, testOrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusCancelled || stored.CancelledAt == nil {
		t.Fatalf("expected cancelled order, got %s", stored.Status)
	}
	if stored.Payment.SessionError != "boom" {
		t.Fatalf("expected gateway error recorded, got %q", stored.Payment.SessionError)
	}
	if _, err := reg.Carts().Get(ctx, "cart-1"); err != nil {
		t.Fatalf("cart must survive a failed checkout: %v", err)
	}
}

func TestCheckoutServiceRejectsInvalidRequests(t *testing.T) {
	gateway := &stubCheckoutPayments{session: payments.CheckoutSession{ID: "cs"}}
	svc, reg := newCheckoutFixture(t, gateway)
	seedCart(t, reg, hingeCart(11))
	seedCart(t, reg, domain.Cart{ID: "empty", Currency: "AUD"})
	ctx := context.Background()

	badEmail := checkoutCommand()
	badEmail.Customer.Email = "Sam <sam@example.com>"

	noAddress := checkoutCommand()
	noAddress.Address = Address{Line1: "12 Forge St"}

	emptyCart := checkoutCommand()
	emptyCart.CartID = "empty"

	missingCart := checkoutCommand()
	missingCart.CartID = "missing"

	cases := []struct {
		name string
		cmd  StartCheckoutCommand
		want error
	}{
		{"display name email", badEmail, ErrCheckoutInvalidInput},
		{"incomplete address", noAddress, ErrCheckoutInvalidInput},
		{"empty cart", emptyCart, ErrCheckoutEmptyCart},
		{"missing cart", missingCart, ErrCheckoutCartNotFound},
		{"more than in stock", checkoutCommand(), ErrCheckoutInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.StartCheckout(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not be called for rejected checkouts")
	}
}

func TestCheckoutServiceRejectsUndeliverableAddress(t *testing.T) {
	gateway := &stubCheckoutPayments{session: payments.CheckoutSession{ID: "cs"}}
	svc, reg := newCheckoutFixture(t, gateway)
	seedCart(t, reg, hingeCart(1))

	cmd := checkoutCommand()
	cmd.Address.Country = "NZ"
	if _, err := svc.StartCheckout(context.Background(), cmd); !errors.Is(err, ErrCheckoutShippingUnavailable) {
		t.Fatalf("expected shipping unavailable, got %v", err)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway must not be called")
	}
}
