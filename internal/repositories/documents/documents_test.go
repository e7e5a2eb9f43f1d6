package documents

import (
	"context"
	"testing"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/domain"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/docstore"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/repositories"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestRegistry(t *testing.T) (*Registry, *fixedClock) {
	t.Helper()
	store, err := docstore.NewJSONFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFileStore: %v", err)
	}
	clock := &fixedClock{now: time.Date(2025, time.May, 4, 9, 0, 0, 0, time.UTC)}
	reg, err := NewRegistry(store, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg, clock
}

func TestProductRepositoryRoundTrip(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()
	products := reg.Products()

	saved, err := products.Save(ctx, domain.Product{Handle: "steel-bracket", Title: "Steel Bracket", Status: domain.ProductStatusActive})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID != "steel-bracket" {
		t.Fatalf("expected id to default to handle, got %q", saved.ID)
	}
	if !saved.CreatedAt.Equal(clock.now) {
		t.Fatalf("expected createdAt stamped, got %s", saved.CreatedAt)
	}

	created := saved.CreatedAt
	clock.now = clock.now.Add(time.Hour)
	saved.Title = "Steel Bracket (Heavy)"
	updated, err := products.Save(ctx, saved)
	if err != nil {
		t.Fatalf("Save update: %v", err)
	}
	if !updated.CreatedAt.Equal(created) || !updated.UpdatedAt.Equal(clock.now) {
		t.Fatalf("unexpected timestamps %+v", updated)
	}

	got, err := products.Get(ctx, "steel-bracket")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Steel Bracket (Heavy)" {
		t.Fatalf("unexpected title %q", got.Title)
	}

	if err := products.SaveMany(ctx, []domain.Product{{Handle: "a-frame"}, {Handle: "z-gate"}}); err != nil {
		t.Fatalf("SaveMany: %v", err)
	}
	list, err := products.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Handle != "a-frame" || list[2].Handle != "z-gate" {
		t.Fatalf("unexpected list order %+v", list)
	}

	if err := products.Delete(ctx, "a-frame"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = products.Get(ctx, "a-frame")
	assertNotFound(t, err)
	assertNotFound(t, products.Delete(ctx, "a-frame"))
}

func TestOrderRepositoryListAndFind(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	orders := reg.Orders()

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	fixtures := []domain.Order{
		{ID: "o1", Status: domain.OrderStatusPaid, Customer: domain.Customer{Email: "Jo@Example.com"}, CreatedAt: base, Payment: domain.PaymentInfo{SessionID: "cs_1"}},
		{ID: "o2", Status: domain.OrderStatusPendingPayment, Customer: domain.Customer{Email: "sam@example.com"}, CreatedAt: base.Add(time.Hour), Payment: domain.PaymentInfo{SessionID: "cs_2"}},
		{ID: "o3", Status: domain.OrderStatusPaid, Customer: domain.Customer{Email: "jo@example.com"}, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, order := range fixtures {
		if _, err := orders.Save(ctx, order); err != nil {
			t.Fatalf("Save %s: %v", order.ID, err)
		}
	}

	page, err := orders.List(ctx, domain.OrderListFilter{Pagination: domain.Pagination{PageSize: 2}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "o3" || page.Items[1].ID != "o2" || page.NextPageToken == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	page, err = orders.List(ctx, domain.OrderListFilter{Pagination: domain.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "o1" || page.NextPageToken != "" {
		t.Fatalf("unexpected second page %+v", page)
	}

	page, err = orders.List(ctx, domain.OrderListFilter{Status: []domain.OrderStatus{domain.OrderStatusPaid}, Email: "JO@example.com"})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected two paid orders for jo, got %+v", page.Items)
	}

	if _, err := orders.List(ctx, domain.OrderListFilter{Pagination: domain.Pagination{PageToken: "%%%"}}); err == nil {
		t.Fatalf("expected invalid page token error")
	}

	found, err := orders.FindByPaymentSession(ctx, "cs_2")
	if err != nil {
		t.Fatalf("FindByPaymentSession: %v", err)
	}
	if found.ID != "o2" {
		t.Fatalf("expected o2, got %s", found.ID)
	}
	_, err = orders.FindByPaymentSession(ctx, "cs_missing")
	assertNotFound(t, err)
}

func TestContentRepositories(t *testing.T) {
	reg, clock := newTestRegistry(t)
	ctx := context.Background()

	for _, item := range []domain.GalleryItem{{ID: "g2", Position: 2}, {ID: "g1", Position: 1}} {
		if _, err := reg.Gallery().Save(ctx, item); err != nil {
			t.Fatalf("Save gallery: %v", err)
		}
	}
	gallery, err := reg.Gallery().List(ctx)
	if err != nil {
		t.Fatalf("List gallery: %v", err)
	}
	if gallery[0].ID != "g1" {
		t.Fatalf("expected position order, got %+v", gallery)
	}

	if _, err := reg.Services().Save(ctx, domain.Service{ID: "s1", Slug: "laser-cutting", Title: "Laser Cutting"}); err != nil {
		t.Fatalf("Save service: %v", err)
	}
	service, err := reg.Services().GetBySlug(ctx, "laser-cutting")
	if err != nil || service.ID != "s1" {
		t.Fatalf("GetBySlug: %+v %v", service, err)
	}
	_, err = reg.Services().GetBySlug(ctx, "welding")
	assertNotFound(t, err)

	older := clock.now.Add(-48 * time.Hour)
	posts := []domain.BlogPost{
		{ID: "p1", Slug: "first", PublishedAt: &older},
		{ID: "p2", Slug: "draft"},
	}
	for _, post := range posts {
		if _, err := reg.Blog().Save(ctx, post); err != nil {
			t.Fatalf("Save post: %v", err)
		}
	}
	list, err := reg.Blog().List(ctx)
	if err != nil {
		t.Fatalf("List blog: %v", err)
	}
	if list[0].ID != "p2" || list[1].ID != "p1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	post, err := reg.Blog().GetBySlug(ctx, "first")
	if err != nil || post.ID != "p1" {
		t.Fatalf("GetBySlug blog: %+v %v", post, err)
	}

	if _, err := reg.Contacts().Save(ctx, domain.ContactSubmission{ID: "c1", Name: "Alex"}); err != nil {
		t.Fatalf("Save contact: %v", err)
	}
	clock.now = clock.now.Add(time.Minute)
	if _, err := reg.Contacts().Save(ctx, domain.ContactSubmission{ID: "c2", Name: "Robin"}); err != nil {
		t.Fatalf("Save contact: %v", err)
	}
	contacts, err := reg.Contacts().List(ctx)
	if err != nil {
		t.Fatalf("List contacts: %v", err)
	}
	if contacts[0].ID != "c2" {
		t.Fatalf("expected newest contact first, got %+v", contacts)
	}
}

func TestRegistryDefaultHealthProbesStore(t *testing.T) {
	reg, _ := newTestRegistry(t)
	report, err := reg.Health().Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok, got %+v", report)
	}
	if _, ok := report.Checks["store"]; !ok {
		t.Fatalf("expected store check, got %+v", report.Checks)
	}
}

func TestCollectionRejectsMissingID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.Carts().Save(context.Background(), domain.Cart{}); err == nil {
		t.Fatalf("expected error for cart without id")
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found repository error, got %v", err)
	}
}
