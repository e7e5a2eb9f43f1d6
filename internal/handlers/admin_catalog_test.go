package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

func newAdminCatalogRouter(cat services.CatalogService, imports services.ImportService) chi.Router {
	r := chi.NewRouter()
	NewAdminCatalogHandlers(cat, imports).Routes(r)
	return r
}

func TestAdminCatalog_ListDefaultsToTitleSort(t *testing.T) {
	var captured services.ProductQuery
	router := newAdminCatalogRouter(&stubCatalogService{
		adminListFn: func(_ context.Context, q services.ProductQuery) (services.ProductPage, error) {
			captured = q
			return services.ProductPage{}, nil
		},
	}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?q=bracket", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Sort != catalog.SortTitle || captured.Filter.Query != "bracket" {
		t.Fatalf("unexpected query %+v", captured)
	}
}

func TestAdminCatalog_CreateProduct(t *testing.T) {
	router := newAdminCatalogRouter(&stubCatalogService{
		createFn: func(_ context.Context, in services.ProductInput) (services.Product, error) {
			if in.Handle == "taken" {
				return services.Product{}, services.ErrCatalogConflict
			}
			return services.Product{ID: in.Handle, Handle: in.Handle, Title: in.Title}, nil
		},
	}, nil)

	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))
		return rr
	}

	rr := post(`{"handle":"gate-latch","title":"Gate Latch","variants":[{"id":"v1","title":"Default","priceCents":2500}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/admin/products/gate-latch" {
		t.Fatalf("unexpected location %q", loc)
	}

	rr = post(`{"handle":"taken","title":"Dup"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminCatalog_DeleteAndNotFound(t *testing.T) {
	var deleted string
	router := newAdminCatalogRouter(&stubCatalogService{
		deleteFn: func(_ context.Context, handle string) error {
			if handle == "missing" {
				return services.ErrCatalogNotFound
			}
			deleted = handle
			return nil
		},
	}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/products/gate-latch", nil))
	if rr.Code != http.StatusNoContent || deleted != "gate-latch" {
		t.Fatalf("expected 204 deleting gate-latch, got %d %q", rr.Code, deleted)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/products/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminCatalog_AdjustInventory(t *testing.T) {
	var captured services.InventoryAdjustment
	router := newAdminCatalogRouter(&stubCatalogService{
		adjustFn: func(_ context.Context, cmd services.InventoryAdjustment) (services.Product, error) {
			captured = cmd
			return services.Product{Handle: cmd.Handle}, nil
		},
	}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products/gate-latch/inventory", strings.NewReader(`{"variantId":"v1","set":12}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Handle != "gate-latch" || captured.Set == nil || *captured.Set != 12 {
		t.Fatalf("unexpected adjustment %+v", captured)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products/gate-latch/inventory", strings.NewReader(`{"delta":-1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without variant, got %d", rr.Code)
	}
}

func TestAdminCatalog_ImportMultipart(t *testing.T) {
	var captured services.ImportCommand
	var content string
	imports := &stubImportService{
		importFn: func(_ context.Context, cmd services.ImportCommand) (services.ImportSummary, error) {
			captured = cmd
			data, _ := io.ReadAll(cmd.Reader)
			content = string(data)
			return services.ImportSummary{RowsRead: 1, Created: []string{"gate-latch"}, DryRun: cmd.DryRun}, nil
		},
	}
	router := newAdminCatalogRouter(&stubCatalogService{}, imports)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "products.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Handle,Title\ngate-latch,Gate Latch\n"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/imports?archiveMissing=true", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Format != catalog.FormatCSV || !captured.ArchiveMissing || captured.DryRun {
		t.Fatalf("unexpected command %+v", captured)
	}
	if !strings.Contains(content, "gate-latch") {
		t.Fatalf("expected file content passed through, got %q", content)
	}
}

func TestAdminCatalog_ImportRawBodyDryRun(t *testing.T) {
	var captured services.ImportCommand
	imports := &stubImportService{
		importFn: func(_ context.Context, cmd services.ImportCommand) (services.ImportSummary, error) {
			captured = cmd
			return services.ImportSummary{Created: []string{"a"}, DryRun: cmd.DryRun}, nil
		},
	}
	router := newAdminCatalogRouter(&stubCatalogService{}, imports)

	req := httptest.NewRequest(http.MethodPost, "/imports?dryRun=1&format=xlsx", strings.NewReader("PK..."))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for dry run, got %d", rr.Code)
	}
	if captured.Format != catalog.FormatXLSX || !captured.DryRun {
		t.Fatalf("unexpected command %+v", captured)
	}
}

func TestAdminCatalog_ImportErrors(t *testing.T) {
	imports := &stubImportService{
		importFn: func(context.Context, services.ImportCommand) (services.ImportSummary, error) {
			return services.ImportSummary{}, services.ErrImportInvalidInput
		},
	}
	router := newAdminCatalogRouter(&stubCatalogService{}, imports)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/imports", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty body, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/imports?format=pdf", strings.NewReader("x")))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/imports?dryRun=maybe", strings.NewReader("x")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad flag, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader("Handle\n")))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}
