package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	maxAdminProductBodySize = 256 * 1024
	maxImportFileSize       = 10 << 20
	importFormField         = "file"
)

// AdminCatalogHandlers manages products, inventory, and spreadsheet imports.
type AdminCatalogHandlers struct {
	catalog services.CatalogService
	imports services.ImportService
}

// NewAdminCatalogHandlers constructs admin catalog handlers. Authentication is applied by the
// admin route group.
func NewAdminCatalogHandlers(catalog services.CatalogService, imports services.ImportService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{catalog: catalog, imports: imports}
}

// Routes registers admin catalog endpoints.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/products", func(rt chi.Router) {
		rt.Get("/", h.listProducts)
		rt.Post("/", h.createProduct)
		rt.Get("/{handle}", h.getProduct)
		rt.Put("/{handle}", h.updateProduct)
		rt.Delete("/{handle}", h.deleteProduct)
		rt.Post("/{handle}/inventory", h.adjustInventory)
	})
	r.Post("/imports", h.importProducts)
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	query, err := productQueryFromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	if r.URL.Query().Get("sort") == "" {
		query.Sort = catalog.SortTitle
	}
	page, err := h.catalog.AdminListProducts(ctx, query)
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	if page.Items == nil {
		page.Items = []services.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *AdminCatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.AdminGetProduct(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *AdminCatalogHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var input services.ProductInput
	if err := httpx.DecodeJSON(r, maxAdminProductBodySize, &input); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	product, err := h.catalog.CreateProduct(ctx, input)
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	w.Header().Set("Location", "/api/v1/admin/products/"+product.Handle)
	httpx.WriteJSON(w, http.StatusCreated, product)
}

func (h *AdminCatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var input services.ProductInput
	if err := httpx.DecodeJSON(r, maxAdminProductBodySize, &input); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	product, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "handle"), input)
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "handle")); err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminCatalogHandlers) adjustInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var cmd services.InventoryAdjustment
	if err := httpx.DecodeJSON(r, maxCartBodySize, &cmd); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	cmd.Handle = chi.URLParam(r, "handle")
	if strings.TrimSpace(cmd.VariantID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "variantId is required", http.StatusBadRequest).
			WithFields(map[string]string{"variantId": "required"}))
		return
	}
	product, err := h.catalog.AdjustInventory(ctx, cmd)
	if err != nil {
		writeCatalogError(ctx, w, err, "product")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

// importProducts accepts either a multipart upload in the "file" field or a raw body. The format
// comes from the format query parameter, then the file name, then the content type.
func (h *AdminCatalogHandlers) importProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.imports == nil {
		writeUnavailable(ctx, w, "import")
		return
	}
	query := r.URL.Query()
	flags := map[string]bool{}
	for _, name := range []string{"dryRun", "replace", "archiveMissing", "strict"} {
		value, err := parseBoolParam(query.Get(name))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_query", name+" must be a boolean", http.StatusBadRequest))
			return
		}
		flags[name] = value
	}

	if r.Body == nil || r.Body == http.NoBody {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportFileSize)
	reader, filename, contentType, err := importSource(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "import file too large", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	defer reader.Close()

	format, err := importFormat(query.Get("format"), filename, contentType)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_format", err.Error(), http.StatusUnsupportedMediaType))
		return
	}

	summary, err := h.imports.Import(ctx, services.ImportCommand{
		Reader:         reader,
		Format:         format,
		Strict:         flags["strict"],
		DryRun:         flags["dryRun"],
		Replace:        flags["replace"],
		ArchiveMissing: flags["archiveMissing"],
	})
	if err != nil {
		writeImportError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if !summary.DryRun && len(summary.Created) > 0 {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, summary)
}

func importSource(r *http.Request) (io.ReadCloser, string, string, error) {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		file, header, err := r.FormFile(importFormField)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, "", "", errors.New("file field is required")
			}
			return nil, "", "", err
		}
		return file, header.Filename, header.Header.Get("Content-Type"), nil
	}
	return r.Body, "", r.Header.Get("Content-Type"), nil
}

func importFormat(explicit, filename, contentType string) (catalog.Format, error) {
	if strings.TrimSpace(explicit) != "" {
		return catalog.ParseFormat(explicit)
	}
	if ext := path.Ext(filename); ext != "" {
		return catalog.ParseFormat(ext)
	}
	if mediaType, _, _ := strings.Cut(contentType, ";"); strings.TrimSpace(mediaType) != "" {
		if format, err := catalog.ParseFormat(mediaType); err == nil {
			return format, nil
		}
	}
	return catalog.FormatCSV, nil
}

func writeImportError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrImportInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_import", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrImportUnavailable):
		writeUnavailable(ctx, w, "import")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("import_error", "failed to import products", http.StatusInternalServerError))
	}
}
