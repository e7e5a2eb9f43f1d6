package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/pagination"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/storage"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

const (
	maxContentBodySize = 512 * 1024
	maxUploadSize      = 20 << 20
	uploadFormField    = "file"
)

// AdminContentHandlers manages gallery, services, blog posts, contact submissions, and uploads.
type AdminContentHandlers struct {
	content services.ContentService
	media   services.MediaService
}

// NewAdminContentHandlers constructs admin content handlers.
func NewAdminContentHandlers(content services.ContentService, media services.MediaService) *AdminContentHandlers {
	return &AdminContentHandlers{content: content, media: media}
}

// Routes registers admin content endpoints.
func (h *AdminContentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/gallery", func(rt chi.Router) {
		rt.Get("/", h.listGallery)
		rt.Post("/", h.createGalleryItem)
		rt.Put("/order", h.reorderGallery)
		rt.Get("/{id}", h.getGalleryItem)
		rt.Put("/{id}", h.updateGalleryItem)
		rt.Delete("/{id}", h.deleteGalleryItem)
	})
	// Services and posts are read by slug but written by id, so the segment is a neutral "key".
	r.Route("/services", func(rt chi.Router) {
		rt.Get("/", h.listServices)
		rt.Post("/", h.createService)
		rt.Get("/{key}", h.getService)
		rt.Put("/{key}", h.updateService)
		rt.Delete("/{key}", h.deleteService)
	})
	r.Route("/blog", func(rt chi.Router) {
		rt.Get("/", h.listPosts)
		rt.Post("/", h.createPost)
		rt.Get("/{key}", h.getPost)
		rt.Put("/{key}", h.updatePost)
		rt.Delete("/{key}", h.deletePost)
	})
	r.Route("/contacts", func(rt chi.Router) {
		rt.Get("/", h.listContacts)
		rt.Put("/{id}", h.markContact)
		rt.Delete("/{id}", h.deleteContact)
	})
	r.Post("/uploads", h.uploadImage)
	r.Post("/uploads/signed", h.signedUpload)
}

// Gallery

func (h *AdminContentHandlers) listGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	items, err := h.content.ListGallery(ctx, true)
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	if items == nil {
		items = []services.GalleryItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminContentHandlers) getGalleryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	item, err := h.content.GetGalleryItem(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *AdminContentHandlers) createGalleryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	var item services.GalleryItem
	if err := httpx.DecodeJSON(r, maxContentBodySize, &item); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	item.ID = ""
	saved, err := h.content.SaveGalleryItem(ctx, item)
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, saved)
}

func (h *AdminContentHandlers) updateGalleryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.content.GetGalleryItem(ctx, id); err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	var item services.GalleryItem
	if err := httpx.DecodeJSON(r, maxContentBodySize, &item); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	item.ID = id
	saved, err := h.content.SaveGalleryItem(ctx, item)
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *AdminContentHandlers) deleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	if err := h.content.DeleteGalleryItem(ctx, chi.URLParam(r, "id")); err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (h *AdminContentHandlers) reorderGallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	var req reorderRequest
	if err := httpx.DecodeJSON(r, maxContentBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "ids must not be empty", http.StatusBadRequest))
		return
	}
	items, err := h.content.ReorderGallery(ctx, req.IDs)
	if err != nil {
		writeContentError(ctx, w, err, "gallery item")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Services

func (h *AdminContentHandlers) listServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	items, err := h.content.ListServices(ctx, true)
	if err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	if items == nil {
		items = []services.Service{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminContentHandlers) getService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	svc, err := h.content.GetService(ctx, chi.URLParam(r, "key"))
	if err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *AdminContentHandlers) createService(w http.ResponseWriter, r *http.Request) {
	h.saveService(w, r, "", http.StatusCreated)
}

func (h *AdminContentHandlers) updateService(w http.ResponseWriter, r *http.Request) {
	h.saveService(w, r, chi.URLParam(r, "key"), http.StatusOK)
}

func (h *AdminContentHandlers) saveService(w http.ResponseWriter, r *http.Request, id string, status int) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	var svc services.Service
	if err := httpx.DecodeJSON(r, maxContentBodySize, &svc); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	svc.ID = strings.TrimSpace(id)
	saved, err := h.content.SaveService(ctx, svc)
	if err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	httpx.WriteJSON(w, status, saved)
}

func (h *AdminContentHandlers) deleteService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	if err := h.content.DeleteService(ctx, chi.URLParam(r, "key")); err != nil {
		writeContentError(ctx, w, err, "service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blog

func (h *AdminContentHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{DefaultPageSize: 25, MaxPageSize: 100})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_query", err.Error(), http.StatusBadRequest))
		return
	}
	page, err := h.content.ListPosts(ctx, true, services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken})
	if err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *AdminContentHandlers) getPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	post, err := h.content.GetPost(ctx, chi.URLParam(r, "key"), true)
	if err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

func (h *AdminContentHandlers) createPost(w http.ResponseWriter, r *http.Request) {
	h.savePost(w, r, "", http.StatusCreated)
}

func (h *AdminContentHandlers) updatePost(w http.ResponseWriter, r *http.Request) {
	h.savePost(w, r, chi.URLParam(r, "key"), http.StatusOK)
}

func (h *AdminContentHandlers) savePost(w http.ResponseWriter, r *http.Request, id string, status int) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	var post services.BlogPost
	if err := httpx.DecodeJSON(r, maxContentBodySize, &post); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	post.ID = strings.TrimSpace(id)
	saved, err := h.content.SavePost(ctx, post)
	if err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	httpx.WriteJSON(w, status, saved)
}

func (h *AdminContentHandlers) deletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	if err := h.content.DeletePost(ctx, chi.URLParam(r, "key")); err != nil {
		writeContentError(ctx, w, err, "post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contacts

type contactStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminContentHandlers) listContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	status := services.ContactStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))
	items, err := h.content.ListContacts(ctx, status)
	if err != nil {
		writeContentError(ctx, w, err, "contact")
		return
	}
	if items == nil {
		items = []services.ContactSubmission{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminContentHandlers) markContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	var req contactStatusRequest
	if err := httpx.DecodeJSON(r, maxOrderBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	status := services.ContactStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	sub, err := h.content.MarkContact(ctx, chi.URLParam(r, "id"), status)
	if err != nil {
		writeContentError(ctx, w, err, "contact")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

func (h *AdminContentHandlers) deleteContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeUnavailable(ctx, w, "content")
		return
	}
	if err := h.content.DeleteContact(ctx, chi.URLParam(r, "id")); err != nil {
		writeContentError(ctx, w, err, "contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Uploads

func (h *AdminContentHandlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeUnavailable(ctx, w, "media")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "upload too large", http.StatusRequestEntityTooLarge))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "multipart field \"file\" is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}
	defer file.Close()

	uploaded, err := h.media.UploadImage(ctx, services.UploadImageCommand{
		Folder:      r.FormValue("folder"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeMediaError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, uploaded)
}

type signedUploadRequest struct {
	Folder      string `json:"folder"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (h *AdminContentHandlers) signedUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeUnavailable(ctx, w, "media")
		return
	}
	var req signedUploadRequest
	if err := httpx.DecodeJSON(r, maxOrderBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	signed, err := h.media.SignedUploadURL(ctx, req.Folder, req.Filename, req.ContentType)
	if err != nil {
		writeMediaError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signed)
}

func writeMediaError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMediaInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_upload", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrMediaTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
	case errors.Is(err, services.ErrMediaUnsupported):
		httpx.WriteError(ctx, w, httpx.NewError("not_supported", err.Error(), http.StatusNotImplemented))
	case errors.Is(err, storage.ErrPermissionDenied):
		httpx.WriteError(ctx, w, httpx.NewError("permission_denied", "bucket rejected the request", http.StatusForbidden))
	case errors.Is(err, services.ErrMediaUnavailable):
		writeUnavailable(ctx, w, "media")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("media_error", "failed to store upload", http.StatusInternalServerError))
	}
}
