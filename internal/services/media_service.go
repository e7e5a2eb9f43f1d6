package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/storage"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultMediaFolder    = "uploads"
	mediumMaxDimension    = 800
	thumbnailDimension    = 300
	mediumJPEGQuality     = 82
	thumbnailJPEGQuality  = 75
	maxImagePixels        = 40_000_000
)

var (
	// ErrMediaInvalidInput indicates the upload is missing or is not a supported image.
	ErrMediaInvalidInput = errors.New("media: invalid input")
	// ErrMediaTooLarge indicates the upload exceeds the size limit.
	ErrMediaTooLarge = errors.New("media: file too large")
	// ErrMediaUnsupported indicates direct uploads are not configured.
	ErrMediaUnsupported = errors.New("media: signed uploads not configured")
	// ErrMediaUnavailable indicates the bucket could not be written.
	ErrMediaUnavailable = errors.New("media: unavailable")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// objectWriter abstracts storage.Objects.
type objectWriter interface {
	Put(ctx context.Context, object, contentType string, data []byte) error
}

// uploadSigner abstracts storage.UploadSigner.
type uploadSigner interface {
	SignUpload(ctx context.Context, bucket, object string, req storage.UploadRequest) (storage.UploadURL, error)
}

// MediaServiceDeps wires the media service. Signer is optional.
type MediaServiceDeps struct {
	Objects       objectWriter
	Signer        uploadSigner
	Bucket        string
	PublicBaseURL string
	MaxBytes      int64
	Clock         func() time.Time
	Logger        Logger
	IDGenerator   func() string
}

type mediaService struct {
	objects  objectWriter
	signer   uploadSigner
	bucket   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
	logger   Logger
	newID    func() string
}

var _ MediaService = (*mediaService)(nil)

// NewMediaService constructs a MediaService. PublicBaseURL defaults to the public GCS endpoint for
// the bucket.
func NewMediaService(deps MediaServiceDeps) (MediaService, error) {
	if deps.Objects == nil {
		return nil, errors.New("media service: object writer is required")
	}
	bucket := strings.TrimSpace(deps.Bucket)
	if bucket == "" {
		return nil, errors.New("media service: bucket is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(deps.PublicBaseURL), "/")
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	return &mediaService{
		objects:  deps.Objects,
		signer:   deps.Signer,
		bucket:   bucket,
		baseURL:  baseURL,
		maxBytes: maxBytes,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
		newID:    idGen,
	}, nil
}

// UploadImage stores the original file plus medium and thumbnail JPEG renditions. The content
// type is sniffed from the bytes; the declared type must agree when given.
func (s *mediaService) UploadImage(ctx context.Context, cmd UploadImageCommand) (UploadedImage, error) {
	if cmd.Body == nil {
		return UploadedImage{}, fmt.Errorf("%w: file is required", ErrMediaInvalidInput)
	}
	data, err := io.ReadAll(io.LimitReader(cmd.Body, s.maxBytes+1))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("%w: read upload: %v", ErrMediaInvalidInput, err)
	}
	if int64(len(data)) > s.maxBytes {
		return UploadedImage{}, fmt.Errorf("%w: limit is %d bytes", ErrMediaTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return UploadedImage{}, fmt.Errorf("%w: file is empty", ErrMediaInvalidInput)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return UploadedImage{}, fmt.Errorf("%w: %s is not a supported image type", ErrMediaInvalidInput, contentType)
	}
	if declared := baseMediaType(cmd.ContentType); declared != "" && declared != "application/octet-stream" && declared != contentType {
		return UploadedImage{}, fmt.Errorf("%w: declared %s but file is %s", ErrMediaInvalidInput, declared, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("%w: decode image: %v", ErrMediaInvalidInput, err)
	}
	if cfg.Width*cfg.Height > maxImagePixels {
		return UploadedImage{}, fmt.Errorf("%w: %dx%d exceeds the pixel limit", ErrMediaTooLarge, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("%w: decode image: %v", ErrMediaInvalidInput, err)
	}

	params := storage.PathParams{
		Folder:   mediaFolder(cmd.Folder),
		UploadID: s.newID(),
		FileName: mediaFileName(cmd.Filename, ext),
	}
	jpegName := strings.TrimSuffix(params.FileName, path.Ext(params.FileName)) + ".jpg"

	medium := img
	if b := img.Bounds(); b.Dx() > mediumMaxDimension || b.Dy() > mediumMaxDimension {
		medium = imaging.Fit(img, mediumMaxDimension, mediumMaxDimension, imaging.Lanczos)
	}
	mediumJPEG, err := encodeJPEG(medium, mediumJPEGQuality)
	if err != nil {
		return UploadedImage{}, err
	}
	thumbJPEG, err := encodeJPEG(imaging.Fill(img, thumbnailDimension, thumbnailDimension, imaging.Center, imaging.Lanczos), thumbnailJPEGQuality)
	if err != nil {
		return UploadedImage{}, err
	}

	renditions := []struct {
		rendition   storage.Rendition
		fileName    string
		contentType string
		data        []byte
	}{
		{storage.RenditionOriginal, params.FileName, contentType, data},
		{storage.RenditionMedium, jpegName, "image/jpeg", mediumJPEG},
		{storage.RenditionThumbnail, jpegName, "image/jpeg", thumbJPEG},
	}
	urls := make(map[storage.Rendition]string, len(renditions))
	for _, r := range renditions {
		p := params
		p.FileName = r.fileName
		object, err := storage.BuildObjectPath(r.rendition, p)
		if err != nil {
			return UploadedImage{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
		}
		if err := s.objects.Put(ctx, object, r.contentType, r.data); err != nil {
			s.logger(ctx, "media.upload_failed", map[string]any{"object": object, "error": err.Error()})
			return UploadedImage{}, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
		urls[r.rendition] = s.publicURL(object)
	}

	bounds := img.Bounds()
	s.logger(ctx, "media.uploaded", map[string]any{
		"folder":   params.Folder,
		"uploadId": params.UploadID,
		"bytes":    len(data),
		"width":    bounds.Dx(),
		"height":   bounds.Dy(),
	})
	return UploadedImage{
		OriginalURL:  urls[storage.RenditionOriginal],
		MediumURL:    urls[storage.RenditionMedium],
		ThumbnailURL: urls[storage.RenditionThumbnail],
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}, nil
}

// SignedUploadURL returns a short-lived PUT URL for the original rendition. Thumbnails are not
// produced for direct uploads.
func (s *mediaService) SignedUploadURL(ctx context.Context, folder, filename, contentType string) (SignedUpload, error) {
	if s.signer == nil {
		return SignedUpload{}, ErrMediaUnsupported
	}
	contentType = baseMediaType(contentType)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return SignedUpload{}, fmt.Errorf("%w: %q is not a supported image type", ErrMediaInvalidInput, contentType)
	}
	object, err := storage.BuildObjectPath(storage.RenditionOriginal, storage.PathParams{
		Folder:   mediaFolder(folder),
		UploadID: s.newID(),
		FileName: mediaFileName(filename, ext),
	})
	if err != nil {
		return SignedUpload{}, fmt.Errorf("%w: %v", ErrMediaInvalidInput, err)
	}
	allowed := make([]string, 0, len(allowedImageTypes))
	for t := range allowedImageTypes {
		allowed = append(allowed, t)
	}
	res, err := s.signer.SignUpload(ctx, s.bucket, object, storage.UploadRequest{
		ContentType:  contentType,
		AllowedTypes: allowed,
		MaxBytes:     s.maxBytes,
	})
	if err != nil {
		if errors.Is(err, storage.ErrPermissionDenied) {
			return SignedUpload{}, err
		}
		return SignedUpload{}, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	return SignedUpload{
		URL:       res.URL,
		Method:    res.Method,
		Headers:   res.Headers,
		ObjectURL: s.publicURL(object),
		ExpiresAt: res.ExpiresAt,
	}, nil
}

func (s *mediaService) publicURL(object string) string {
	return s.baseURL + "/" + object
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func mediaFolder(folder string) string {
	if slug := catalog.Slugify(folder); slug != "" {
		return slug
	}
	return defaultMediaFolder
}

// mediaFileName slugs the base name and replaces the extension with the one matching the sniffed
// type.
func mediaFileName(filename, ext string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	slug := catalog.Slugify(base)
	if slug == "" {
		slug = "image"
	}
	return slug + ext
}

func baseMediaType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "image/jpg" {
		return "image/jpeg"
	}
	return contentType
}
