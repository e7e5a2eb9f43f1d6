package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
)

const (
	defaultUploadExpiry = 15 * time.Minute
	maxUploadExpiry     = time.Hour
)

var (
	// ErrPermissionDenied is returned when no admin is signed in.
	ErrPermissionDenied = errors.New("storage: permission denied")

	errNoCredentials      = errors.New("storage: service account email and private key are required")
	errInvalidTarget      = errors.New("storage: bucket and object are required")
	errInvalidBucket      = errors.New("storage: bucket name is required")
	errInvalidObject      = errors.New("storage: object name is required")
	errContentTypeMissing = errors.New("storage: content type is required for uploads")
	errContentTypeDenied  = errors.New("storage: content type not allowed")
	errExpiryTooLong      = errors.New("storage: expiry exceeds permitted maximum")
)

// Credentials identify the service account that signs upload URLs.
type Credentials struct {
	Email      string
	PrivateKey []byte
}

// ParseCredentials reads a service account JSON key.
func ParseCredentials(data []byte) (Credentials, error) {
	cfg, err := google.JWTConfigFromJSON(data)
	if err != nil {
		return Credentials{}, fmt.Errorf("storage: parse service account key: %w", err)
	}
	creds := Credentials{Email: strings.TrimSpace(cfg.Email), PrivateKey: cfg.PrivateKey}
	if creds.Email == "" || len(creds.PrivateKey) == 0 {
		return Credentials{}, errNoCredentials
	}
	return creds, nil
}

// LoadCredentialsFile reads a service account JSON key from disk.
func LoadCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("storage: read service account key: %w", err)
	}
	return ParseCredentials(data)
}

// UploadSigner issues V4 signed PUT URLs so the admin browser can send originals straight to
// the media bucket.
type UploadSigner struct {
	creds Credentials
	now   func() time.Time
}

// UploadSignerOption customises an UploadSigner.
type UploadSignerOption func(*UploadSigner)

// WithUploadClock overrides the time source.
func WithUploadClock(clock func() time.Time) UploadSignerOption {
	return func(s *UploadSigner) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewUploadSigner constructs an UploadSigner.
func NewUploadSigner(creds Credentials, opts ...UploadSignerOption) (*UploadSigner, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || len(creds.PrivateKey) == 0 {
		return nil, errNoCredentials
	}
	s := &UploadSigner{creds: creds, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// UploadRequest describes the object the browser will PUT.
type UploadRequest struct {
	ContentType  string
	AllowedTypes []string
	// MaxBytes is enforced by GCS through x-goog-content-length-range.
	MaxBytes  int64
	ExpiresIn time.Duration
}

// UploadURL is a signed PUT target. Headers must be sent verbatim with the upload.
type UploadURL struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// SignUpload signs a PUT for bucket/object. Only a signed-in admin may upload.
func (s *UploadSigner) SignUpload(ctx context.Context, bucket, object string, req UploadRequest) (UploadURL, error) {
	if _, ok := requestctx.AdminFromContext(ctx); !ok {
		return UploadURL{}, ErrPermissionDenied
	}
	bucket, object = strings.TrimSpace(bucket), strings.TrimSpace(object)
	if bucket == "" || object == "" {
		return UploadURL{}, errInvalidTarget
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" {
		return UploadURL{}, errContentTypeMissing
	}
	if len(req.AllowedTypes) > 0 && !contentTypeAllowed(contentType, req.AllowedTypes) {
		return UploadURL{}, errContentTypeDenied
	}
	expiry := req.ExpiresIn
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}
	if expiry > maxUploadExpiry {
		return UploadURL{}, errExpiryTooLong
	}

	headers := map[string]string{"Content-Type": contentType}
	var extra []string
	if req.MaxBytes > 0 {
		sizeRange := fmt.Sprintf("0,%d", req.MaxBytes)
		headers["x-goog-content-length-range"] = sizeRange
		extra = append(extra, "x-goog-content-length-range:"+sizeRange)
	}

	expiresAt := s.now().Add(expiry)
	signed, err := gcs.SignedURL(bucket, object, &gcs.SignedURLOptions{
		GoogleAccessID: s.creds.Email,
		PrivateKey:     s.creds.PrivateKey,
		Method:         http.MethodPut,
		ContentType:    contentType,
		Headers:        extra,
		Expires:        expiresAt,
		Scheme:         gcs.SigningSchemeV4,
	})
	if err != nil {
		return UploadURL{}, fmt.Errorf("storage: sign upload url: %w", err)
	}
	return UploadURL{URL: signed, Method: http.MethodPut, Headers: headers, ExpiresAt: expiresAt}, nil
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		switch {
		case candidate == "":
		case candidate == contentType:
			return true
		case strings.HasSuffix(candidate, "/*") && strings.HasPrefix(contentType, strings.TrimSuffix(candidate, "*")):
			return true
		}
	}
	return false
}
