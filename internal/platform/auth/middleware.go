package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
)

const (
	defaultCSRFHeader = "X-CSRF-Token"
	// CSRFFormField is the hidden form input carrying the CSRF token on admin pages.
	CSRFFormField = "csrf_token"
)

// ErrCSRFMismatch indicates an unsafe request without the session's CSRF token.
var ErrCSRFMismatch = errors.New("auth: csrf token mismatch")

// FailureHandler renders an authentication or CSRF failure.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Guard protects the admin area with a password login and cookie session.
type Guard struct {
	sessions   *SessionManager
	creds      Credentials
	csrfHeader string
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// Option customises Guard behaviour.
type Option func(*Guard)

// WithLogger records login attempts and session failures.
func WithLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard constructs a Guard. A missing password hash disables login entirely.
func NewGuard(sessions *SessionManager, creds Credentials, opts ...Option) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("auth: session manager is required")
	}
	if strings.TrimSpace(creds.Username) == "" {
		return nil, errors.New("auth: admin username is required")
	}
	g := &Guard{
		sessions:   sessions,
		creds:      creds,
		csrfHeader: defaultCSRFHeader,
		logger:     func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Login checks the credentials and issues a fresh session cookie.
func (g *Guard) Login(w http.ResponseWriter, r *http.Request, username, password string) (Session, error) {
	ctx := r.Context()
	if err := g.creds.Verify(username, password); err != nil {
		g.logger(ctx, "admin.login_failed", map[string]any{"remoteAddr": r.RemoteAddr})
		return Session{}, err
	}
	sess, err := g.sessions.Issue(w, g.creds.Username)
	if err != nil {
		return Session{}, err
	}
	g.logger(ctx, "admin.login", map[string]any{"sessionId": sess.ID, "remoteAddr": r.RemoteAddr})
	return sess, nil
}

// Logout clears the session cookie.
func (g *Guard) Logout(w http.ResponseWriter, r *http.Request) {
	if admin, ok := requestctx.AdminFromContext(r.Context()); ok {
		g.logger(r.Context(), "admin.logout", map[string]any{"sessionId": admin.SessionID})
	}
	g.sessions.Destroy(w)
}

// Current returns the session for r without enforcing it.
func (g *Guard) Current(r *http.Request) (Session, bool) {
	sess, err := g.sessions.Load(r)
	return sess, err == nil
}

// RequireAdmin rejects requests without a live session, and unsafe requests without the CSRF
// token. When onFail is nil failures are written as JSON errors.
func (g *Guard) RequireAdmin(onFail FailureHandler) func(http.Handler) http.Handler {
	if onFail == nil {
		onFail = respondAuthFailure
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := g.sessions.Load(r)
			if err != nil {
				if errors.Is(err, ErrExpired) {
					g.sessions.Destroy(w)
					g.logger(r.Context(), "admin.session_expired", nil)
				}
				onFail(w, r, err)
				return
			}
			if isUnsafeMethod(r.Method) && !g.validCSRF(r, sess.CSRFToken) {
				g.logger(r.Context(), "admin.csrf_rejected", map[string]any{"path": r.URL.Path, "method": r.Method})
				onFail(w, r, ErrCSRFMismatch)
				return
			}
			if touched, err := g.sessions.Touch(w, sess); err == nil {
				sess = touched
			}
			ctx := requestctx.WithAdmin(r.Context(), requestctx.Admin{
				Username:  sess.Username,
				SessionID: sess.ID,
				CSRFToken: sess.CSRFToken,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) validCSRF(r *http.Request, expected string) bool {
	if expected == "" {
		return false
	}
	submitted := strings.TrimSpace(r.Header.Get(g.csrfHeader))
	if submitted == "" && isFormRequest(r) {
		submitted = r.PostFormValue(CSRFFormField)
	}
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func respondAuthFailure(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCSRFMismatch):
		respondAuthError(w, http.StatusForbidden, "csrf_failed", "missing or invalid csrf token")
	case errors.Is(err, ErrExpired):
		respondAuthError(w, http.StatusUnauthorized, "session_expired", "admin session expired")
	default:
		respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "admin login required")
	}
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
