package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/auth"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/httpx"
)

const maxLoginBodySize = 4 * 1024

// SessionHandlers signs the back-office user in and out of the JSON API.
type SessionHandlers struct {
	guard   *auth.Guard
	limiter RateLimiter
}

// SessionOption configures SessionHandlers.
type SessionOption func(*SessionHandlers)

// WithLoginRateLimiter throttles login attempts per client address.
func WithLoginRateLimiter(limiter RateLimiter) SessionOption {
	return func(h *SessionHandlers) {
		h.limiter = limiter
	}
}

// NewSessionHandlers constructs session handlers over the admin guard.
func NewSessionHandlers(guard *auth.Guard, opts ...SessionOption) *SessionHandlers {
	h := &SessionHandlers{guard: guard}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /session endpoints.
func (h *SessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.login)
	r.Get("/", h.current)
	if h.guard != nil {
		r.With(h.guard.RequireAdmin(nil)).Delete("/", h.logout)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	CSRFToken string    `json:"csrfToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *SessionHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.guard == nil {
		writeUnavailable(ctx, w, "session")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(ClientKey(r.RemoteAddr)) {
		w.Header().Set("Retry-After", "60")
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many login attempts", http.StatusTooManyRequests))
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, maxLoginBodySize, &req); err != nil {
		httpx.WriteDecodeError(w, r, err)
		return
	}
	sess, err := h.guard.Login(w, r, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "username or password is incorrect", http.StatusUnauthorized))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("session_error", "failed to start session", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{
		Username:  sess.Username,
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *SessionHandlers) current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.guard == nil {
		writeUnavailable(ctx, w, "session")
		return
	}
	sess, ok := h.guard.Current(r)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in required", http.StatusUnauthorized))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Username:  sess.Username,
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *SessionHandlers) logout(w http.ResponseWriter, r *http.Request) {
	h.guard.Logout(w, r)
	w.WriteHeader(http.StatusNoContent)
}
