package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
)

var (
	testHashKey  = []byte("0123456789abcdef0123456789abcdef")
	testBlockKey = []byte("fedcba9876543210fedcba9876543210")
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGuard(t *testing.T, clock *testClock, events *[]string) *Guard {
	t.Helper()
	manager, err := NewSessionManager(SessionConfig{
		HashKey:     testHashKey,
		BlockKey:    testBlockKey,
		IdleTimeout: 30 * time.Minute,
		Lifetime:    2 * time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	guard, err := NewGuard(manager, Credentials{Username: "admin", PasswordHash: hash},
		WithLogger(func(_ context.Context, event string, _ map[string]any) {
			if events != nil {
				*events = append(*events, event)
			}
		}))
	require.NoError(t, err)
	return guard
}

func login(t *testing.T, guard *Guard) (Session, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	sess, err := guard.Login(rec, req, "admin", "correct horse")
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return sess, cookies
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func adminEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := requestctx.AdminFromContext(r.Context())
		if !ok {
			http.Error(w, "no admin", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(admin.Username))
	})
}

func TestNewSessionManagerValidatesKeys(t *testing.T) {
	_, err := NewSessionManager(SessionConfig{HashKey: []byte("short")})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSessionManager(SessionConfig{HashKey: testHashKey, BlockKey: []byte("odd-length")})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSessionManager(SessionConfig{HashKey: testHashKey})
	assert.NoError(t, err)
}

func TestNewGuardRequiresDependencies(t *testing.T) {
	_, err := NewGuard(nil, Credentials{Username: "admin"})
	assert.Error(t, err)

	manager, err := NewSessionManager(SessionConfig{HashKey: testHashKey})
	require.NoError(t, err)
	_, err = NewGuard(manager, Credentials{Username: "  "})
	assert.Error(t, err)
}

func TestCredentialsVerify(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	creds := Credentials{Username: "admin", PasswordHash: hash}

	assert.NoError(t, creds.Verify(" admin ", "s3cret"))
	assert.ErrorIs(t, creds.Verify("admin", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, creds.Verify("root", "s3cret"), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{Username: "admin"}.Verify("admin", ""), ErrInvalidCredentials)

	_, err = HashPassword("   ", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestGuardLoginRejectsBadPassword(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	var events []string
	guard := newTestGuard(t, clock, &events)

	rec := httptest.NewRecorder()
	_, err := guard.Login(rec, httptest.NewRequest(http.MethodPost, "/admin/login", nil), "admin", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, []string{"admin.login_failed"}, events)
}

func TestRequireAdminAllowsSessionAndInjectsAdmin(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)
	sess, cookies := login(t, guard)

	assert.NotEmpty(t, sess.ID)
	assert.NotEmpty(t, sess.CSRFToken)
	assert.Equal(t, clock.now.Add(2*time.Hour), sess.ExpiresAt)

	clock.Advance(10 * time.Minute)
	rec := httptest.NewRecorder()
	req := withCookies(httptest.NewRequest(http.MethodGet, "/admin/orders", nil), cookies)
	guard.RequireAdmin(nil)(adminEcho()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1, "active session should be refreshed")
}

func TestRequireAdminRejectsMissingSession(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)

	rec := httptest.NewRecorder()
	guard.RequireAdmin(nil)(adminEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthenticated", body["error"])

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: defaultCookieName, Value: "tampered"})
	guard.RequireAdmin(nil)(adminEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminExpiresIdleSessions(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	var events []string
	guard := newTestGuard(t, clock, &events)
	_, cookies := login(t, guard)

	clock.Advance(31 * time.Minute)
	rec := httptest.NewRecorder()
	req := withCookies(httptest.NewRequest(http.MethodGet, "/admin", nil), cookies)
	guard.RequireAdmin(nil)(adminEcho()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_expired")
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
	assert.Contains(t, events, "admin.session_expired")
}

func TestRequireAdminEnforcesAbsoluteLifetime(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)
	_, cookies := login(t, guard)
	handler := guard.RequireAdmin(nil)(adminEcho())

	// Keep the session active so only the absolute expiry applies.
	for i := 0; i < 4; i++ {
		clock.Advance(25 * time.Minute)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/admin", nil), cookies))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		cookies = rec.Result().Cookies()
	}

	clock.Advance(25 * time.Minute)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/admin", nil), cookies))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminChecksCSRFOnUnsafeMethods(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)
	sess, cookies := login(t, guard)
	handler := guard.RequireAdmin(nil)(adminEcho())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodPost, "/admin/products", nil), cookies))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "csrf_failed")

	rec = httptest.NewRecorder()
	req := withCookies(httptest.NewRequest(http.MethodDelete, "/admin/products/p1", nil), cookies)
	req.Header.Set("X-CSRF-Token", "not-the-token")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = withCookies(httptest.NewRequest(http.MethodPatch, "/admin/products/p1", nil), cookies)
	req.Header.Set("X-CSRF-Token", sess.CSRFToken)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	form := url.Values{CSRFFormField: {sess.CSRFToken}, "status": {"fulfilled"}}
	rec = httptest.NewRecorder()
	req = withCookies(httptest.NewRequest(http.MethodPost, "/admin/orders/o1/status", strings.NewReader(form.Encode())), cookies)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminCustomFailureHandler(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)

	var seen error
	redirect := func(w http.ResponseWriter, r *http.Request, err error) {
		seen = err
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
	}
	rec := httptest.NewRecorder()
	guard.RequireAdmin(redirect)(adminEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.ErrorIs(t, seen, ErrNoSession)
}

func TestGuardLogoutClearsCookie(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}
	guard := newTestGuard(t, clock, nil)
	_, cookies := login(t, guard)

	current, ok := guard.Current(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies))
	require.True(t, ok)
	assert.Equal(t, "admin", current.Username)

	rec := httptest.NewRecorder()
	guard.Logout(rec, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, defaultCookieName, cleared[0].Name)
	assert.Empty(t, cleared[0].Value)
}
