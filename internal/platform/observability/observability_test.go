package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
)

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "internal_server_error") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestRequestLoggerMiddlewareLogsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	handler := InjectLoggerMiddleware(logger)(RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusTeapot) {
		t.Fatalf("expected status 418 logged, got %v", got)
	}
}

func TestRequestLoggerMiddlewareSkipsStaticAssets(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(RequestLoggerMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/site.css", nil))

	if logs.Len() != 0 {
		t.Fatalf("expected static asset request to be skipped, got %d entries", logs.Len())
	}
}

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	fallbackCore, fallbackLogs := observer.New(zap.InfoLevel)
	requestCore, requestLogs := observer.New(zap.InfoLevel)

	log := NewEventLogger(zap.New(fallbackCore), "cart")
	ctx := requestctx.WithLogger(context.Background(), zap.New(requestCore))
	log(ctx, "cart.item.added", map[string]any{"cartId": "c1"})
	log(context.Background(), "cart.sync.failed", nil)

	if requestLogs.Len() != 1 {
		t.Fatalf("expected request logger to receive event")
	}
	failed := fallbackLogs.All()
	if len(failed) != 1 || failed[0].Level != zap.WarnLevel {
		t.Fatalf("expected failure event at warn level on fallback logger, got %#v", failed)
	}
}

func TestParseCloudTraceContext(t *testing.T) {
	spanCtx, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if !spanCtx.IsSampled() || !spanCtx.IsRemote() {
		t.Fatalf("expected sampled remote span context")
	}
	if _, ok := parseCloudTraceContext("bogus"); ok {
		t.Fatalf("expected malformed header to be rejected")
	}
}

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("jane@example.com"); got != "j***@example.com" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskPhone("0412 345 678"); got != "*******678" {
		t.Fatalf("unexpected phone mask %q", got)
	}
}
