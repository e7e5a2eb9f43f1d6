package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/platform/requestctx"
)

var fixedTime = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

func checkoutRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestMiddleware_MissingHeaderPassesThroughByDefault(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, checkoutRequest(`{"name":"Sam"}`, ""))
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both unkeyed requests to reach the handler, got %d", calls)
	}
}

func TestMiddleware_RequireKeyRejectsMissingHeader(t *testing.T) {
	handler := Middleware(NewMemoryStore(), RequireKey())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked when header is missing")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, checkoutRequest(`{}`, ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"redirectUrl":"https://pay.example/s/1"}`))
		}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, checkoutRequest(`{"name":"Sam"}`, "chk-1"))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, checkoutRequest(`{"name":"Sam"}`, "chk-1"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, got %d", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatal("expected replay header to be present")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content-type json, got %s", got)
	}
	if rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("expected body %s, got %s", rr1.Body.String(), rr2.Body.String())
	}
}

func TestMiddleware_KeysAreScopedPerCart(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for _, cart := range []string{"cart-a", "cart-b"} {
		req := checkoutRequest(`{}`, "shared")
		req = req.WithContext(requestctx.WithCartID(req.Context(), cart))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected distinct carts to run independently, got %d calls", calls)
	}
}

func TestMiddleware_ConflictingFingerprintReturnsConflict(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, checkoutRequest(`{"name":"Sam"}`, "same-key"))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request success, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, checkoutRequest(`{"name":"Alex"}`, "same-key"))
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", rr2.Code)
	}
	assertErrorResponse(t, rr2.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingReservationReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not be invoked when reservation pending")
		}))

	req := checkoutRequest(`{"name":"Sam"}`, "pending-key")
	body, err := readAndReplayBody(req)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	identity := requester(req)
	if _, err := store.Reserve(req.Context(), scopedKey("pending-key", identity), requestFingerprint(req, body, identity), fixedTime, time.Hour); err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending reservation, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_ServerErrorsAreNotCached(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, checkoutRequest(`{}`, "retry"))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, checkoutRequest(`{}`, "retry"))

	if rr1.Code != http.StatusBadGateway || rr2.Code != http.StatusCreated {
		t.Fatalf("expected 502 then 201, got %d then %d", rr1.Code, rr2.Code)
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", calls)
	}
}

func TestMiddleware_SaveFailureReleasesReservation(t *testing.T) {
	store := &stubStore{failSave: true}
	var events []string
	handler := Middleware(store, WithLogger(func(_ context.Context, event string, _ map[string]any) {
		events = append(events, event)
	}))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, checkoutRequest(`{}`, "fail-key"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected handler response to be delivered, got %d", rr.Code)
	}
	if !store.released {
		t.Fatal("expected reservation to be released on failure")
	}
	if len(events) == 0 || events[0] != "idempotency.save_failed" {
		t.Fatalf("expected save failure to be logged, got %v", events)
	}
}

func TestMiddleware_StoreErrorReturnsUnavailable(t *testing.T) {
	store := &stubStore{failReserve: true}
	handler := Middleware(store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run when the store is down")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, checkoutRequest(`{}`, "down"))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_store_error")
}

func TestMiddleware_IgnoresSafeMethods(t *testing.T) {
	handler := Middleware(NewMemoryStore(), RequireKey())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected GET to bypass middleware, got %d", rr.Code)
	}
}

type stubStore struct {
	failSave    bool
	failReserve bool
	released    bool
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	if s.failReserve {
		return Reservation{}, errors.New("store offline")
	}
	return Reservation{State: ReservationStateNew}, nil
}

func (s *stubStore) SaveResponse(context.Context, string, string, Response, time.Time, time.Duration) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return nil
}

func (s *stubStore) Release(context.Context, string, string) error {
	s.released = true
	return nil
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
