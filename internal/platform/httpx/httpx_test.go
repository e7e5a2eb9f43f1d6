package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(context.Background(), rr, NewError("cart_not_found", "cart not found", http.StatusNotFound).
		WithFields(map[string]string{"cartId": "unknown"}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "cart_not_found" {
		t.Fatalf("unexpected error code %v", payload["error"])
	}
	fields, ok := payload["fields"].(map[string]any)
	if !ok || fields["cartId"] != "unknown" {
		t.Fatalf("expected fields detail, got %v", payload["fields"])
	}
}

func TestDecodeJSONRejectsUnknownFieldsAndLargeBodies(t *testing.T) {
	var dst struct {
		Quantity int `json:"quantity"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"extra":true}`))
	if err := DecodeJSON(req, 0, &dst); err == nil {
		t.Fatalf("expected unknown field error")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":12345}`))
	if err := DecodeJSON(req, 4, &dst); err != ErrBodyTooLarge {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(` `))
	if err := DecodeJSON(req, 0, &dst); err != ErrEmptyBody {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}
