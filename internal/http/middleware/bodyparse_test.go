package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newBodyRouter(maxBytes int64, handled *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyParser(maxBytes))
	r.POST("/echo", func(c *gin.Context) {
		if handled != nil {
			*handled = true
		}
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"data": nil, "message": err.Error(), "status": "BAD_REQUEST"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": payload, "message": "ok", "status": "SUCCESS"})
	})
	return r
}

func TestBodyParser_OversizedRejectedBeforeHandler(t *testing.T) {
	handled := false
	r := newBodyRouter(64, &handled)

	big := `{"blob":"` + strings.Repeat("x", 128) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("unexpected status field: %v", body["status"])
	}
	if handled {
		t.Fatalf("oversized body must not reach the handler")
	}
}

func TestBodyParser_OversizedNonJSONRejected(t *testing.T) {
	handled := false
	r := newBodyRouter(64, &handled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 128)))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("unexpected status field: %v", body["status"])
	}
	if handled {
		t.Fatalf("oversized body must not reach the handler")
	}
}

func TestBodyParser_OversizedUnknownLengthRejected(t *testing.T) {
	// No usable Content-Length on the request, so the ceiling has to trip
	// during the read itself.
	handled := false
	r := newBodyRouter(64, &handled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", io.NopCloser(strings.NewReader(strings.Repeat("x", 128))))
	req.Header.Set("Content-Type", "application/octet-stream")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if handled {
		t.Fatalf("oversized body must not reach the handler")
	}
}

func TestBodyParser_AtCeilingAccepted(t *testing.T) {
	payload := []byte(`{"k":"v"}`)
	r := newBodyRouter(int64(len(payload)), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("body at ceiling must pass, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBodyParser_MalformedJSONRejected(t *testing.T) {
	handled := false
	r := newBodyRouter(1<<20, &handled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"broken":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "BAD_REQUEST" {
		t.Fatalf("unexpected status field: %v", body["status"])
	}
	if handled {
		t.Fatalf("malformed body must not reach the handler")
	}
}

func TestBodyParser_ValidBodyRestoredForBinding(t *testing.T) {
	r := newBodyRouter(1<<20, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	if data["name"] != "Ada" {
		t.Fatalf("handler did not receive the buffered body: %v", body)
	}
}

func TestBodyParser_EmptyBodyPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyParser(16))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
