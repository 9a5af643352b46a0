package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestRequestLoggerRecordsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/papers/ghost", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Errorf("expected request_id in log entry, got %v", entry)
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("expected handler status logged, got %v", entry["status"])
	}
	if entry["path"] != "/api/papers/ghost" {
		t.Errorf("expected path logged, got %v", entry["path"])
	}
}
