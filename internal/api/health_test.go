package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		postgres Check
		redis    Check
		code     int
		status   string
	}{
		{"all up", up, up, http.StatusOK, "ok"},
		{"redis down", up, down, http.StatusOK, "degraded"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error"},
		{"both down", down, down, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{postgres: tt.postgres, redis: tt.redis, env: "test"}
			router := NewRouter(RouterConfig{Health: h})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			var resp ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("status = %q, want %q", resp.Status, tt.status)
			}
		})
	}
}

func TestLiveness(t *testing.T) {
	h := &HealthHandler{postgres: down, redis: down, version: "1.2.0"}
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
}
