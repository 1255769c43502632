package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"finman-sync-server/internal/config"
)

func corsHandler(cfg config.CORSConfig) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return CORSMiddleware(cfg)(next)
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: "https://app.example.com, https://staging.example.com",
		AllowedMethods: "GET,POST,OPTIONS",
		AllowedHeaders: "Content-Type,Authorization",
	}
	h := corsHandler(cfg)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"listed origin echoed", "https://app.example.com", "https://app.example.com"},
		{"second listed origin echoed", "https://staging.example.com", "https://staging.example.com"},
		{"unlisted origin gets nothing", "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/download", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORSWildcard(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: "*",
		AllowedMethods: "GET,POST,OPTIONS",
		AllowedHeaders: "Content-Type",
	}
	h := corsHandler(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin echoed", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins: "https://app.example.com",
		AllowedMethods: "GET,POST,OPTIONS",
		AllowedHeaders: "Content-Type",
	}
	h := corsHandler(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync/upload", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != cfg.AllowedMethods {
		t.Errorf("Access-Control-Allow-Methods = %q, want %q", got, cfg.AllowedMethods)
	}
}
