package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/extractions"
	"docredact-backend/internal/shared/config"
)

func TestRouterLimitsOnlyExternalRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := documents.NewMemoryRepo()
	r := NewRouter(RouterDeps{
		Config: config.Config{
			Env:                    "dev",
			ExternalRateLimitRPS:   0.001,
			ExternalRateLimitBurst: 1,
		},
		DocumentHandler:   documents.NewHandler(&documents.Service{Repo: repo}, 0),
		ExtractionHandler: extractions.NewHandler(&extractions.Service{Repo: repo}, nil),
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents/missing/extract", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNotFound || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 404 then 429, got %v", codes)
	}

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("list request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{Config: config.Config{Env: "dev"}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"ok":true,"database":"memory"}` {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAddr(t *testing.T) {
	tests := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range tests {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
