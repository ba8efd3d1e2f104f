package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmpoweredVote/geoharvest/internal/middleware"
)

// call wraps a simple 200-OK inner handler in mw and returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://kaart.example.nl"})
	req := httptest.NewRequest(http.MethodGet, "/admin/harvest", nil)
	req.Header.Set("Origin", "https://kaart.example.nl")

	rec := call(t, mw, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://kaart.example.nl" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://kaart.example.nl"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rec := call(t, mw, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	mw := middleware.CORS(nil)
	req := httptest.NewRequest(http.MethodOptions, "/admin/harvest", nil)

	rec := call(t, mw, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestAdminToken_EmptyTokenIsOpen(t *testing.T) {
	rec := call(t, middleware.AdminToken(""), httptest.NewRequest(http.MethodPost, "/admin/harvest", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAdminToken_MissingHeader(t *testing.T) {
	rec := call(t, middleware.AdminToken("s3cret"), httptest.NewRequest(http.MethodPost, "/admin/harvest", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "missing bearer token") {
		t.Errorf("expected body to contain %q, got: %q", "missing bearer token", body)
	}
}

func TestAdminToken_WrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/harvest", nil)
	req.Header.Set("Authorization", "Bearer nope")

	rec := call(t, middleware.AdminToken("s3cret"), req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAdminToken_ValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/admin/harvest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")

	rec := call(t, middleware.AdminToken("s3cret"), req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
