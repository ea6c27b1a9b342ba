package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcardoso/zapboard/internal/auth"
)

func authProbe() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireAuthDisabledWithoutManager(t *testing.T) {
	next, called := authProbe()
	handler := RequireAuth(nil, next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bot-stats", nil))

	if !*called {
		t.Error("nil manager must pass requests through")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	next, called := authProbe()
	handler := RequireAuth(auth.NewJWTManager("test-secret"), next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bot-stats", nil))

	if *called {
		t.Error("request without a token must not reach the handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Success {
		t.Error("success = true on a rejected request")
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	next, called := authProbe()
	handler := RequireAuth(auth.NewJWTManager("test-secret"), next)

	req := httptest.NewRequest(http.MethodGet, "/api/bot-stats", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.here")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if *called {
		t.Error("request with an invalid token must not reach the handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")
	token, err := manager.GenerateToken("dashboard", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	next, called := authProbe()
	handler := RequireAuth(manager, next)

	req := httptest.NewRequest(http.MethodGet, "/api/bot-stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !*called {
		t.Error("valid token must reach the handler")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
