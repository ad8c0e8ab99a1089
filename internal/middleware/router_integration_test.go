package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// TestRouterIntegration_ClientIDAndCSRF は ClientID -> CSRF のチェーンが
// chi.Routerで正しく動作することを検証する。
func TestRouterIntegration_ClientIDAndCSRF(t *testing.T) {
	cookieCfg := CookieConfig{}

	r := chi.NewRouter()
	r.Use(NewClientIDMiddleware(cookieCfg))
	r.Get("/api/csrf-token", NewCSRFTokenHandler(cookieCfg).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewCSRFMiddleware(cookieCfg))

		r.Get("/api/session", func(w http.ResponseWriter, r *http.Request) {
			id, _ := ClientIDFromContext(r.Context())
			WriteJSON(w, http.StatusOK, map[string]string{"client_id": id})
		})
		r.Post("/api/session/resume", func(w http.ResponseWriter, r *http.Request) {
			id, _ := ClientIDFromContext(r.Context())
			WriteJSON(w, http.StatusOK, map[string]string{"client_id": id, "action": "resumed"})
		})
	})

	t.Run("トークン取得でCookieが2つ発行される", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if findCookie(resp, "client_id") == nil || findCookie(resp, csrfCookieName) == nil {
			t.Errorf("cookies = %v", resp.Cookies())
		}
	})

	t.Run("GETはトークンなしで通る", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.AddCookie(&http.Cookie{Name: "client_id", Value: testClientID})
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		var body map[string]string
		json.NewDecoder(w.Result().Body).Decode(&body)
		if w.Code != http.StatusOK || body["client_id"] != testClientID {
			t.Errorf("status = %d, body = %v", w.Code, body)
		}
	})

	t.Run("POSTはトークン付きで通る", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/session/resume", nil)
		req.AddCookie(&http.Cookie{Name: "client_id", Value: testClientID})
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "test-csrf-token"})
		req.Header.Set(csrfHeaderName, "test-csrf-token")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("POSTはトークンなしで403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/session/resume", nil)
		req.AddCookie(&http.Cookie{Name: "client_id", Value: testClientID})
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}
