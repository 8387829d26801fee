package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/ai"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/internal/store/memory"
)

const testSecret = "test-secret"

func newTestRouter(secret string) http.Handler {
	backend := memory.NewBackend()
	tabs := tab.NewMemoryStore(tab.Seed())
	manager := session.NewManager(session.Dependencies{
		Transcripts: backend.Transcripts,
		Memories:    backend.Memories,
		Profiles:    backend.Profiles,
		Tabs:        tabs,
		Generator:   ai.Unconfigured{},
	})
	return NewRouter(Options{
		Tabs:           tabs,
		Sessions:       manager,
		AllowedOrigins: []string{"https://app.brightly.test"},
		JWTSecret:      secret,
	})
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealthz(t *testing.T) {
	r := newTestRouter("")
	resp := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestOpenRoutesWithoutSecret(t *testing.T) {
	r := newTestRouter("")
	resp := serve(r, httptest.NewRequest(http.MethodPost, "/api/accounts/u1/sign-in", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestOwnerTokenRequired(t *testing.T) {
	r := newTestRouter(testSecret)

	resp := serve(r, httptest.NewRequest(http.MethodGet, "/api/tabs", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("catalogue must stay public, got %d", resp.Code)
	}

	resp = serve(r, httptest.NewRequest(http.MethodPost, "/api/accounts/u1/sign-in", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/u1/sign-in", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	if resp = serve(r, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/accounts/u1/sign-in", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u2"))
	if resp = serve(r, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another owner's token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/accounts/u1/sign-in", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1"))
	if resp = serve(r, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with owner token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats/u1/ask-brightly/sessions?access_token="+signToken(t, "u1"), nil)
	if resp = serve(r, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter("")

	req := httptest.NewRequest(http.MethodOptions, "/api/tabs", nil)
	req.Header.Set("Origin", "https://app.brightly.test")
	resp := serve(r, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.brightly.test" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tabs", nil)
	req.Header.Set("Origin", "https://evil.test")
	resp = serve(r, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be allowed, got %q", got)
	}
}
