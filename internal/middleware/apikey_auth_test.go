package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubKeys struct {
	valid string
	key   *models.APIKey
	seen  []string
}

func (s *stubKeys) Authenticate(_ context.Context, raw string) (*models.APIKey, error) {
	s.seen = append(s.seen, raw)
	if raw != s.valid {
		return nil, errors.New("invalid")
	}
	return s.key, nil
}

type stubTokens struct {
	token string
	role  string
}

func (s stubTokens) ValidateToken(_ context.Context, token string) (string, error) {
	if token != s.token {
		return "", errors.New("bad token")
	}
	return s.role, nil
}

// okHandler writes 200 and the key name (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if k := APIKeyFromCtx(r.Context()); k != nil {
		w.Write([]byte(k.Name))
	}
})

// ---------------------------------------------------------------------------
// APIKeyAuth
// ---------------------------------------------------------------------------

func TestAPIKeyAuth_HeaderKey(t *testing.T) {
	keys := &stubKeys{valid: "cnd_abc", key: &models.APIKey{ID: "k1", Name: "scout"}}
	handler := APIKeyAuth(keys)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/me", nil)
	req.Header.Set("x-api-key", "cnd_abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "scout" {
		t.Errorf("expected key in context, body = %q", rec.Body.String())
	}
}

func TestAPIKeyAuth_BearerFallback(t *testing.T) {
	keys := &stubKeys{valid: "cnd_abc", key: &models.APIKey{Name: "scout"}}
	handler := APIKeyAuth(keys)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer cnd_abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_HeaderWinsOverBearer(t *testing.T) {
	keys := &stubKeys{valid: "cnd_abc", key: &models.APIKey{Name: "scout"}}
	handler := APIKeyAuth(keys)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-api-key", "cnd_abc")
	req.Header.Set("Authorization", "Bearer something-else")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(keys.seen) != 1 || keys.seen[0] != "cnd_abc" {
		t.Errorf("authenticated with %v", keys.seen)
	}
}

func TestAPIKeyAuth_Rejects(t *testing.T) {
	keys := &stubKeys{valid: "cnd_abc", key: &models.APIKey{}}
	handler := APIKeyAuth(keys)(okHandler)

	cases := map[string]func(r *http.Request){
		"missing":   func(r *http.Request) {},
		"wrong key": func(r *http.Request) { r.Header.Set("x-api-key", "cnd_nope") },
		"malformed": func(r *http.Request) { r.Header.Set("Authorization", "Token cnd_abc") },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RequireOperator
// ---------------------------------------------------------------------------

func TestRequireOperator(t *testing.T) {
	var admitted bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admitted = OperatorFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireOperator(stubTokens{token: "good", role: "operator"}, "operator")(next)

	cases := []struct {
		header string
		want   int
	}{
		{"Bearer good", http.StatusOK},
		{"Bearer bad", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		admitted = false
		req := httptest.NewRequest(http.MethodGet, "/api/v1/keys", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("header %q: got %d, want %d", tc.header, rec.Code, tc.want)
		}
		if tc.want == http.StatusOK && !admitted {
			t.Errorf("header %q: operator flag missing from context", tc.header)
		}
	}
}

func TestRequireOperator_WrongRole(t *testing.T) {
	handler := RequireOperator(stubTokens{token: "good", role: "viewer"}, "operator")(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
