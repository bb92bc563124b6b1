package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/EcosystemNetwork/Conductor/internal/models"
)

type contextKey string

const (
	ctxAPIKeyKey   contextKey = "api_key"
	ctxOperatorKey contextKey = "operator_role"
)

// KeyAuthenticator resolves a raw API key to its active record.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.APIKey, error)
}

// APIKeyAuth authenticates requests by the x-api-key header, falling back to
// an Authorization Bearer token. On success the key record is placed in the
// request context.
func APIKeyAuth(keys KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractAPIKey(r)
			if raw == "" {
				http.Error(w, `{"error":"missing api key"}`, http.StatusUnauthorized)
				return
			}
			key, err := keys.Authenticate(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAPIKey(r.Context(), key)))
		})
	}
}

// APIKeyFromCtx returns the authenticated key or nil.
func APIKeyFromCtx(ctx context.Context) *models.APIKey {
	k, _ := ctx.Value(ctxAPIKeyKey).(*models.APIKey)
	return k
}

// WithAPIKey returns a context carrying the given key.
func WithAPIKey(ctx context.Context, k *models.APIKey) context.Context {
	return context.WithValue(ctx, ctxAPIKeyKey, k)
}

func extractAPIKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	return extractBearer(r)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
