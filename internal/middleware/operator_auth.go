package middleware

import (
	"context"
	"net/http"
)

// TokenValidator checks an operator token and returns its role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// RequireOperator admits only requests carrying a valid operator Bearer token.
func RequireOperator(tokens TokenValidator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			got, err := tokens.ValidateToken(r.Context(), tok)
			if err != nil || got != role {
				http.Error(w, `{"error":"operator token required"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxOperatorKey, got)))
		})
	}
}

// OperatorFromCtx reports whether the request was admitted by RequireOperator.
func OperatorFromCtx(ctx context.Context) bool {
	_, ok := ctx.Value(ctxOperatorKey).(string)
	return ok
}
