package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"runClubAPI/internal/identity"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Auth validates the bearer token with the given verifier and puts the
// caller's identity into the request context.
func Auth(verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Remove "Bearer " prefix
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, identity.ErrInvalidToken) {
					zap.S().Warnf("Token verification failed: %v", err)
				}
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "User not authenticated")
			return
		}
		if !id.Admin {
			zap.S().Warnf("admin route %s refused for %s", r.URL.Path, id.UID)
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity extracts the authenticated caller from context
func GetIdentity(ctx context.Context) (*identity.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*identity.Identity)
	return id, ok && id != nil
}

// WithIdentity is used by tests and internal callers that bypass Auth.
func WithIdentity(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(fmt.Sprintf(`{"error": %q}`, message)))
}
