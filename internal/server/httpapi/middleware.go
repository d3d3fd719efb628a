package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkrutov/termgate/internal/server/auth"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "termgate_token"

type ctxKey string

const claimsKey ctxKey = "claims"

// TokenVerifier validates a session token string and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// ClaimsFromContext returns the authenticated principal attached by the
// auth middleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// extractToken pulls the bearer token from, in priority order: the
// Authorization header, the token query parameter (used by websocket
// upgrades and download links), and the session cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth rejects requests without a valid token and attaches the
// resolved claims as the request principal otherwise.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and continues
// unauthenticated otherwise. It exists for endpoints that behave
// differently for anonymous callers.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				if claims, err := verifier.VerifyToken(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
