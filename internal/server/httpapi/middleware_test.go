package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrutov/termgate/internal/server/auth"
	"github.com/mkrutov/termgate/internal/shared"
)

type stubVerifier struct {
	valid string
}

func (v *stubVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if token == v.valid {
		return &auth.Claims{Username: "alice", HomeDir: "/home/alice"}, nil
	}
	return nil, shared.ErrorInvalidToken
}

func claimsEcho(t *testing.T, got **auth.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			*got = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestExtractToken_Priority(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})

	assert.Equal(t, "from-header", extractToken(req))

	req.Header.Del("Authorization")
	assert.Equal(t, "from-query", extractToken(req))

	req.URL.RawQuery = ""
	assert.Equal(t, "from-cookie", extractToken(req))
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{valid: "good"}

	var got *auth.Claims
	handler := RequireAuth(verifier)(claimsEcho(t, &got))

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantClaims bool
	}{
		{name: "valid token", token: "good", wantStatus: http.StatusOK, wantClaims: true},
		{name: "invalid token", token: "bad", wantStatus: http.StatusUnauthorized},
		{name: "missing token", token: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantClaims {
				require.NotNil(t, got)
				assert.Equal(t, "alice", got.Username)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	verifier := &stubVerifier{valid: "good"}

	var got *auth.Claims
	handler := OptionalAuth(verifier)(claimsEcho(t, &got))

	// anonymous requests pass through without claims
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got)

	// an invalid token is ignored, not rejected
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, got)

	// a valid token attaches claims
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "good", Expires: time.Now().Add(time.Hour)})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
}
