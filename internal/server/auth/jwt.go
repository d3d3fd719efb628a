// Package auth implements the signed session-token scheme: a self-contained
// HS256 JWT carrying the authenticated user's identity and sandbox root.
// All authorization decisions re-validate the signature and expiry server
// side; client-supplied fields outside the token are never trusted.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkrutov/termgate/internal/shared"
)

// Claims are the session token claims. HomeDir is the user's sandbox root;
// APICredential is the optional personal engine credential, carried in the
// token so a session can be spawned without a registry round trip.
type Claims struct {
	jwt.RegisteredClaims
	UserID        string `json:"uid"`
	Username      string `json:"username"`
	HomeDir       string `json:"home_dir"`
	APICredential string `json:"api_credential,omitempty"`
}

// GenerateToken signs claims with the process-wide secret. The expiry is set
// here; any ExpiresAt already present on the claims is overwritten.
func GenerateToken(claims *Claims, secretKey []byte, validityDuration time.Duration) (string, error) {
	jti, err := shared.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry of a token string and returns
// its claims. An invalid signature, malformed payload, or expired token all
// map to shared.ErrorInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, shared.ErrorInvalidToken
	}

	if !token.Valid {
		return nil, shared.ErrorInvalidToken
	}

	return claims, nil
}
