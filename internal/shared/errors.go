// Package shared defines sentinel errors and small utilities used across
// termgate components. Callers should use errors.Is to match these values.
package shared

import "errors"

var (

	// common errors
	ErrorNotFound = errors.New("not found")

	// auth-specific errors
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInvalidToken = errors.New("invalid token")

	ErrorLoginAlreadyExists   = errors.New("login already exists")
	ErrorInvalidLoginPassword = errors.New("invalid login/password")

	// sandbox-specific errors
	ErrorAccessDenied = errors.New("access denied")

	// bootstrap-specific errors
	ErrorSetupComplete = errors.New("setup already complete")

	// file endpoint errors
	ErrorFileTooLarge = errors.New("file too large")
)
