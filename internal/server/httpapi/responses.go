package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkrutov/termgate/internal/shared"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps sentinel errors to HTTP statuses with generic
// messages: credential failures never distinguish missing users, and
// sandbox violations never disclose paths.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrorInvalidLoginPassword),
		errors.Is(err, shared.ErrorUnauthorized),
		errors.Is(err, shared.ErrorInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, shared.ErrorLoginAlreadyExists):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, shared.ErrorSetupComplete):
		writeError(w, http.StatusConflict, "setup already complete")
	case errors.Is(err, shared.ErrorAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, shared.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, shared.ErrorFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
