package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

type userSummary struct {
	Username         string `json:"username"`
	WorkingDirectory string `json:"workingDirectory"`
}

type sessionResponse struct {
	userSummary
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type createUserRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	HomeDirectory string `json:"homeDirectory,omitempty"`
	APICredential string `json:"apiCredential,omitempty"`
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.logger.Info(r.Context(), "login rejected", "username", req.Username)
		writeServiceError(w, err)
		return
	}

	token, err := a.users.IssueToken(claims)
	if err != nil {
		a.logger.Error(r.Context(), "token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.cfg.TokenValidityDuration),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	a.logger.Info(r.Context(), "login ok", "username", claims.Username)
	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userSummary{Username: claims.Username, WorkingDirectory: claims.HomeDir},
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	// logout is client-local: clear the cookie, no server-side revocation
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	resp := sessionResponse{
		userSummary: userSummary{
			Username:         claims.Username,
			WorkingDirectory: claims.HomeDir,
		},
	}
	// Enrich from the registry when available; claims alone are enough to
	// answer, so a lookup failure is not fatal.
	if user, err := a.users.GetUser(r.Context(), claims.Username); err == nil {
		resp.CreatedAt = &user.CreatedAt
		resp.LastLogin = user.LastLogin
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.users.CreateUser(r.Context(), req.Username, req.Password, req.HomeDirectory, req.APICredential)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	a.logger.Info(r.Context(), "user created", "username", user.UserName)
	writeJSON(w, http.StatusCreated, userSummary{
		Username:         user.UserName,
		WorkingDirectory: user.HomeDir,
	})
}

func (a *API) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := a.users.HasAnyUser(r.Context())
	if err != nil {
		// a registry that cannot be read must not report "no users"
		a.logger.Error(r.Context(), "registry read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasUsers": hasUsers})
}

func (a *API) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.users.CreateFirstUser(r.Context(), req.Username, req.Password, req.HomeDirectory, req.APICredential)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	a.logger.Info(r.Context(), "first user created", "username", user.UserName)
	writeJSON(w, http.StatusCreated, userSummary{
		Username:         user.UserName,
		WorkingDirectory: user.HomeDir,
	})
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos := a.supervisor.Registry().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(infos),
		"sessions": infos,
	})
}
