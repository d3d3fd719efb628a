// Package httpapi exposes the gateway's HTTP surface: authentication and
// user management, the one-time setup flow, sandboxed file access, and the
// websocket terminal endpoint.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkrutov/termgate/internal/logging"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/mkrutov/termgate/internal/server/terminal"
	"github.com/mkrutov/termgate/internal/server/users"
)

type API struct {
	users      *users.Service
	supervisor *terminal.Supervisor
	cfg        *config.Config
	logger     logging.Logger
}

func NewAPI(us *users.Service, sup *terminal.Supervisor, cfg *config.Config, l logging.Logger) *API {
	return &API{
		users:      us,
		supervisor: sup,
		cfg:        cfg,
		logger:     l.With("module", "httpapi"),
	}
}

// Router builds the chi router. Every file route passes its path argument
// through the sandbox resolver inside the handler; the auth middleware
// guards everything except login, setup, health, and the websocket endpoint
// (which authenticates in-protocol).
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/api/healthz", a.handleHealthz)
	r.Post("/api/login", a.handleLogin)
	r.Get("/api/setup-status", a.handleSetupStatus)
	r.Post("/api/setup", a.handleSetup)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(a.users))

		r.Get("/api/session", a.handleSession)
		r.Post("/api/logout", a.handleLogout)
		r.Post("/api/users", a.handleCreateUser)
		r.Get("/api/sessions", a.handleListSessions)

		r.Get("/api/files", a.handleListFiles)
		r.Delete("/api/files", a.handleDeleteFile)
		r.Get("/api/files/content", a.handleReadFile)
		r.Put("/api/files/content", a.handleWriteFile)
		r.Post("/api/files/upload", a.handleUploadFile)
	})

	r.Get("/ws", a.supervisor.HandleWS)

	return r
}
