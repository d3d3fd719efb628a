package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrutov/termgate/internal/logging"
	"github.com/mkrutov/termgate/internal/server/config"
	"github.com/mkrutov/termgate/internal/server/terminal"
	"github.com/mkrutov/termgate/internal/server/tools"
	"github.com/mkrutov/termgate/internal/server/users"
)

type testAPI struct {
	api    *API
	users  *users.Service
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.SecretKey = "test-secret"
	cfg.EngineCommand = "/bin/cat"
	cfg.ToolAllowList = []string{"noop"}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	userService := users.NewService(users.NewInMemoryRepository(), cfg)
	provisioner := tools.NewProvisioner(cfg, logger)
	supervisor := terminal.NewSupervisor(userService, provisioner, cfg, logger)

	api := NewAPI(userService, supervisor, cfg, logger)
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	return &testAPI{api: api, users: userService, server: server}
}

func (a *testAPI) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (a *testAPI) createUserAndToken(t *testing.T, username, password string) string {
	t.Helper()
	ctx := context.Background()
	_, err := a.users.CreateUser(ctx, username, password, "", "")
	require.NoError(t, err)
	claims, err := a.users.Authenticate(ctx, username, password)
	require.NoError(t, err)
	token, err := a.users.IssueToken(claims)
	require.NoError(t, err)
	return token
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)
	a.createUserAndToken(t, "alice", "pa55word")

	resp := a.request(t, http.MethodPost, "/api/login", "", loginRequest{Username: "alice", Password: "pa55word"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "alice", body.User.Username)
	assert.NotEmpty(t, body.User.WorkingDirectory)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "login must set the session cookie")
	assert.True(t, sessionCookie.HttpOnly)
}

func TestLogin_GenericRejection(t *testing.T) {
	a := newTestAPI(t)
	a.createUserAndToken(t, "alice", "pa55word")

	for _, body := range []loginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "pa55word"},
	} {
		resp := a.request(t, http.MethodPost, "/api/login", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var er errorResponse
		decodeBody(t, resp, &er)
		assert.Equal(t, "invalid credentials", er.Error, "rejections must not identify the failing field")
	}
}

func TestSession_RequiresToken(t *testing.T) {
	a := newTestAPI(t)

	resp := a.request(t, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/session", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := a.createUserAndToken(t, "alice", "pa55word")
	resp = a.request(t, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body userSummary
	decodeBody(t, resp, &body)
	assert.Equal(t, "alice", body.Username)
}

func TestSession_CookieAuth(t *testing.T) {
	a := newTestAPI(t)
	token := a.createUserAndToken(t, "alice", "pa55word")

	req, err := http.NewRequest(http.MethodGet, a.server.URL+"/api/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateUser(t *testing.T) {
	a := newTestAPI(t)
	token := a.createUserAndToken(t, "admin", "pa55word")

	resp := a.request(t, http.MethodPost, "/api/users", token,
		createUserRequest{Username: "bob", Password: "s3cret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// duplicate username conflicts
	resp = a.request(t, http.MethodPost, "/api/users", token,
		createUserRequest{Username: "bob", Password: "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// unauthenticated creation is rejected
	resp = a.request(t, http.MethodPost, "/api/users", "",
		createUserRequest{Username: "carol", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSetupFlow(t *testing.T) {
	a := newTestAPI(t)

	resp := a.request(t, http.MethodGet, "/api/setup-status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]bool
	decodeBody(t, resp, &status)
	assert.False(t, status["hasUsers"])

	resp = a.request(t, http.MethodPost, "/api/setup", "",
		createUserRequest{Username: "admin", Password: "pa55word"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/setup-status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.True(t, status["hasUsers"])

	// the bootstrap path closes after the first user
	resp = a.request(t, http.MethodPost, "/api/setup", "",
		createUserRequest{Username: "intruder", Password: "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogout_ClearsCookie(t *testing.T) {
	a := newTestAPI(t)
	token := a.createUserAndToken(t, "alice", "pa55word")

	resp := a.request(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout must clear the session cookie")
}

func TestListSessions_EmptyRegistry(t *testing.T) {
	a := newTestAPI(t)
	token := a.createUserAndToken(t, "alice", "pa55word")

	resp := a.request(t, http.MethodGet, "/api/sessions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count    int   `json:"count"`
		Sessions []any `json:"sessions"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 0, body.Count)
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)

	resp := a.request(t, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
}
