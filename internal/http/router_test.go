package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edubloom/edubloom-api/internal/config"
	"github.com/edubloom/edubloom-api/internal/http/handlers"
	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/security"
	"github.com/edubloom/edubloom-api/internal/service"
	"github.com/edubloom/edubloom-api/internal/storage/memory"
	"github.com/edubloom/edubloom-api/internal/tokens"
)

const (
	rootEmail    = "root@edubloom.io"
	rootPassword = "root-password-1"
	cookieName   = "refreshToken"
)

type testAPI struct {
	srv *httptest.Server
	st  *memory.Storage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	auth := config.AuthConfig{
		AccessSecret:    "e2e-access-secret",
		RefreshSecret:   "e2e-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "edubloom-api",
	}
	issuer, err := tokens.NewIssuer(auth)
	require.NoError(t, err)

	hasher := security.NewArgon2Hasher(security.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	st := memory.New()

	svc, err := service.New(st, hasher, issuer)
	require.NoError(t, err)

	_, err = svc.BootstrapSuperAdmin(context.Background(), rootEmail, rootPassword, "Root")
	require.NoError(t, err)

	r, err := NewRouter(svc, Options{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:       5 * time.Second,
		BasePath:      "/api/v1",
		IsDevelopment: true,
		Cookie:        handlers.CookieOptions{Name: cookieName, Path: "/", TTL: auth.RefreshTokenTTL},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, st: st}
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	cookie  *http.Cookie
	headers map[string]string
}

func (a *testAPI) do(t *testing.T, c call) *http.Response {
	t.Helper()

	var rdr io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(c.method, a.srv.URL+"/api/v1"+c.path, rdr)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

type authBody struct {
	AccessToken string            `json:"accessToken"`
	User        models.PublicUser `json:"user"`
}

type errBody struct {
	Error struct {
		Code      string               `json:"code"`
		Message   string               `json:"message"`
		RequestID string               `json:"request_id"`
		Details   []service.FieldIssue `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func (a *testAPI) login(t *testing.T, email, password string) (authBody, *http.Cookie) {
	t.Helper()

	resp := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": email, "password": password}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return decode[authBody](t, resp), refreshCookie(t, resp)
}

func TestScenario_RegisterLoginRefreshReplay(t *testing.T) {
	api := newTestAPI(t)
	root, _ := api.login(t, rootEmail, rootPassword)

	resp := api.do(t, call{
		method: http.MethodPost, path: "/auth/register", bearer: root.AccessToken,
		body: map[string]string{"name": "A", "email": "a@x.com", "password": "password123", "role": "STUDENT"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.PublicUser](t, resp)
	require.Equal(t, "a@x.com", created.Email)
	require.Equal(t, models.RoleStudent, created.Role)

	body, cookie := api.login(t, "a@x.com", "password123")
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, created.ID, body.User.ID)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := refreshCookie(t, resp)
	require.NotEqual(t, cookie.Value, rotated.Value)
	refreshed := decode[authBody](t, resp)
	require.NotEmpty(t, refreshed.AccessToken)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	e := decode[errBody](t, resp)
	require.Equal(t, "invalid_token", e.Error.Code)
	require.Equal(t, "invalid token", e.Error.Message)
	require.NotEmpty(t, e.Error.RequestID)
}

func TestScenario_DuplicateRegisterConflict(t *testing.T) {
	api := newTestAPI(t)
	root, _ := api.login(t, rootEmail, rootPassword)

	in := map[string]string{"name": "B", "email": "b@x.com", "password": "password123", "role": "FACULTY"}
	resp := api.do(t, call{method: http.MethodPost, path: "/auth/register", bearer: root.AccessToken, body: in})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/register", bearer: root.AccessToken, body: in})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "conflict", decode[errBody](t, resp).Error.Code)
}

func TestScenario_LoginFailuresIndistinguishable(t *testing.T) {
	api := newTestAPI(t)

	missing := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "missing@x.com", "password": "whatever1"}})
	wrong := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": rootEmail, "password": "wrong-password"}})

	require.Equal(t, http.StatusUnauthorized, missing.StatusCode)
	require.Equal(t, missing.StatusCode, wrong.StatusCode)

	a, b := decode[errBody](t, missing), decode[errBody](t, wrong)
	require.Equal(t, a.Error.Code, b.Error.Code)
	require.Equal(t, a.Error.Message, b.Error.Message)
	require.Equal(t, "invalid credentials", a.Error.Message)
	require.Empty(t, missing.Cookies())
}

func TestLogin_ValidationAndMalformedBody(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "nope", "password": "x"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[errBody](t, resp)
	require.Equal(t, "validation_error", e.Error.Code)
	require.NotEmpty(t, e.Error.Details)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "a@x.com", "password": "password123", "extra": "1"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout_WithoutTokenStillClearsCookie(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, call{method: http.MethodPost, path: "/auth/logout"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := refreshCookie(t, resp)
	require.Empty(t, c.Value)
	require.Negative(t, c.MaxAge)
	require.Equal(t, "Logged out", decode[map[string]string](t, resp)["message"])
}

func TestLogout_InvalidatesRefreshToken(t *testing.T) {
	api := newTestAPI(t)
	_, cookie := api.login(t, rootEmail, rootPassword)

	resp := api.do(t, call{method: http.MethodPost, path: "/auth/logout", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_TokenChannels(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, call{method: http.MethodPost, path: "/auth/refresh"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "missing_token", decode[errBody](t, resp).Error.Code)

	_, cookie := api.login(t, rootEmail, rootPassword)
	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", body: map[string]string{"refreshToken": cookie.Value}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := refreshCookie(t, resp)

	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", headers: map[string]string{handlers.HeaderRefreshToken: next.Value}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefresh_CookieTakesPrecedence(t *testing.T) {
	api := newTestAPI(t)
	_, good := api.login(t, rootEmail, rootPassword)

	// Валидный cookie выигрывает у мусора в заголовке.
	resp := api.do(t, call{
		method: http.MethodPost, path: "/auth/refresh", cookie: good,
		headers: map[string]string{handlers.HeaderRefreshToken: "garbage"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccessGuard_And_RoleGate(t *testing.T) {
	api := newTestAPI(t)
	root, _ := api.login(t, rootEmail, rootPassword)

	resp := api.do(t, call{method: http.MethodGet, path: "/auth/me"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthorized", decode[errBody](t, resp).Error.Code)

	resp = api.do(t, call{method: http.MethodGet, path: "/auth/me", bearer: "not-a-token"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodGet, path: "/auth/me", bearer: root.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, rootEmail, decode[models.PublicUser](t, resp).Email)

	resp = api.do(t, call{
		method: http.MethodPost, path: "/auth/register", bearer: root.AccessToken,
		body: map[string]string{"name": "S", "email": "s@x.com", "password": "password123", "role": "STUDENT"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	student, _ := api.login(t, "s@x.com", "password123")

	resp = api.do(t, call{method: http.MethodGet, path: "/users", bearer: student.AccessToken})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.do(t, call{
		method: http.MethodPost, path: "/auth/register", bearer: student.AccessToken,
		body: map[string]string{"name": "X", "email": "x@x.com", "password": "password123", "role": "ADMIN"},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodGet, path: "/users", bearer: root.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]models.PublicUser](t, resp), 2)

	// Свой профиль студенту доступен, чужой — нет.
	resp = api.do(t, call{method: http.MethodGet, path: "/users/" + student.User.ID.String(), bearer: student.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = api.do(t, call{method: http.MethodGet, path: "/users/" + root.User.ID.String(), bearer: student.AccessToken})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUsers_UpdateAndDelete(t *testing.T) {
	api := newTestAPI(t)
	root, _ := api.login(t, rootEmail, rootPassword)

	resp := api.do(t, call{
		method: http.MethodPost, path: "/auth/register", bearer: root.AccessToken,
		body: map[string]string{"name": "G", "email": "g@x.com", "password": "password123", "role": "GUARDIAN"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	g := decode[models.PublicUser](t, resp)

	_, gCookie := api.login(t, "g@x.com", "password123")

	resp = api.do(t, call{
		method: http.MethodPatch, path: "/users/" + g.ID.String(), bearer: root.AccessToken,
		body: map[string]string{"role": "FACULTY"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.RoleFaculty, decode[models.PublicUser](t, resp).Role)

	// Смена роли отзывает сессии.
	resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: gCookie})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodPatch, path: "/users/not-a-uuid", bearer: root.AccessToken, body: map[string]string{"name": "Z"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodDelete, path: "/users/" + g.ID.String(), bearer: root.AccessToken})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(t, call{method: http.MethodDelete, path: "/users/" + g.ID.String(), bearer: root.AccessToken})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutAll_ClearsEverySession(t *testing.T) {
	api := newTestAPI(t)
	first, c1 := api.login(t, rootEmail, rootPassword)
	_, c2 := api.login(t, rootEmail, rootPassword)

	resp := api.do(t, call{method: http.MethodPost, path: "/auth/logout-all", bearer: first.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, refreshCookie(t, resp).Value)

	for _, c := range []*http.Cookie{c1, c2} {
		resp = api.do(t, call{method: http.MethodPost, path: "/auth/refresh", cookie: c})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestUnknownRoute_JSON404(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, call{method: http.MethodGet, path: "/nope"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
