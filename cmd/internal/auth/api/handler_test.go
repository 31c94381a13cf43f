package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis/cmd/directory"
	"aegis/cmd/internal/auth/session"
	"aegis/cmd/security/password"
)

func testHasher() password.Config {
	return password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *directory.MemoryDirectory) {
	t.Helper()

	sessCfg := session.DefaultConfig()
	sessCfg.SigningSecret = "test-signing-secret-0123456789abcdef"
	sessCfg.BearerTTL = 10 * time.Minute
	sessCfg.RefreshTTL = 24 * time.Hour

	dir := directory.NewMemoryDirectory()
	store := session.NewMemoryStore()
	hasher := testHasher()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := session.NewService(sessCfg, log, dir, store, hasher, nil)
	require.NoError(t, err)

	apiCfg := LoadConfigFromEnv()
	apiCfg.CookieSecure = false

	h, err := NewHandler(log, apiCfg, dir, svc, hasher, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, dir
}

func postJSON(t *testing.T, url string, body any, mutate func(*http.Request)) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, srv *httptest.Server, email, pw string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/auth/register", registerRequest{Email: email, Password: pw}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
}

func login(t *testing.T, srv *httptest.Server, email, pw string) loginResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/auth/login", loginRequest{Email: email, Password: pw}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[loginResponse](t, resp)
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decodeBody[errorResponse](t, resp).Error.Code
}

func TestRegisterLoginMe(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")

	out := login(t, srv, "ada@example.com", "correct horse battery staple")
	assert.Equal(t, "ada@example.com", out.Account.Email)
	assert.NotEmpty(t, out.Session.AccessToken)
	assert.NotEmpty(t, out.Session.RefreshToken)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+out.Session.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me := decodeBody[meResponse](t, resp)
	assert.Equal(t, out.Account.ID, me.Account.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")

	resp := postJSON(t, srv.URL+"/auth/register", registerRequest{
		Email:    "ada@example.com",
		Password: "another fine password",
	}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", errorCode(t, resp))
}

func TestRegister_WeakPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/register", registerRequest{
		Email:    "ada@example.com",
		Password: "short",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "weak_password", errorCode(t, resp))
}

func TestLogin_BadCredentialsIndistinguishable(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")

	wrongPw := postJSON(t, srv.URL+"/auth/login", loginRequest{
		Email:    "ada@example.com",
		Password: "wrong wrong wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, wrongPw.StatusCode)
	wrongPwCode := errorCode(t, wrongPw)

	noUser := postJSON(t, srv.URL+"/auth/login", loginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, noUser.StatusCode)
	assert.Equal(t, wrongPwCode, errorCode(t, noUser))
}

func TestLogin_DisabledAccount(t *testing.T) {
	srv, dir := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")

	out := login(t, srv, "ada@example.com", "correct horse battery staple")
	dir.SetActive(out.Account.ID, false)

	resp := postJSON(t, srv.URL+"/auth/login", loginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery staple",
	}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "account_disabled", errorCode(t, resp))
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")
	out := login(t, srv, "ada@example.com", "correct horse battery staple")

	resp := postJSON(t, srv.URL+"/auth/refresh", refreshRequest{RefreshToken: out.Session.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeBody[refreshResponse](t, resp)
	assert.NotEqual(t, out.Session.RefreshToken, rotated.Session.RefreshToken)

	// Presenting the retired secret again burns the family.
	resp = postJSON(t, srv.URL+"/auth/refresh", refreshRequest{RefreshToken: out.Session.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "refresh_reuse_detected", errorCode(t, resp))

	// Including the successor issued by the rotation.
	resp = postJSON(t, srv.URL+"/auth/refresh", refreshRequest{RefreshToken: rotated.Session.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "session_not_active", errorCode(t, resp))
}

func TestRefresh_MissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/auth/refresh", refreshRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", errorCode(t, resp))
}

func TestLogout_Idempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")
	out := login(t, srv, "ada@example.com", "correct horse battery staple")

	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/auth/logout", logoutRequest{RefreshToken: out.Session.RefreshToken}, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		_ = resp.Body.Close()
	}

	// Logged out, not replayed.
	resp := postJSON(t, srv.URL+"/auth/refresh", refreshRequest{RefreshToken: out.Session.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "session_not_active", errorCode(t, resp))
}

func TestLogoutAll_KillsBearer(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")
	out := login(t, srv, "ada@example.com", "correct horse battery staple")

	resp := postJSON(t, srv.URL+"/auth/logout_all", struct{}{}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+out.Session.AccessToken)
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	// The epoch moved on; the same bearer no longer passes.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+out.Session.AccessToken)
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = getResp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, getResp.StatusCode)
}

func TestWebLogin_CookieTransport(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "ada@example.com", "correct horse battery staple")

	resp := postJSON(t, srv.URL+"/auth/login", loginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery staple",
		Web:      true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshCookie, csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "aegis_refresh":
			refreshCookie = c
		case "aegis_csrf":
			csrfCookie = c
		}
	}
	require.NotNil(t, refreshCookie)
	require.NotNil(t, csrfCookie)
	assert.True(t, refreshCookie.HttpOnly)
	assert.False(t, csrfCookie.HttpOnly)

	// The body must not duplicate the cookie secret.
	out := decodeBody[loginResponse](t, resp)
	assert.Empty(t, out.Session.RefreshToken)

	// Refresh via cookie requires the CSRF double submit.
	blocked := postJSON(t, srv.URL+"/auth/refresh", struct{}{}, func(req *http.Request) {
		req.AddCookie(refreshCookie)
		req.AddCookie(csrfCookie)
	})
	require.Equal(t, http.StatusForbidden, blocked.StatusCode)
	assert.Equal(t, "csrf_invalid", errorCode(t, blocked))

	ok := postJSON(t, srv.URL+"/auth/refresh", struct{}{}, func(req *http.Request) {
		req.AddCookie(refreshCookie)
		req.AddCookie(csrfCookie)
		req.Header.Set("X-CSRF-Token", csrfCookie.Value)
	})
	require.Equal(t, http.StatusOK, ok.StatusCode)
	rotated := decodeBody[refreshResponse](t, ok)
	assert.Empty(t, rotated.Session.RefreshToken)
}
