package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"aegis/cmd/directory"
	"aegis/cmd/internal/auth/session"
	"aegis/cmd/security/password"
)

// Handler wires HTTP auth endpoints to the directory and session engine.
type Handler struct {
	log *slog.Logger
	cfg Config

	dir      directory.Directory
	sessions *session.Service
	hasher   password.Config

	// pool backs the audit log only; nil disables auditing.
	pool *pgxpool.Pool
}

// NewHandler constructs an auth Handler. pool may be nil.
func NewHandler(log *slog.Logger, cfg Config, dir directory.Directory, sessions *session.Service, hasher password.Config, pool *pgxpool.Pool) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == nil || sessions == nil {
		return nil, errors.New("authapi: nil directory or session service")
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		dir:      dir,
		sessions: sessions,
		hasher:   hasher,
		pool:     pool,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/logout_all", h.handleLogoutAll)
	mux.HandleFunc("/me", h.handleMe)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}
	if err := h.hasher.Validate(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", "password does not meet policy")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ctx := r.Context()
	acct, err := h.dir.Create(ctx, directory.CreateInput{Email: email, PasswordHash: hash})
	if err != nil {
		switch {
		case directory.IsConflict(err):
			writeError(w, http.StatusConflict, "conflict", "email already registered")
		case directory.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.register.fail", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRegister(ctx, acct.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	writeJSON(w, http.StatusCreated, meResponse{Account: toAccountResponse(acct)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pair, err := h.sessions.Login(ctx, email, req.Password, session.ClientInfo{UserAgent: ua, IP: ip})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			h.auditLoginFailed(ctx, nil, ip, ua, email, "invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, session.ErrInactiveAccount):
			h.auditLoginFailed(ctx, nil, ip, ua, email, "account_disabled")
			writeError(w, http.StatusForbidden, "account_disabled", "account is disabled")
		case errors.Is(err, session.ErrStoreUnavailable):
			writeUnavailable(w)
		default:
			h.log.Error("auth.login.fail", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	acct, err := h.dir.FindByEmail(ctx, email)
	if err != nil {
		h.log.Error("auth.login.load_account_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLoginSuccess(ctx, acct.ID, pair.SessionID, ip, ua)

	respSession := toSessionResponse(pair)
	if req.Web && h.cfg.CookieEnabled {
		if err := h.setWebSessionCookies(w, pair.RefreshSecret, pair.RefreshExpiresAt); err != nil {
			h.log.Error("auth.login.web_cookie_failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		respSession.RefreshToken = ""
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Account: toAccountResponse(acct),
		Session: respSession,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	secret := strings.TrimSpace(req.RefreshToken)
	fromCookie := false
	if cookieSecret, ok := h.refreshSecretFromCookie(r); ok && secret == "" {
		secret = cookieSecret
		fromCookie = true
	}
	if secret == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}
	if fromCookie && !h.csrfDoubleSubmitValid(r) {
		writeError(w, http.StatusForbidden, "csrf_invalid", "missing or invalid csrf token")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pair, err := h.sessions.Refresh(ctx, secret, session.ClientInfo{UserAgent: ua, IP: ip})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTokenReused):
			h.log.Warn("auth.refresh.reuse_detected", "ip", ip)
			h.auditRefreshReuse(ctx, ip, ua)
			h.clearWebSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "refresh_reuse_detected", "please sign in again")
		case errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrTokenInvalid),
			errors.Is(err, session.ErrSessionInvalid):
			h.clearWebSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "session_not_active", "please sign in again")
		case errors.Is(err, session.ErrStoreUnavailable):
			writeUnavailable(w)
		default:
			h.log.Error("auth.refresh.fail", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRefreshSuccess(ctx, pair.SessionID, ip, ua)

	respSession := toSessionResponse(pair)
	if fromCookie {
		if err := h.setWebSessionCookies(w, pair.RefreshSecret, pair.RefreshExpiresAt); err != nil {
			h.log.Error("auth.refresh.web_cookie_failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		respSession.RefreshToken = ""
	}

	writeJSON(w, http.StatusOK, refreshResponse{Session: respSession})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	secret := strings.TrimSpace(req.RefreshToken)
	if secret == "" {
		if cookieSecret, ok := h.refreshSecretFromCookie(r); ok {
			secret = cookieSecret
		}
	}
	if secret == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	ctx := r.Context()
	if err := h.sessions.Logout(ctx, secret); err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeUnavailable(w)
			return
		}
		h.log.Error("auth.logout.fail", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogout(ctx, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.clearWebSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.sessions.LogoutAll(ctx, claims.Subject); err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeUnavailable(w)
			return
		}
		h.log.Error("auth.logout_all.fail", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogoutAll(ctx, claims.Subject, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.clearWebSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	acct, err := h.dir.FindByID(r.Context(), claims.Subject)
	if err != nil {
		if directory.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		h.log.Error("auth.me.fail", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Account: toAccountResponse(acct)})
}

// ---- helpers ----

// requireAuth validates the bearer token. Every verification failure maps to
// the same 401 so callers cannot probe which check tripped.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.BearerClaims, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return session.BearerClaims{}, false
	}
	claims, err := h.sessions.VerifyBearer(r.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeUnavailable(w)
			return session.BearerClaims{}, false
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return session.BearerClaims{}, false
	}
	return claims, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func toAccountResponse(a directory.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}

func toSessionResponse(pair session.TokenPair) sessionResponse {
	return sessionResponse{
		SessionID:        pair.SessionID,
		AccessToken:      pair.Bearer,
		AccessExpiresAt:  pair.BearerExpiresAt,
		RefreshToken:     pair.RefreshSecret,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}
	return ""
}

func parseForwardedIP(raw string) string {
	if raw == "" {
		return ""
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
