package authapi

import (
	"context"
	"encoding/json"
	"strings"
)

// Audit rows are best effort: a failed insert is logged and swallowed, never
// surfaced to the client.

func (h *Handler) auditLoginFailed(ctx context.Context, accountID *string, ip, ua, email, reason string) {
	h.insertAudit(ctx, "auth.login.failed", accountID, nil, ip, ua, map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, accountID, sessionID, ip, ua string) {
	h.insertAudit(ctx, "auth.login.success", &accountID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, sessionID, ip, ua string) {
	h.insertAudit(ctx, "auth.refresh.success", nil, &sessionID, ip, ua, nil)
}

func (h *Handler) auditRefreshReuse(ctx context.Context, ip, ua string) {
	h.insertAudit(ctx, "auth.refresh.reuse_detected", nil, nil, ip, ua, nil)
}

func (h *Handler) auditLogout(ctx context.Context, ip, ua string) {
	h.insertAudit(ctx, "auth.logout", nil, nil, ip, ua, nil)
}

func (h *Handler) auditLogoutAll(ctx context.Context, accountID, ip, ua string) {
	h.insertAudit(ctx, "auth.logout_all", &accountID, nil, ip, ua, nil)
}

func (h *Handler) auditRegister(ctx context.Context, accountID, ip, ua string) {
	h.insertAudit(ctx, "auth.register", &accountID, nil, ip, ua, nil)
}

func (h *Handler) insertAudit(ctx context.Context, action string, accountID, sessionID *string, ip, ua string, meta map[string]any) {
	if h.pool == nil {
		return
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO aegis.audit_log (
			account_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, accountID, sessionID, action, trimOrNil(ip), trimOrNil(ua), metaVal)
	if err != nil {
		h.log.ErrorContext(ctx, "auth.audit.insert_failed", "error", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
