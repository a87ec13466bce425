package handler

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/internal/session"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	"github.com/mandrin-rain/broker-bridge/usecase/validation"
)

// SessionHandler exposes session introspection endpoints. These sit
// outside the gate so the UI can always ask where it stands.
type SessionHandler struct {
	baseHandler
	sessions  *session.Manager
	validator *validation.Service
}

func NewSessionHandler(sessions *session.Manager, validator *validation.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sessions:    sessions,
		validator:   validator,
	}
}

// Token reports whether the current session carries an access token.
// The token itself never leaves the server.
func (h *SessionHandler) Token(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.sessions.FromRequest(stdCtx, ctx)
	if err != nil || !sess.HasToken() {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.Response.Header.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"No valid session or token found"}`)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user_id":       sess.UserID,
	})
}

// Status reports session metadata plus a deep token check. The check
// is verdict-cached, so repeated polling stays cheap. A missing or
// invalid token yields 401 so the UI can send the user back to login.
func (h *SessionHandler) Status(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.sessions.FromRequest(stdCtx, ctx)
	if err != nil || !sess.HasToken() {
		h.writeJSON(ctx, fasthttp.StatusUnauthorized, map[string]interface{}{
			"authenticated": false,
			"tokenValid":    false,
		})
		return
	}

	tokenValid := h.validator.IsSessionValid(stdCtx, sess)
	status := fasthttp.StatusOK
	if !tokenValid {
		status = fasthttp.StatusUnauthorized
	}
	h.writeJSON(ctx, status, map[string]interface{}{
		"authenticated": true,
		"sessionId":     sess.ID,
		"createdAt":     sess.CreatedAt,
		"expiresAt":     sess.ExpiresAt,
		"tokenValid":    tokenValid,
	})
}

func (h *SessionHandler) writeJSON(ctx *fasthttp.RequestCtx, status int, payload map[string]interface{}) {
	body, _ := json.Marshal(payload)
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

// Validate runs a deep token check for the current session. An invalid
// token ends the session immediately.
func (h *SessionHandler) Validate(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.sessions.FromRequest(stdCtx, ctx)
	if err != nil || !sess.HasToken() {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.Response.Header.SetContentType("application/json")
		ctx.SetBodyString(`{"valid":false,"reason":"no active session"}`)
		return
	}

	if !h.validator.IsSessionValid(stdCtx, sess) {
		h.validator.Invalidate(stdCtx, sess)
		h.sessions.ClearCookie(ctx)
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.Response.Header.SetContentType("application/json")
		ctx.SetBodyString(`{"valid":false,"reason":"invalid or expired token"}`)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"valid":      true,
		"checked_at": time.Now(),
	})
}
