package middleware

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
)

const (
	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/login"

	sessionKey = "broker_session"
)

// Sessions is the session surface the gate needs.
type Sessions interface {
	FromRequest(ctx context.Context, rctx *fasthttp.RequestCtx) (*domain.BrokerSession, error)
	Issue(ctx context.Context, rctx *fasthttp.RequestCtx) (*domain.BrokerSession, error)
	Update(ctx context.Context, sess *domain.BrokerSession) error
	ClearCookie(rctx *fasthttp.RequestCtx)
}

// Validator is the deep-check surface of the token validation service.
type Validator interface {
	IsSessionValid(ctx context.Context, sess *domain.BrokerSession) bool
	Invalidate(ctx context.Context, sess *domain.BrokerSession)
}

// DevSessions exposes the development auto-session carve-out.
type DevSessions interface {
	ShouldAutoCreateSession() bool
	DevAccessToken() string
}

// SessionGate guards routes with two checks in sequence: a cheap
// presence check for every request, and a deep token validation only
// for critical operations (order placement, tick subscription,
// portfolio reads). API targets get a 401 JSON body; page targets are
// redirected to the login path.
type SessionGate struct {
	sessions  Sessions
	validator Validator
	dev       DevSessions
	logger    *zap.Logger
}

func NewSessionGate(sessions Sessions, validator Validator, dev DevSessions, logger *zap.Logger) *SessionGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionGate{
		sessions:  sessions,
		validator: validator,
		dev:       dev,
		logger:    logger,
	}
}

// Guard wraps a handler with both gates.
func (g *SessionGate) Guard(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(rctx *fasthttp.RequestCtx) {
		path := string(rctx.Path())
		method := string(rctx.Method())
		ctx := context.Background()

		sess, err := g.sessions.FromRequest(ctx, rctx)
		authenticated := err == nil && sess.HasToken()

		if !authenticated {
			if g.dev != nil && g.dev.ShouldAutoCreateSession() {
				sess = g.autoCreateSession(ctx, rctx, sess)
				if sess != nil {
					g.logger.Info("development session auto-created",
						zap.String("method", method), zap.String("path", path))
					StashSession(rctx, sess)
					next(rctx)
					return
				}
			}

			g.logger.Warn("authentication required",
				zap.String("method", method), zap.String("path", path))
			g.reject(rctx, path, "Authentication required", "Please login to access this resource")
			return
		}

		if isCriticalOperation(path, method) {
			g.logger.Debug("validating token for critical operation",
				zap.String("method", method), zap.String("path", path))

			if !g.validator.IsSessionValid(ctx, sess) {
				g.logger.Error("token validation failed for critical operation",
					zap.String("method", method), zap.String("path", path))

				g.validator.Invalidate(ctx, sess)
				g.sessions.ClearCookie(rctx)
				g.reject(rctx, path, "Invalid or expired token", "Please re-login to continue")
				return
			}
		}

		StashSession(rctx, sess)
		next(rctx)
	}
}

func (g *SessionGate) autoCreateSession(ctx context.Context, rctx *fasthttp.RequestCtx, sess *domain.BrokerSession) *domain.BrokerSession {
	token := g.dev.DevAccessToken()
	if strings.TrimSpace(token) == "" {
		return nil
	}

	if sess == nil {
		created, err := g.sessions.Issue(ctx, rctx)
		if err != nil {
			g.logger.Warn("failed to create development session", zap.Error(err))
			return nil
		}
		sess = created
	}
	sess.AccessToken = token
	if err := g.sessions.Update(ctx, sess); err != nil {
		g.logger.Warn("failed to store development session", zap.Error(err))
		return nil
	}
	return sess
}

func (g *SessionGate) reject(rctx *fasthttp.RequestCtx, path, errMsg, detail string) {
	if IsAPIPath(path) {
		rctx.SetStatusCode(fasthttp.StatusUnauthorized)
		rctx.Response.Header.SetContentType("application/json")
		rctx.SetBodyString(`{"error":"` + errMsg + `","message":"` + detail + `"}`)
		return
	}
	rctx.Redirect(LoginPath, fasthttp.StatusFound)
}

// IsAPIPath reports whether the target should receive a JSON error
// instead of a login redirect.
func IsAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// isCriticalOperation marks the route+method pairs that require a
// deep token check on top of session presence.
func isCriticalOperation(path, method string) bool {
	switch {
	case strings.HasPrefix(path, "/api/orders") && method == fasthttp.MethodPost:
		return true
	case strings.HasPrefix(path, "/api/ticker/subscribe") && method == fasthttp.MethodPost:
		return true
	case strings.HasPrefix(path, "/api/portfolio") && method == fasthttp.MethodGet:
		return true
	}
	return false
}

// StashSession parks the resolved session on the request for handlers.
func StashSession(rctx *fasthttp.RequestCtx, sess *domain.BrokerSession) {
	rctx.SetUserValue(sessionKey, sess)
}

// SessionFromCtx returns the session stashed by the gate, if any.
func SessionFromCtx(rctx *fasthttp.RequestCtx) *domain.BrokerSession {
	sess, _ := rctx.UserValue(sessionKey).(*domain.BrokerSession)
	return sess
}
