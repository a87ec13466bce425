package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/config"
	"github.com/mandrin-rain/broker-bridge/repository"
)

// Manager issues and resolves browser sessions. The cookie carries an
// HS256-signed JWT holding only the session id; all session state,
// including the Kite access token, stays server side in Redis.
type Manager struct {
	repo       repository.SessionRepository
	cookieName string
	signingKey []byte
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
}

func NewManager(repo repository.SessionRepository, cfg config.SessionConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		repo:       repo,
		cookieName: cfg.CookieName,
		signingKey: []byte(cfg.SigningKey),
		ttl:        ttl,
		secure:     cfg.CookieSecure,
		logger:     logger,
	}
}

// FromRequest resolves the session referenced by the request cookie.
// Returns domain.ErrSessionNotFound for absent, malformed, or expired
// sessions.
func (m *Manager) FromRequest(ctx context.Context, rctx *fasthttp.RequestCtx) (*domain.BrokerSession, error) {
	raw := rctx.Request.Header.Cookie(m.cookieName)
	if len(raw) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	sid, err := m.parseCookie(string(raw))
	if err != nil {
		m.logger.Debug("session cookie rejected", zap.Error(err))
		return nil, domain.ErrSessionNotFound
	}

	sess, err := m.repo.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(time.Now()) {
		_ = m.repo.Delete(ctx, sid)
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Issue creates a fresh session, persists it, and sets the cookie.
func (m *Manager) Issue(ctx context.Context, rctx *fasthttp.RequestCtx) (*domain.BrokerSession, error) {
	now := time.Now()
	sess := &domain.BrokerSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.Save(ctx, sess); err != nil {
		return nil, err
	}

	signed, err := m.signCookie(sess)
	if err != nil {
		return nil, err
	}
	m.setCookie(rctx, signed, sess.ExpiresAt)
	return sess, nil
}

// Update persists modified session fields (token, user id).
func (m *Manager) Update(ctx context.Context, sess *domain.BrokerSession) error {
	if sess == nil {
		return domain.ErrInvalidPayload
	}
	return m.repo.Save(ctx, sess)
}

// Invalidate removes the stored session and expires the cookie. A
// session that was already removed is tolerated and logged.
func (m *Manager) Invalidate(ctx context.Context, rctx *fasthttp.RequestCtx, sess *domain.BrokerSession) {
	if sess != nil {
		if err := m.repo.Delete(ctx, sess.ID); err != nil {
			m.logger.Warn("session delete failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
	if rctx != nil {
		m.ClearCookie(rctx)
	}
}

// ClearCookie expires the session cookie on the response.
func (m *Manager) ClearCookie(rctx *fasthttp.RequestCtx) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	cookie.SetKey(m.cookieName)
	cookie.SetValue("")
	cookie.SetPath("/")
	cookie.SetExpire(fasthttp.CookieExpireDelete)
	cookie.SetHTTPOnly(true)
	rctx.Response.Header.SetCookie(cookie)
}

func (m *Manager) signCookie(sess *domain.BrokerSession) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *Manager) parseCookie(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session cookie")
	}
	return claims.Subject, nil
}

func (m *Manager) setCookie(rctx *fasthttp.RequestCtx, value string, expires time.Time) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	cookie.SetKey(m.cookieName)
	cookie.SetValue(value)
	cookie.SetPath("/")
	cookie.SetExpire(expires)
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(m.secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	rctx.Response.Header.SetCookie(cookie)
}
