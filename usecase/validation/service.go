package validation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
)

// ProfileChecker is the lightweight identity call used to probe
// whether an access token is still honoured upstream.
type ProfileChecker interface {
	GetProfile(ctx context.Context, accessToken string) (*kite.Profile, error)
}

// SessionStore is the subset of the session repository the validator
// needs for invalidation.
type SessionStore interface {
	Delete(ctx context.Context, id string) error
}

// Service produces trustworthy token verdicts, caching them to avoid
// hammering the upstream API. The failure policy is asymmetric on
// purpose: auth rejections fail closed immediately, while transient
// upstream noise (throttling, network faults) fails open so users are
// not logged out spuriously. Truly unknown failures fail closed.
type Service struct {
	cache    *Cache
	profiles ProfileChecker
	sessions SessionStore
	mock     bool
	logger   *zap.Logger

	now func() time.Time
}

// New builds a validation service around an injected cache.
func New(cache *Cache, profiles ProfileChecker, sessions SessionStore, mock bool, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NewCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:    cache,
		profiles: profiles,
		sessions: sessions,
		mock:     mock,
		logger:   logger,
		now:      time.Now,
	}
}

// IsSessionValid extracts the token from the session and validates it.
func (s *Service) IsSessionValid(ctx context.Context, sess *domain.BrokerSession) bool {
	if sess == nil || !sess.HasToken() {
		return false
	}
	return s.IsTokenValid(ctx, sess.AccessToken)
}

// IsTokenValid returns the cached verdict when fresh, otherwise makes
// one identity call upstream, classifies the outcome, caches it, and
// returns it. Concurrent misses for the same token may each call
// upstream; the call is read-only so the last writer simply wins.
func (s *Service) IsTokenValid(ctx context.Context, accessToken string) bool {
	if strings.TrimSpace(accessToken) == "" {
		return false
	}

	now := s.now()
	if entry, ok := s.cache.Get(accessToken); ok && entry.Fresh(now, s.cache.Window()) {
		s.logger.Debug("using cached token verdict", zap.Bool("valid", entry.Valid))
		return entry.Valid
	}

	entry := s.check(ctx, accessToken)
	s.cache.Put(entry)

	s.logger.Debug("token validated",
		zap.Bool("valid", entry.Valid),
		zap.String("note", entry.Note))
	return entry.Valid
}

func (s *Service) check(ctx context.Context, accessToken string) Entry {
	entry := Entry{Token: accessToken, CheckedAt: s.now()}

	if s.mock {
		entry.Valid = true
		entry.Note = "mock validation (development mode)"
		return entry
	}

	_, err := s.profiles.GetProfile(ctx, accessToken)
	switch {
	case err == nil:
		entry.Valid = true

	case kite.IsAuthError(err):
		s.logger.Warn("token rejected upstream", zap.Error(err))
		entry.Valid = false
		entry.Note = "invalid or expired token"

	case isStructuredError(err):
		// Throttling or an unrecognized API error: inconclusive,
		// assume valid rather than forcing a re-login.
		s.logger.Warn("token validation inconclusive", zap.Error(err))
		entry.Valid = true
		entry.Note = "validation inconclusive: " + err.Error()

	case kite.IsNetworkError(err):
		s.logger.Warn("network error during token validation", zap.Error(err))
		entry.Valid = true
		entry.Note = "network error during validation"

	default:
		s.logger.Error("unexpected token validation failure", zap.Error(err))
		entry.Valid = false
		entry.Note = "validation error: " + err.Error()
	}
	return entry
}

func isStructuredError(err error) bool {
	var apiErr *kite.APIError
	return errors.As(err, &apiErr)
}

// Invalidate drops the session's cached verdict and ends the stored
// session. Already-removed sessions are tolerated.
func (s *Service) Invalidate(ctx context.Context, sess *domain.BrokerSession) {
	if sess == nil {
		return
	}
	if sess.AccessToken != "" {
		s.cache.Remove(sess.AccessToken)
	}
	if s.sessions == nil || sess.ID == "" {
		return
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn("session was already invalidated", zap.String("session_id", sess.ID))
			return
		}
		s.logger.Warn("session invalidation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	s.logger.Info("session invalidated", zap.String("session_id", sess.ID))
}

// SweepExpired removes stale verdicts and reports how many were dropped.
func (s *Service) SweepExpired() int {
	return s.cache.SweepExpired(s.now())
}

// CacheSize exposes the verdict cache size for health reporting.
func (s *Service) CacheSize() int {
	return s.cache.Size()
}
