package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/config"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
	"github.com/mandrin-rain/broker-bridge/internal/ws"
)

// TickerService manages the upstream Kite streaming connection and
// relays decoded ticks to browser clients through the hub. The
// connection is created lazily from the first authenticated session
// that asks for it.
type TickerService struct {
	cfg    config.KiteConfig
	hub    *ws.Hub
	logger *zap.Logger

	mu     sync.Mutex
	ticker *kite.Ticker
}

func NewTickerService(cfg config.KiteConfig, hub *ws.Hub, logger *zap.Logger) *TickerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickerService{
		cfg:    cfg,
		hub:    hub,
		logger: logger,
	}
}

// Connect establishes the upstream stream using the session's access
// token if it is not already live.
func (s *TickerService) Connect(ctx context.Context, sess *domain.BrokerSession) error {
	if !sess.HasToken() {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil && s.ticker.IsConnected() {
		return nil
	}

	s.ticker = kite.NewTicker(s.cfg.TickerURL, s.cfg.APIKey, sess.AccessToken, s.onTick, s.logger)
	if err := s.ticker.Connect(); err != nil {
		s.ticker = nil
		return domain.WrapError(domain.ErrCodeUpstream, "ticker connection failed", err)
	}
	return nil
}

// Subscribe ensures the stream is up and subscribes the tokens.
func (s *TickerService) Subscribe(ctx context.Context, sess *domain.BrokerSession, tokens []int64) error {
	if err := s.Connect(ctx, sess); err != nil {
		return err
	}

	s.mu.Lock()
	ticker := s.ticker
	s.mu.Unlock()

	s.logger.Info("subscribing instruments", zap.Int("count", len(tokens)))
	if err := ticker.Subscribe(tokens); err != nil {
		return domain.WrapError(domain.ErrCodeUpstream, "tick subscription failed", err)
	}
	return nil
}

// Disconnect tears down the upstream stream if one exists.
func (s *TickerService) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		_ = s.ticker.Close()
		s.ticker = nil
	}
}

// IsConnected reports whether the upstream stream is live.
func (s *TickerService) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil && s.ticker.IsConnected()
}

func (s *TickerService) onTick(tick domain.Tick) {
	if s.hub != nil {
		s.hub.Broadcast("ticker", tick)
	}
}
