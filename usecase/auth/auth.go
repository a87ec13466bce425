package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/internal/config"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
)

const mockAccessToken = "mock_access_token_dev"

// TokenExchanger is the Kite login surface the auth flow needs.
type TokenExchanger interface {
	LoginURL() string
	GenerateSession(ctx context.Context, requestToken string) (*kite.TokenSession, error)
}

// UseCase drives the Kite Connect login flow and the development
// session carve-outs.
type UseCase struct {
	exchanger TokenExchanger
	cfg       config.KiteConfig
	logger    *zap.Logger
}

func New(exchanger TokenExchanger, cfg config.KiteConfig, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		exchanger: exchanger,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoginURL returns the Kite Connect redirect target for this API key.
func (uc *UseCase) LoginURL() string {
	return uc.exchanger.LoginURL()
}

// CompleteLogin exchanges the callback request token for an access
// token and the Kite user id.
func (uc *UseCase) CompleteLogin(ctx context.Context, requestToken string) (accessToken, userID string, err error) {
	session, err := uc.exchanger.GenerateSession(ctx, requestToken)
	if err != nil {
		return "", "", err
	}
	uc.logger.Info("kite login completed", zap.String("user_id", session.UserID))
	return session.AccessToken, session.UserID, nil
}

// ShouldAutoCreateSession reports whether the gate may mint a session
// for unauthenticated requests. Development-only behavior.
func (uc *UseCase) ShouldAutoCreateSession() bool {
	if !uc.cfg.AutoSession {
		return false
	}
	return uc.cfg.MockSession || uc.devTokenConfigured()
}

// DevAccessToken returns the token a development session should carry.
func (uc *UseCase) DevAccessToken() string {
	if uc.cfg.MockSession {
		return mockAccessToken
	}
	return uc.cfg.DevAccessToken
}

func (uc *UseCase) devTokenConfigured() bool {
	return strings.TrimSpace(uc.cfg.DevAccessToken) != ""
}
