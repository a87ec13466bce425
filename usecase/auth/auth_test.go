package auth

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/internal/config"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
)

type fakeExchanger struct {
	session *kite.TokenSession
	err     error
}

func (f *fakeExchanger) LoginURL() string {
	return "https://kite.zerodha.com/connect/login?v=3&api_key=demo"
}

func (f *fakeExchanger) GenerateSession(ctx context.Context, requestToken string) (*kite.TokenSession, error) {
	return f.session, f.err
}

func TestCompleteLogin(t *testing.T) {
	exchanger := &fakeExchanger{session: &kite.TokenSession{AccessToken: "tok", UserID: "AB1234"}}
	uc := New(exchanger, config.KiteConfig{}, zap.NewNop())

	token, userID, err := uc.CompleteLogin(context.Background(), "req-token")
	if err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if token != "tok" || userID != "AB1234" {
		t.Errorf("token = %q, userID = %q", token, userID)
	}
}

func TestCompleteLoginFailure(t *testing.T) {
	exchanger := &fakeExchanger{err: errors.New("checksum mismatch")}
	uc := New(exchanger, config.KiteConfig{}, zap.NewNop())

	if _, _, err := uc.CompleteLogin(context.Background(), "req-token"); err == nil {
		t.Fatal("exchange failure not propagated")
	}
}

func TestShouldAutoCreateSession(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.KiteConfig
		want bool
	}{
		{"disabled", config.KiteConfig{}, false},
		{"auto without token source", config.KiteConfig{AutoSession: true}, false},
		{"auto with mock", config.KiteConfig{AutoSession: true, MockSession: true}, true},
		{"auto with dev token", config.KiteConfig{AutoSession: true, DevAccessToken: "dev-tok"}, true},
		{"mock without auto", config.KiteConfig{MockSession: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := New(&fakeExchanger{}, tt.cfg, zap.NewNop())
			if got := uc.ShouldAutoCreateSession(); got != tt.want {
				t.Errorf("ShouldAutoCreateSession() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDevAccessToken(t *testing.T) {
	mock := New(&fakeExchanger{}, config.KiteConfig{MockSession: true, DevAccessToken: "real-dev-tok"}, zap.NewNop())
	if got := mock.DevAccessToken(); got != mockAccessToken {
		t.Errorf("mock mode token = %q, want %q", got, mockAccessToken)
	}

	dev := New(&fakeExchanger{}, config.KiteConfig{DevAccessToken: "real-dev-tok"}, zap.NewNop())
	if got := dev.DevAccessToken(); got != "real-dev-tok" {
		t.Errorf("dev token = %q", got)
	}
}
