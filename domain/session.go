package domain

import (
	"strings"
	"time"
)

// BrokerSession represents a server-side login session stored in Redis.
// AccessToken is the opaque Kite Connect credential obtained during the
// login callback; it is never written to the client.
type BrokerSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *BrokerSession) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// HasToken reports whether the session carries a usable access token.
func (s *BrokerSession) HasToken() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.AccessToken) != ""
}
