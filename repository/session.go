package repository

import (
	"context"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.BrokerSession, error)
	Save(ctx context.Context, session *domain.BrokerSession) error
	Delete(ctx context.Context, id string) error
}
