package repository

import (
	"context"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, sub *domain.Subscription) error
	Exists(ctx context.Context, instrumentToken int64) (bool, error)
	ListTokens(ctx context.Context) ([]int64, error)
}
