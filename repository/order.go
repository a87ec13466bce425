package repository

import (
	"context"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type OrderRepository interface {
	Save(ctx context.Context, order *domain.TradeOrder) (*domain.TradeOrder, error)
	List(ctx context.Context) ([]domain.TradeOrder, error)
}
