package repository

import (
	"context"
	"time"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type InstrumentRepository interface {
	Upsert(ctx context.Context, instruments []domain.Instrument) (int, error)
	GetByToken(ctx context.Context, token int64) (*domain.Instrument, error)
	ListByExchange(ctx context.Context, exchange string) ([]domain.Instrument, error)
	DistinctExchanges(ctx context.Context) ([]string, error)
	DistinctInstrumentTypes(ctx context.Context, exchange string) ([]string, error)
	NameTokens(ctx context.Context, exchange, instrumentType string) ([]domain.NameToken, error)
	ListByUnderlying(ctx context.Context, underlying string, expiry *time.Time) ([]domain.Instrument, error)
	DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error)
}
