package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/repository"
)

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository returns a Postgres-backed implementation of SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	if sub == nil {
		return domain.ErrInvalidPayload
	}
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = time.Now()
	}

	const query = `
	INSERT INTO subscriptions (instrument_token, tradingsymbol, subscribed_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (instrument_token) DO NOTHING
	RETURNING id
	`
	row := r.pool.QueryRow(ctx, query, sub.InstrumentToken, sub.Tradingsymbol, sub.SubscribedAt)
	if err := row.Scan(&sub.ID); err != nil {
		// ON CONFLICT DO NOTHING yields no row for duplicates.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, instrumentToken int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE instrument_token = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, instrumentToken).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *subscriptionRepository) ListTokens(ctx context.Context) ([]int64, error) {
	const query = `SELECT instrument_token FROM subscriptions ORDER BY subscribed_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []int64
	for rows.Next() {
		var token int64
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
