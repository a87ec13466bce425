package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/repository"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns a Postgres-backed implementation of OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Save(ctx context.Context, order *domain.TradeOrder) (*domain.TradeOrder, error) {
	if order == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO trade_orders (instrument_token, tradingsymbol, exchange, transaction_type,
		quantity, price, order_id, placed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`

	var price interface{}
	if order.Price != nil {
		price = *order.Price
	}

	if err := r.pool.QueryRow(ctx, query,
		order.InstrumentToken,
		order.Tradingsymbol,
		order.Exchange,
		order.TransactionType,
		order.Quantity,
		price,
		order.OrderID,
		order.PlacedAt,
	).Scan(&order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.TradeOrder, error) {
	const query = `
	SELECT id, instrument_token, tradingsymbol, exchange, transaction_type,
		quantity, price, order_id, placed_at
	FROM trade_orders
	ORDER BY placed_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.TradeOrder
	for rows.Next() {
		var order domain.TradeOrder
		var price *float64
		if err := rows.Scan(
			&order.ID,
			&order.InstrumentToken,
			&order.Tradingsymbol,
			&order.Exchange,
			&order.TransactionType,
			&order.Quantity,
			&price,
			&order.OrderID,
			&order.PlacedAt,
		); err != nil {
			return nil, err
		}
		order.Price = price
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
