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

type instrumentRepository struct {
	pool *pgxpool.Pool
}

// NewInstrumentRepository returns a Postgres-backed implementation of InstrumentRepository.
func NewInstrumentRepository(pool *pgxpool.Pool) repository.InstrumentRepository {
	return &instrumentRepository{pool: pool}
}

func (r *instrumentRepository) Upsert(ctx context.Context, instruments []domain.Instrument) (int, error) {
	const query = `
	INSERT INTO instruments (instrument_token, exchange_token, tradingsymbol, name, last_price,
		expiry, strike, tick_size, lot_size, instrument_type, segment, exchange)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (instrument_token) DO UPDATE
	SET last_price = EXCLUDED.last_price,
		name = EXCLUDED.name,
		expiry = EXCLUDED.expiry,
		strike = EXCLUDED.strike
	`

	saved := 0
	for i := range instruments {
		ins := &instruments[i]
		var expiry interface{}
		if ins.Expiry != nil {
			expiry = *ins.Expiry
		}
		if _, err := r.pool.Exec(ctx, query,
			ins.InstrumentToken,
			ins.ExchangeToken,
			ins.Tradingsymbol,
			ins.Name,
			ins.LastPrice,
			expiry,
			ins.Strike,
			ins.TickSize,
			ins.LotSize,
			ins.InstrumentType,
			ins.Segment,
			ins.Exchange,
		); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func (r *instrumentRepository) GetByToken(ctx context.Context, token int64) (*domain.Instrument, error) {
	const query = selectInstrument + ` WHERE instrument_token = $1`
	row := r.pool.QueryRow(ctx, query, token)
	ins, err := scanInstrument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstrumentNotFound
		}
		return nil, err
	}
	return ins, nil
}

func (r *instrumentRepository) ListByExchange(ctx context.Context, exchange string) ([]domain.Instrument, error) {
	const query = selectInstrument + ` WHERE exchange = $1 ORDER BY tradingsymbol`
	return r.queryInstruments(ctx, query, exchange)
}

func (r *instrumentRepository) DistinctExchanges(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT exchange FROM instruments ORDER BY exchange`
	return r.queryStrings(ctx, query)
}

func (r *instrumentRepository) DistinctInstrumentTypes(ctx context.Context, exchange string) ([]string, error) {
	const query = `SELECT DISTINCT instrument_type FROM instruments WHERE exchange = $1 ORDER BY instrument_type`
	return r.queryStrings(ctx, query, exchange)
}

func (r *instrumentRepository) NameTokens(ctx context.Context, exchange, instrumentType string) ([]domain.NameToken, error) {
	const query = `
	SELECT instrument_token, name FROM instruments
	WHERE ($1 = '' OR exchange = $1)
	  AND ($2 = '' OR instrument_type = $2)
	ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, exchange, instrumentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NameToken
	for rows.Next() {
		var nt domain.NameToken
		if err := rows.Scan(&nt.InstrumentToken, &nt.Name); err != nil {
			return nil, err
		}
		result = append(result, nt)
	}
	return result, rows.Err()
}

func (r *instrumentRepository) ListByUnderlying(ctx context.Context, underlying string, expiry *time.Time) ([]domain.Instrument, error) {
	if expiry != nil {
		const query = selectInstrument + ` WHERE name ILIKE '%' || $1 || '%' AND expiry = $2 ORDER BY strike`
		return r.queryInstruments(ctx, query, underlying, *expiry)
	}
	const query = selectInstrument + ` WHERE name ILIKE '%' || $1 || '%' AND expiry IS NOT NULL ORDER BY expiry, strike`
	return r.queryInstruments(ctx, query, underlying)
}

func (r *instrumentRepository) DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error) {
	const query = `
	SELECT DISTINCT expiry FROM instruments
	WHERE name ILIKE '%' || $1 || '%' AND expiry IS NOT NULL
	ORDER BY expiry
	`
	rows, err := r.pool.Query(ctx, query, underlying)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var expiry time.Time
		if err := rows.Scan(&expiry); err != nil {
			return nil, err
		}
		result = append(result, expiry)
	}
	return result, rows.Err()
}

const selectInstrument = `
	SELECT instrument_token, exchange_token, tradingsymbol, name, last_price,
		expiry, strike, tick_size, lot_size, instrument_type, segment, exchange
	FROM instruments`

func (r *instrumentRepository) queryInstruments(ctx context.Context, query string, args ...interface{}) ([]domain.Instrument, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Instrument
	for rows.Next() {
		ins, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ins)
	}
	return result, rows.Err()
}

func (r *instrumentRepository) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanInstrument(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Instrument, error) {
	var ins domain.Instrument
	var expiry *time.Time
	if err := row.Scan(
		&ins.InstrumentToken,
		&ins.ExchangeToken,
		&ins.Tradingsymbol,
		&ins.Name,
		&ins.LastPrice,
		&expiry,
		&ins.Strike,
		&ins.TickSize,
		&ins.LotSize,
		&ins.InstrumentType,
		&ins.Segment,
		&ins.Exchange,
	); err != nil {
		return nil, err
	}
	ins.Expiry = expiry
	return &ins, nil
}
