package instrument

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/repository"
)

// DumpFetcher downloads the raw instrument CSV for an exchange.
type DumpFetcher interface {
	Instruments(ctx context.Context, exchange string) ([]byte, error)
}

type UseCase struct {
	broker      DumpFetcher
	instruments repository.InstrumentRepository
	logger      *zap.Logger
}

func New(broker DumpFetcher, instruments repository.InstrumentRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		broker:      broker,
		instruments: instruments,
		logger:      logger,
	}
}

// FetchAndStore downloads the exchange dump, parses it, and upserts
// the rows. If the download fails the already-stored rows are returned
// so the UI keeps working on stale data.
func (uc *UseCase) FetchAndStore(ctx context.Context, exchange string) ([]domain.Instrument, error) {
	body, err := uc.broker.Instruments(ctx, exchange)
	if err != nil {
		uc.logger.Warn("instrument download failed, serving stored rows",
			zap.String("exchange", exchange), zap.Error(err))
		return uc.instruments.ListByExchange(ctx, exchange)
	}

	parsed := ParseDump(body, uc.logger)
	saved, err := uc.instruments.Upsert(ctx, parsed)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("instruments stored",
		zap.String("exchange", exchange),
		zap.Int("parsed", len(parsed)),
		zap.Int("saved", saved))
	return parsed, nil
}

func (uc *UseCase) Exchanges(ctx context.Context) ([]string, error) {
	return uc.instruments.DistinctExchanges(ctx)
}

func (uc *UseCase) InstrumentTypes(ctx context.Context, exchange string) ([]string, error) {
	return uc.instruments.DistinctInstrumentTypes(ctx, exchange)
}

func (uc *UseCase) NameTokens(ctx context.Context, exchange, instrumentType string) ([]domain.NameToken, error) {
	return uc.instruments.NameTokens(ctx, exchange, instrumentType)
}

func (uc *UseCase) ByUnderlying(ctx context.Context, underlying string, expiry *time.Time) ([]domain.Instrument, error) {
	return uc.instruments.ListByUnderlying(ctx, underlying, expiry)
}

func (uc *UseCase) Expiries(ctx context.Context, underlying string) ([]time.Time, error) {
	return uc.instruments.DistinctExpiries(ctx, underlying)
}

// ParseDump decodes the Kite instrument CSV. Rows that fail to parse
// are skipped; the dump regularly contains partial rows.
func ParseDump(body []byte, logger *zap.Logger) []domain.Instrument {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var result []domain.Instrument
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Debug("skipping malformed instrument row", zap.Error(err))
			continue
		}
		ins, ok := parseRow(record, col)
		if !ok {
			continue
		}
		result = append(result, ins)
	}
	return result
}

func parseRow(record []string, col map[string]int) (domain.Instrument, bool) {
	field := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	token, err := strconv.ParseInt(field("instrument_token"), 10, 64)
	if err != nil {
		return domain.Instrument{}, false
	}
	exchangeToken, err := strconv.ParseInt(field("exchange_token"), 10, 64)
	if err != nil {
		return domain.Instrument{}, false
	}

	ins := domain.Instrument{
		InstrumentToken: token,
		ExchangeToken:   exchangeToken,
		Tradingsymbol:   field("tradingsymbol"),
		Name:            field("name"),
		LastPrice:       parseFloat(field("last_price")),
		Strike:          parseFloat(field("strike")),
		TickSize:        parseFloat(field("tick_size")),
		LotSize:         int(parseFloat(field("lot_size"))),
		InstrumentType:  field("instrument_type"),
		Segment:         field("segment"),
		Exchange:        field("exchange"),
	}
	if raw := field("expiry"); raw != "" {
		if expiry, err := time.Parse("2006-01-02", raw); err == nil {
			ins.Expiry = &expiry
		}
	}
	return ins, true
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
