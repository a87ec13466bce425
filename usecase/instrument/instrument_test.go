package instrument

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
)

const sampleDump = `instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,lot_size,tick_size,instrument_type,segment,exchange
408065,1594,INFY,INFOSYS,1522.5,,0,1,0.05,EQ,NSE,NSE
12683010,49543,NIFTY25SEP24800CE,NIFTY,105.2,2025-09-25,24800,75,0.05,CE,NFO-OPT,NFO
bogus,49544,BROKEN,BROKEN,1,,0,1,0.05,EQ,NSE,NSE
`

func TestParseDump(t *testing.T) {
	instruments := ParseDump([]byte(sampleDump), zap.NewNop())
	if len(instruments) != 2 {
		t.Fatalf("parsed %d instruments, want 2", len(instruments))
	}

	equity := instruments[0]
	if equity.InstrumentToken != 408065 || equity.Tradingsymbol != "INFY" {
		t.Errorf("equity = %+v", equity)
	}
	if equity.LastPrice != 1522.5 || equity.Expiry != nil {
		t.Errorf("equity = %+v", equity)
	}

	option := instruments[1]
	if option.InstrumentType != "CE" || option.Strike != 24800 || option.LotSize != 75 {
		t.Errorf("option = %+v", option)
	}
	if option.Expiry == nil {
		t.Fatal("option expiry missing")
	}
	if got := option.Expiry.Format("2006-01-02"); got != "2025-09-25" {
		t.Errorf("expiry = %s", got)
	}
}

func TestParseDumpEmptyAndHeaderOnly(t *testing.T) {
	if got := ParseDump(nil, zap.NewNop()); len(got) != 0 {
		t.Errorf("nil body parsed %d rows", len(got))
	}
	header := "instrument_token,exchange_token,tradingsymbol,exchange\n"
	if got := ParseDump([]byte(header), zap.NewNop()); len(got) != 0 {
		t.Errorf("header-only body parsed %d rows", len(got))
	}
}

func TestParseDumpShortRows(t *testing.T) {
	dump := "instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,lot_size,tick_size,instrument_type,segment,exchange\n" +
		"408065,1594,INFY\n"
	instruments := ParseDump([]byte(dump), zap.NewNop())
	if len(instruments) != 1 {
		t.Fatalf("parsed %d instruments, want 1", len(instruments))
	}
	if instruments[0].Exchange != "" || instruments[0].Tradingsymbol != "INFY" {
		t.Errorf("row = %+v", instruments[0])
	}
}

type fakeDumpFetcher struct {
	body []byte
	err  error
}

func (f *fakeDumpFetcher) Instruments(ctx context.Context, exchange string) ([]byte, error) {
	return f.body, f.err
}

type fakeInstrumentRepo struct {
	upserted []domain.Instrument
	stored   []domain.Instrument
}

func (f *fakeInstrumentRepo) Upsert(ctx context.Context, instruments []domain.Instrument) (int, error) {
	f.upserted = append(f.upserted, instruments...)
	return len(instruments), nil
}

func (f *fakeInstrumentRepo) GetByToken(ctx context.Context, token int64) (*domain.Instrument, error) {
	return nil, domain.ErrInstrumentNotFound
}

func (f *fakeInstrumentRepo) ListByExchange(ctx context.Context, exchange string) ([]domain.Instrument, error) {
	return f.stored, nil
}

func (f *fakeInstrumentRepo) DistinctExchanges(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeInstrumentRepo) DistinctInstrumentTypes(ctx context.Context, exchange string) ([]string, error) {
	return nil, nil
}

func (f *fakeInstrumentRepo) NameTokens(ctx context.Context, exchange, instrumentType string) ([]domain.NameToken, error) {
	return nil, nil
}

func (f *fakeInstrumentRepo) ListByUnderlying(ctx context.Context, underlying string, expiry *time.Time) ([]domain.Instrument, error) {
	return nil, nil
}

func (f *fakeInstrumentRepo) DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error) {
	return nil, nil
}

func TestFetchAndStore(t *testing.T) {
	repo := &fakeInstrumentRepo{}
	uc := New(&fakeDumpFetcher{body: []byte(sampleDump)}, repo, zap.NewNop())

	instruments, err := uc.FetchAndStore(context.Background(), "NSE")
	if err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	if len(instruments) != 2 || len(repo.upserted) != 2 {
		t.Fatalf("returned %d, upserted %d, want 2 each", len(instruments), len(repo.upserted))
	}
}

func TestFetchAndStoreFallsBackToStoredRows(t *testing.T) {
	stored := []domain.Instrument{{InstrumentToken: 1, Tradingsymbol: "INFY", Exchange: "NSE"}}
	repo := &fakeInstrumentRepo{stored: stored}
	uc := New(&fakeDumpFetcher{err: errors.New("upstream down")}, repo, zap.NewNop())

	instruments, err := uc.FetchAndStore(context.Background(), "NSE")
	if err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	if len(instruments) != 1 || instruments[0].Tradingsymbol != "INFY" {
		t.Errorf("instruments = %+v", instruments)
	}
	if len(repo.upserted) != 0 {
		t.Errorf("fallback path wrote %d rows", len(repo.upserted))
	}
}
