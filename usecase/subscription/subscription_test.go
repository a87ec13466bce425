package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type fakeSubRepo struct {
	existing map[int64]bool
	saved    []domain.Subscription
	saveErr  error
}

func (f *fakeSubRepo) Save(ctx context.Context, sub *domain.Subscription) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *sub)
	return nil
}

func (f *fakeSubRepo) Exists(ctx context.Context, instrumentToken int64) (bool, error) {
	return f.existing[instrumentToken], nil
}

func (f *fakeSubRepo) ListTokens(ctx context.Context) ([]int64, error) {
	tokens := make([]int64, 0, len(f.saved))
	for _, sub := range f.saved {
		tokens = append(tokens, sub.InstrumentToken)
	}
	return tokens, nil
}

type fakeInstrumentLookup struct {
	symbols map[int64]string
}

func (f *fakeInstrumentLookup) Upsert(ctx context.Context, instruments []domain.Instrument) (int, error) {
	return 0, nil
}

func (f *fakeInstrumentLookup) GetByToken(ctx context.Context, token int64) (*domain.Instrument, error) {
	symbol, ok := f.symbols[token]
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	return &domain.Instrument{InstrumentToken: token, Tradingsymbol: symbol}, nil
}

func (f *fakeInstrumentLookup) ListByExchange(ctx context.Context, exchange string) ([]domain.Instrument, error) {
	return nil, nil
}

func (f *fakeInstrumentLookup) DistinctExchanges(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeInstrumentLookup) DistinctInstrumentTypes(ctx context.Context, exchange string) ([]string, error) {
	return nil, nil
}

func (f *fakeInstrumentLookup) NameTokens(ctx context.Context, exchange, instrumentType string) ([]domain.NameToken, error) {
	return nil, nil
}

func (f *fakeInstrumentLookup) ListByUnderlying(ctx context.Context, underlying string, expiry *time.Time) ([]domain.Instrument, error) {
	return nil, nil
}

func (f *fakeInstrumentLookup) DistinctExpiries(ctx context.Context, underlying string) ([]time.Time, error) {
	return nil, nil
}

type fakeJournal struct {
	subs []*domain.Subscription
}

func (f *fakeJournal) JournalOrder(ctx context.Context, order *domain.TradeOrder) error {
	return nil
}

func (f *fakeJournal) JournalSubscription(ctx context.Context, sub *domain.Subscription) error {
	f.subs = append(f.subs, sub)
	return nil
}

func TestSaveAll(t *testing.T) {
	repo := &fakeSubRepo{existing: map[int64]bool{884737: true}}
	lookup := &fakeInstrumentLookup{symbols: map[int64]string{408065: "INFY"}}
	uc := New(repo, lookup, &fakeJournal{}, zap.NewNop())

	err := uc.SaveAll(context.Background(), []int64{408065, 884737, 999})
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	// 884737 already subscribed; 408065 and 999 are new.
	if len(repo.saved) != 2 {
		t.Fatalf("saved %d subscriptions, want 2", len(repo.saved))
	}
	if repo.saved[0].Tradingsymbol != "INFY" {
		t.Errorf("symbol lookup missed, sub = %+v", repo.saved[0])
	}
	if repo.saved[1].Tradingsymbol != "" {
		t.Errorf("unknown token got symbol %q", repo.saved[1].Tradingsymbol)
	}
}

func TestSaveAllJournalsOnFailure(t *testing.T) {
	repo := &fakeSubRepo{saveErr: errors.New("postgres down")}
	journal := &fakeJournal{}
	uc := New(repo, &fakeInstrumentLookup{}, journal, zap.NewNop())

	if err := uc.SaveAll(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if len(journal.subs) != 2 {
		t.Fatalf("journaled %d subscriptions, want 2", len(journal.subs))
	}
}
