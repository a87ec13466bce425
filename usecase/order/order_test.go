package order

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
)

type fakePlacer struct {
	orderID string
	err     error
	calls   int
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, accessToken string, order *domain.TradeOrder) (string, error) {
	f.calls++
	return f.orderID, f.err
}

type fakeOrderRepo struct {
	saved []domain.TradeOrder
	err   error
}

func (f *fakeOrderRepo) Save(ctx context.Context, order *domain.TradeOrder) (*domain.TradeOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	order.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *order)
	return order, nil
}

func (f *fakeOrderRepo) List(ctx context.Context) ([]domain.TradeOrder, error) {
	return f.saved, nil
}

type fakeJournal struct {
	orders []*domain.TradeOrder
	subs   []*domain.Subscription
}

func (f *fakeJournal) JournalOrder(ctx context.Context, order *domain.TradeOrder) error {
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeJournal) JournalSubscription(ctx context.Context, sub *domain.Subscription) error {
	f.subs = append(f.subs, sub)
	return nil
}

func validOrder() *domain.TradeOrder {
	return &domain.TradeOrder{
		InstrumentToken: 408065,
		Tradingsymbol:   "INFY",
		Exchange:        "NSE",
		TransactionType: domain.TransactionBuy,
		Quantity:        1,
	}
}

func session() *domain.BrokerSession {
	return &domain.BrokerSession{ID: "s1", AccessToken: "tok"}
}

func TestPlace(t *testing.T) {
	placer := &fakePlacer{orderID: "240901000001"}
	repo := &fakeOrderRepo{}
	uc := New(placer, repo, &fakeJournal{}, zap.NewNop())

	placed, err := uc.Place(context.Background(), session(), validOrder())
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.OrderID != "240901000001" {
		t.Errorf("OrderID = %q", placed.OrderID)
	}
	if placed.PlacedAt.IsZero() {
		t.Error("PlacedAt not set")
	}
	if len(repo.saved) != 1 {
		t.Errorf("saved %d orders, want 1", len(repo.saved))
	}
}

func TestPlaceWithoutToken(t *testing.T) {
	placer := &fakePlacer{}
	uc := New(placer, &fakeOrderRepo{}, &fakeJournal{}, zap.NewNop())

	_, err := uc.Place(context.Background(), &domain.BrokerSession{ID: "s1"}, validOrder())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if placer.calls != 0 {
		t.Errorf("upstream called %d times without a token", placer.calls)
	}
}

func TestPlaceRejectsInvalidOrder(t *testing.T) {
	placer := &fakePlacer{}
	uc := New(placer, &fakeOrderRepo{}, &fakeJournal{}, zap.NewNop())

	bad := validOrder()
	bad.Quantity = 0
	if _, err := uc.Place(context.Background(), session(), bad); err == nil {
		t.Fatal("zero-quantity order accepted")
	}

	bad = validOrder()
	bad.TransactionType = "HOLD"
	if _, err := uc.Place(context.Background(), session(), bad); err == nil {
		t.Fatal("unknown transaction type accepted")
	}
	if placer.calls != 0 {
		t.Errorf("upstream called %d times for invalid orders", placer.calls)
	}
}

func TestPlaceUpstreamFailure(t *testing.T) {
	placer := &fakePlacer{err: errors.New("exchange closed")}
	repo := &fakeOrderRepo{}
	uc := New(placer, repo, &fakeJournal{}, zap.NewNop())

	_, err := uc.Place(context.Background(), session(), validOrder())
	if err == nil {
		t.Fatal("upstream failure not propagated")
	}
	if !domain.IsDomainError(err, domain.ErrCodeUpstream) {
		t.Errorf("err = %v, want upstream domain error", err)
	}
	if len(repo.saved) != 0 {
		t.Errorf("failed placement was persisted")
	}
}

func TestPlaceJournalsWhenSaveFails(t *testing.T) {
	placer := &fakePlacer{orderID: "240901000002"}
	repo := &fakeOrderRepo{err: errors.New("postgres down")}
	journal := &fakeJournal{}
	uc := New(placer, repo, journal, zap.NewNop())

	placed, err := uc.Place(context.Background(), session(), validOrder())
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.OrderID != "240901000002" {
		t.Errorf("OrderID = %q", placed.OrderID)
	}
	if len(journal.orders) != 1 {
		t.Fatalf("journaled %d orders, want 1", len(journal.orders))
	}
}
