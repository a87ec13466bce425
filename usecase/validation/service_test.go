package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
)

type fakeProfileChecker struct {
	mu    sync.Mutex
	calls int32
	err   error
}

func (f *fakeProfileChecker) GetProfile(ctx context.Context, accessToken string) (*kite.Profile, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &kite.Profile{UserID: "AB1234"}, nil
}

func (f *fakeProfileChecker) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type fakeSessionStore struct {
	deleted []string
	err     error
}

func (f *fakeSessionStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func newTestService(profiles *fakeProfileChecker, sessions *fakeSessionStore) *Service {
	return New(NewCache(5*time.Minute), profiles, sessions, false, zap.NewNop())
}

func authError() error {
	return &kite.APIError{Status: 403, ErrorType: "TokenException", Message: "Invalid token", Category: kite.CategoryAuth}
}

func throttleError() error {
	return &kite.APIError{Status: 429, ErrorType: "NetworkException", Message: "Too many requests", Category: kite.CategoryThrottle}
}

func TestIsTokenValidBlankToken(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	for _, token := range []string{"", "   ", "\t"} {
		if svc.IsTokenValid(context.Background(), token) {
			t.Errorf("blank token %q reported valid", token)
		}
	}
	if profiles.callCount() != 0 {
		t.Errorf("blank tokens triggered %d upstream calls", profiles.callCount())
	}
	if svc.CacheSize() != 0 {
		t.Errorf("blank tokens were cached, size = %d", svc.CacheSize())
	}
}

func TestIsTokenValidSuccess(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	if !svc.IsTokenValid(context.Background(), "good-token") {
		t.Fatal("healthy token reported invalid")
	}
	if profiles.callCount() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", profiles.callCount())
	}
}

func TestIsTokenValidUsesCachedVerdict(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	for i := 0; i < 5; i++ {
		if !svc.IsTokenValid(context.Background(), "good-token") {
			t.Fatal("healthy token reported invalid")
		}
	}
	if profiles.callCount() != 1 {
		t.Fatalf("cache miss on repeat lookups, upstream calls = %d", profiles.callCount())
	}
}

func TestIsTokenValidCachesNegativeVerdict(t *testing.T) {
	profiles := &fakeProfileChecker{err: authError()}
	svc := newTestService(profiles, nil)

	for i := 0; i < 3; i++ {
		if svc.IsTokenValid(context.Background(), "revoked") {
			t.Fatal("revoked token reported valid")
		}
	}
	if profiles.callCount() != 1 {
		t.Fatalf("negative verdict not cached, upstream calls = %d", profiles.callCount())
	}
}

func TestIsTokenValidRechecksAfterWindow(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }
	svc.IsTokenValid(context.Background(), "good-token")

	svc.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }
	svc.IsTokenValid(context.Background(), "good-token")

	if profiles.callCount() != 2 {
		t.Fatalf("stale verdict was trusted, upstream calls = %d", profiles.callCount())
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantValid bool
	}{
		{"success", nil, true},
		{"auth rejection fails closed", authError(), false},
		{"throttle fails open", throttleError(), true},
		{"unknown api error fails open", &kite.APIError{Status: 500, ErrorType: "GeneralException", Message: "boom", Category: kite.CategoryUpstream}, true},
		{"network error fails open", context.DeadlineExceeded, true},
		{"unexpected error fails closed", errors.New("disk on fire"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfileChecker{err: tt.err}
			svc := newTestService(profiles, nil)
			got := svc.IsTokenValid(context.Background(), "some-token")
			if got != tt.wantValid {
				t.Errorf("verdict = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestMockModeSkipsUpstream(t *testing.T) {
	profiles := &fakeProfileChecker{err: errors.New("must not be called")}
	svc := New(NewCache(time.Minute), profiles, nil, true, zap.NewNop())

	if !svc.IsTokenValid(context.Background(), "anything") {
		t.Fatal("mock mode reported invalid")
	}
	if profiles.callCount() != 0 {
		t.Fatalf("mock mode called upstream %d times", profiles.callCount())
	}
}

func TestIsSessionValid(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	if svc.IsSessionValid(context.Background(), nil) {
		t.Error("nil session reported valid")
	}
	if svc.IsSessionValid(context.Background(), &domain.BrokerSession{ID: "s1"}) {
		t.Error("tokenless session reported valid")
	}
	if !svc.IsSessionValid(context.Background(), &domain.BrokerSession{ID: "s1", AccessToken: "tok"}) {
		t.Error("session with healthy token reported invalid")
	}
}

func TestInvalidateRemovesVerdictAndSession(t *testing.T) {
	profiles := &fakeProfileChecker{}
	sessions := &fakeSessionStore{}
	svc := newTestService(profiles, sessions)

	sess := &domain.BrokerSession{ID: "s1", AccessToken: "tok"}
	svc.IsSessionValid(context.Background(), sess)
	if svc.CacheSize() != 1 {
		t.Fatalf("verdict not cached, size = %d", svc.CacheSize())
	}

	svc.Invalidate(context.Background(), sess)
	if svc.CacheSize() != 0 {
		t.Errorf("verdict survived invalidation, size = %d", svc.CacheSize())
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "s1" {
		t.Errorf("session delete calls = %v", sessions.deleted)
	}

	// Validation after invalidation goes upstream again.
	svc.IsSessionValid(context.Background(), sess)
	if profiles.callCount() != 2 {
		t.Errorf("expected recheck after invalidation, upstream calls = %d", profiles.callCount())
	}
}

func TestInvalidateToleratesMissingSession(t *testing.T) {
	sessions := &fakeSessionStore{err: domain.ErrSessionNotFound}
	svc := newTestService(&fakeProfileChecker{}, sessions)

	// Must not panic or fail; double invalidation is routine.
	sess := &domain.BrokerSession{ID: "gone", AccessToken: "tok"}
	svc.Invalidate(context.Background(), sess)
	svc.Invalidate(context.Background(), sess)

	if len(sessions.deleted) != 2 {
		t.Errorf("expected 2 delete attempts, got %d", len(sessions.deleted))
	}
}

func TestSweepExpired(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }
	svc.IsTokenValid(context.Background(), "old-token")

	svc.now = func() time.Time { return base.Add(3 * time.Minute) }
	svc.IsTokenValid(context.Background(), "fresh-token")

	svc.now = func() time.Time { return base.Add(6 * time.Minute) }
	removed := svc.SweepExpired()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if svc.CacheSize() != 1 {
		t.Fatalf("cache size after sweep = %d, want 1", svc.CacheSize())
	}
}

func TestConcurrentValidation(t *testing.T) {
	profiles := &fakeProfileChecker{}
	svc := newTestService(profiles, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		token := fmt.Sprintf("token-%d", i%5)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !svc.IsTokenValid(context.Background(), token) {
					t.Error("healthy token reported invalid")
					return
				}
			}
		}()
	}
	wg.Wait()

	if svc.CacheSize() != 5 {
		t.Errorf("cache size = %d, want 5", svc.CacheSize())
	}
}
