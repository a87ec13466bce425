package services

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

type fakeVerdictCache struct {
	removed int
	size    int
	sweeps  int
	panics  bool
}

func (f *fakeVerdictCache) SweepExpired() int {
	f.sweeps++
	if f.panics {
		panic("cache corrupted")
	}
	return f.removed
}

func (f *fakeVerdictCache) CacheSize() int { return f.size }

func TestJanitorSweep(t *testing.T) {
	cache := &fakeVerdictCache{removed: 3, size: 2}
	janitor := NewSessionJanitor(cache, zap.NewNop())

	janitor.sweep()
	if cache.sweeps != 1 {
		t.Fatalf("sweeps = %d, want 1", cache.sweeps)
	}
}

func TestJanitorSurvivesPanickingTask(t *testing.T) {
	cache := &fakeVerdictCache{panics: true}
	janitor := NewSessionJanitor(cache, zap.NewNop())

	// Must not propagate the panic.
	janitor.sweep()
	janitor.logMetrics()
}

func TestJanitorStartStop(t *testing.T) {
	janitor := NewSessionJanitor(&fakeVerdictCache{}, zap.NewNop())
	janitor.Start()
	janitor.Stop(context.Background())
}
