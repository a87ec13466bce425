package validation

import (
	"testing"
	"time"
)

func TestCacheDefaultsWindow(t *testing.T) {
	c := NewCache(0)
	if c.Window() != 5*time.Minute {
		t.Fatalf("default window = %v, want 5m", c.Window())
	}
}

func TestCachePutGetRemove(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()

	if _, ok := c.Get("tok"); ok {
		t.Fatal("empty cache returned an entry")
	}

	c.Put(Entry{Token: "tok", Valid: true, CheckedAt: now})
	entry, ok := c.Get("tok")
	if !ok || !entry.Valid {
		t.Fatalf("entry = %+v, ok = %v", entry, ok)
	}

	c.Put(Entry{Token: "tok", Valid: false, CheckedAt: now, Note: "revoked"})
	entry, _ = c.Get("tok")
	if entry.Valid || entry.Note != "revoked" {
		t.Fatalf("overwrite failed, entry = %+v", entry)
	}

	c.Remove("tok")
	if _, ok := c.Get("tok"); ok {
		t.Fatal("entry survived Remove")
	}
}

func TestEntryFresh(t *testing.T) {
	now := time.Now()
	entry := Entry{CheckedAt: now.Add(-4 * time.Minute)}
	if !entry.Fresh(now, 5*time.Minute) {
		t.Error("4m old entry not fresh inside 5m window")
	}
	if entry.Fresh(now, 4*time.Minute) {
		t.Error("entry exactly at window boundary reported fresh")
	}
}

func TestCacheSweepExpired(t *testing.T) {
	c := NewCache(5 * time.Minute)
	now := time.Now()

	c.Put(Entry{Token: "stale", CheckedAt: now.Add(-10 * time.Minute)})
	c.Put(Entry{Token: "fresh", CheckedAt: now.Add(-time.Minute)})

	if removed := c.SweepExpired(now); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("stale entry survived sweep")
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry dropped by sweep")
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
}
