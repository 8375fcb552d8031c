package memcache

import (
	"testing"
	"time"

	"github.com/statlinehq/statline/internal/stats/common/clock"
	"github.com/statlinehq/statline/internal/stats/domain"
)

func table(n int) domain.Table {
	t := domain.NewTable(domain.ColGameID)
	for i := 0; i < n; i++ {
		t.Append(domain.Row{domain.ColGameID: i})
	}
	return t
}

func TestNew_InvalidSize(t *testing.T) {
	if _, err := New(0, nil); err == nil {
		t.Error("expected error for zero size, got nil")
	}
	if _, err := New(-5, nil); err == nil {
		t.Error("expected error for negative size, got nil")
	}
}

func TestCache_GetReturnsUnexpired(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1000, 0))
	c, err := New(4, clk)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	c.Set("k", table(3), time.Minute)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", got.Len())
	}
}

func TestCache_GetEvictsExpired(t *testing.T) {
	clk := clock.NewMockClock(time.Unix(1000, 0))
	c, err := New(4, clk)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	c.Set("k", table(1), time.Minute)
	clk.Advance(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry evicted, have %d entries", c.Len())
	}
}

func TestCache_SetIgnoresNonPositiveTTL(t *testing.T) {
	c, err := New(4, clock.NewMockClock(time.Unix(1000, 0)))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	c.Set("k", table(1), 0)
	if c.Len() != 0 {
		t.Error("zero TTL entry should not be stored")
	}
}

func TestCache_DeleteAndPurge(t *testing.T) {
	c, err := New(4, clock.NewMockClock(time.Unix(1000, 0)))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	c.Set("a", table(1), time.Minute)
	c.Set("b", table(1), time.Minute)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after delete")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, have %d", c.Len())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c, err := New(2, clock.NewMockClock(time.Unix(1000, 0)))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	c.Set("a", table(1), time.Minute)
	c.Set("b", table(1), time.Minute)
	c.Set("c", table(1), time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted at capacity")
	}
}
