package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("report:1", "a")
	c.Set("report:2", "b")

	// Touch report:1 so report:2 becomes the eviction candidate.
	if _, ok := c.Get("report:1"); !ok {
		t.Fatal("report:1 should be cached")
	}

	c.Set("report:3", "c")
	if _, ok := c.Get("report:2"); ok {
		t.Error("report:2 should have been evicted")
	}
	if _, ok := c.Get("report:1"); !ok {
		t.Error("report:1 should survive eviction")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)

	c.Set("report:1", 42)
	c.Set("report:2", 43)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("report:1"); ok {
		t.Error("expired entry should be a miss")
	}

	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1 (the other entry was removed on Get)", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("report:1", 1)
	c.Delete("report:1")
	c.Delete("report:missing")

	if _, ok := c.Get("report:1"); ok {
		t.Error("deleted entry should be gone")
	}
}
