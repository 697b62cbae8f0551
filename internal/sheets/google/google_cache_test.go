package google

import (
	"context"
	"testing"
	"time"
)

func newCacheTestClient() *Client {
	return &Client{
		spreadsheetID:      "test-spreadsheet",
		fillupsSheet:       "Fillups",
		cacheValidDuration: 30 * time.Second,
	}
}

func TestRowCountCacheFreshness(t *testing.T) {
	c := newCacheTestClient()

	c.mu.Lock()
	c.cachedRowCount = 42
	c.cacheExpiresAt = time.Now().Add(10 * time.Second)
	c.mu.Unlock()

	// A fresh cache must answer without touching the API; svc is nil so any
	// network path would panic.
	next, err := c.nextFreeRow(context.Background())
	if err != nil {
		t.Fatalf("nextFreeRow: %v", err)
	}
	if next != 43 {
		t.Errorf("next row = %d, want 43", next)
	}
}

func TestRowCountCacheInvalidate(t *testing.T) {
	c := newCacheTestClient()

	c.mu.Lock()
	c.cachedRowCount = 42
	c.cacheExpiresAt = time.Now().Add(10 * time.Second)
	c.mu.Unlock()

	c.invalidateRowCache()

	c.mu.Lock()
	expired := !time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if !expired {
		t.Error("cache still valid after invalidation")
	}
}

func TestAppendUpdatesRowCountCache(t *testing.T) {
	c := newCacheTestClient()

	c.mu.Lock()
	c.cachedRowCount = 5
	c.cacheExpiresAt = time.Now().Add(10 * time.Second)
	c.mu.Unlock()

	// Append's bookkeeping stores the row it wrote so the next append can
	// skip the dimension lookup.
	next, err := c.nextFreeRow(context.Background())
	if err != nil {
		t.Fatalf("nextFreeRow: %v", err)
	}
	c.mu.Lock()
	c.cachedRowCount = next
	c.mu.Unlock()

	after, err := c.nextFreeRow(context.Background())
	if err != nil {
		t.Fatalf("nextFreeRow: %v", err)
	}
	if after != next+1 {
		t.Errorf("next row after append = %d, want %d", after, next+1)
	}
}
