package memory

import (
	"context"
	"fmt"
	"sync"

	"tanklog/internal/core"
)

// Store is an in-memory export target. It stands in for the Google Sheets
// adapter in development and tests.
type Store struct {
	mu   sync.Mutex
	rows []core.Fillup
}

func New() *Store {
	return &Store{}
}

// Append stores the fillup and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, f core.Fillup) (string, error) {
	if f.ID == 0 {
		return "", fmt.Errorf("fillup has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, f)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// DeleteFillup removes every stored row with the given fillup ID.
func (s *Store) DeleteFillup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

// ListFillups returns a copy of the stored rows in append order.
func (s *Store) ListFillups(_ context.Context) ([]core.Fillup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Fillup(nil), s.rows...), nil
}
