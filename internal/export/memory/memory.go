// Package memory is an in-process summary export backend for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finbook/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []core.MonthlySummary
}

func New() *Store {
	return &Store{}
}

// AppendSummary stores the summary and returns a synthetic row reference.
func (s *Store) AppendSummary(_ context.Context, summary core.MonthlySummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, summary)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthlySummary(nil), s.rows...)
}
