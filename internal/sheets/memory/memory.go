// Package memory is an in-process spreadsheet mirror used in development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"confeitaria/internal/core"
	ports "confeitaria/internal/sheets"
	"confeitaria/internal/store"
)

type Store struct {
	mu   sync.Mutex
	rows map[string]map[int64][]any
}

var _ ports.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[string]map[int64][]any{}}
}

func (s *Store) UpsertOrder(_ context.Context, o core.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.put(store.Orders, o.ID, ports.OrderRow(o))
	return nil
}

func (s *Store) UpsertExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.put(store.Expenses, e.ID, ports.ExpenseRow(e))
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, collection string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows[collection], id)
	return nil
}

// Rows returns the mirrored rows of a collection ordered by record id.
func (s *Store) Rows(collection string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows[collection]))
	for id := range s.rows[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([][]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, slices.Clone(s.rows[collection][id]))
	}
	return out
}

// Row returns the mirrored row of one record.
func (s *Store) Row(collection string, id int64) ([]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[collection][id]
	return slices.Clone(row), ok
}

func (s *Store) put(collection string, id int64, row []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[collection] == nil {
		s.rows[collection] = map[int64][]any{}
	}
	s.rows[collection][id] = row
}
