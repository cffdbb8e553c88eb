// Package snapshot is a record store kept in memory and persisted as a single
// JSON file. The whole file is rewritten after each mutation, and the
// in-memory state only changes once that write has succeeded.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"confeitaria/internal/core"
	"confeitaria/internal/store"
)

// data is the on-disk layout.
type data struct {
	Products []core.Product `json:"products"`
	Orders   []core.Order   `json:"orders"`
	Expenses []core.Expense `json:"expenses"`
	// Counters hand out ids per collection, children included.
	Counters map[string]int64 `json:"counters"`
}

const (
	counterVariants = "flavor_variants"
	counterLines    = "order_line_items"
	counterPayments = "payments"
)

type Store struct {
	mu   sync.RWMutex
	path string
	data data
}

var _ store.Store = (*Store)(nil)

// Open loads the snapshot at path. A missing or empty file starts an empty
// store; an empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: data{Counters: map[string]int64{}}}
	loaded, err := readSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if loaded != nil {
		s.data = *loaded
		if s.data.Counters == nil {
			s.data.Counters = map[string]int64{}
		}
	}
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// mutate applies fn to a copy of the state, persists the copy and only then
// makes it current.
func (s *Store) mutate(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := data{
		Products: slices.Clone(s.data.Products),
		Orders:   slices.Clone(s.data.Orders),
		Expenses: slices.Clone(s.data.Expenses),
		Counters: make(map[string]int64, len(s.data.Counters)),
	}
	for k, v := range s.data.Counters {
		next.Counters[k] = v
	}
	if err := fn(&next); err != nil {
		return err
	}
	if err := writeSnapshot(s.path, next); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.data = next
	return nil
}

func (d *data) nextID(counter string) int64 {
	d.Counters[counter]++
	return d.Counters[counter]
}

func (s *Store) ListProducts(context.Context) ([]core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Product, len(s.data.Products))
	for i, p := range s.data.Products {
		out[i] = cloneProduct(p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.data.Products {
		if p.ID == id {
			return cloneProduct(p), nil
		}
	}
	return core.Product{}, fmt.Errorf("get product %d: %w", id, store.ErrNotFound)
}

func (s *Store) InsertProduct(_ context.Context, p core.Product) (core.Product, error) {
	p = cloneProduct(p)
	err := s.mutate(func(d *data) error {
		p.ID = d.nextID(store.Products)
		for i := range p.Variants {
			p.Variants[i].ID = d.nextID(counterVariants)
		}
		d.Products = append(d.Products, p)
		return nil
	})
	if err != nil {
		return core.Product{}, err
	}
	return cloneProduct(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) error {
	p = cloneProduct(p)
	return s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Products, func(x core.Product) bool { return x.ID == p.ID })
		if i < 0 {
			return fmt.Errorf("update product %d: %w", p.ID, store.ErrNotFound)
		}
		for j := range p.Variants {
			p.Variants[j].ID = d.nextID(counterVariants)
		}
		d.Products[i] = p
		return nil
	})
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	return s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Products, func(x core.Product) bool { return x.ID == id })
		if i < 0 {
			return fmt.Errorf("delete product %d: %w", id, store.ErrNotFound)
		}
		d.Products = slices.Delete(d.Products, i, i+1)
		return nil
	})
}

func (s *Store) InsertVariant(_ context.Context, productID int64, v core.FlavorVariant) (core.FlavorVariant, error) {
	err := s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Products, func(x core.Product) bool { return x.ID == productID })
		if i < 0 {
			return fmt.Errorf("insert variant for product %d: %w", productID, store.ErrNotFound)
		}
		v.ID = d.nextID(counterVariants)
		p := cloneProduct(d.Products[i])
		p.Variants = append(p.Variants, v)
		d.Products[i] = p
		return nil
	})
	if err != nil {
		return core.FlavorVariant{}, err
	}
	return v, nil
}

func (s *Store) ListOrders(context.Context) ([]core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Order, len(s.data.Orders))
	for i, o := range s.data.Orders {
		out[i] = cloneOrder(o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.data.Orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return core.Order{}, fmt.Errorf("get order %d: %w", id, store.ErrNotFound)
}

func (s *Store) InsertOrder(_ context.Context, o core.Order) (core.Order, error) {
	o = cloneOrder(o)
	err := s.mutate(func(d *data) error {
		o.ID = d.nextID(store.Orders)
		for i := range o.Lines {
			o.Lines[i].ID = d.nextID(counterLines)
		}
		d.Orders = append(d.Orders, o)
		return nil
	})
	if err != nil {
		return core.Order{}, err
	}
	return cloneOrder(o), nil
}

func (s *Store) UpdateOrder(_ context.Context, id int64, patch store.OrderPatch) error {
	return s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Orders, func(x core.Order) bool { return x.ID == id })
		if i < 0 {
			return fmt.Errorf("update order %d: %w", id, store.ErrNotFound)
		}
		o := d.Orders[i]
		patch.Apply(&o)
		d.Orders[i] = o
		return nil
	})
}

func (s *Store) ListExpenses(context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, len(s.data.Expenses))
	for i, e := range s.data.Expenses {
		out[i] = cloneExpense(e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate.Time) {
			return out[i].PurchaseDate.After(out[j].PurchaseDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.data.Expenses {
		if e.ID == id {
			return cloneExpense(e), nil
		}
	}
	return core.Expense{}, fmt.Errorf("get expense %d: %w", id, store.ErrNotFound)
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	e = cloneExpense(e)
	err := s.mutate(func(d *data) error {
		e.ID = d.nextID(store.Expenses)
		for i := range e.Payments {
			e.Payments[i].ID = d.nextID(counterPayments)
		}
		d.Expenses = append(d.Expenses, e)
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return cloneExpense(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	e = cloneExpense(e)
	return s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Expenses, func(x core.Expense) bool { return x.ID == e.ID })
		if i < 0 {
			return fmt.Errorf("update expense %d: %w", e.ID, store.ErrNotFound)
		}
		for j := range e.Payments {
			e.Payments[j].ID = d.nextID(counterPayments)
		}
		d.Expenses[i] = e
		return nil
	})
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	return s.mutate(func(d *data) error {
		i := slices.IndexFunc(d.Expenses, func(x core.Expense) bool { return x.ID == id })
		if i < 0 {
			return fmt.Errorf("delete expense %d: %w", id, store.ErrNotFound)
		}
		d.Expenses = slices.Delete(d.Expenses, i, i+1)
		return nil
	})
}

// readSnapshot loads the persisted JSON file if it exists.
func readSnapshot(path string) (*data, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var snap data
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// writeSnapshot replaces the file through a rename so readers never see a
// partial write.
func writeSnapshot(path string, snap data) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	temp := path + ".tmp"
	if err := os.WriteFile(temp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, path)
}

func cloneProduct(p core.Product) core.Product {
	p.Variants = slices.Clone(p.Variants)
	return p
}

func cloneOrder(o core.Order) core.Order {
	o.Lines = slices.Clone(o.Lines)
	for i := range o.Lines {
		o.Lines[i].AddOns = slices.Clone(o.Lines[i].AddOns)
	}
	return o
}

func cloneExpense(e core.Expense) core.Expense {
	e.Payments = slices.Clone(e.Payments)
	for i := range e.Payments {
		if e.Payments[i].Installment != nil {
			inst := *e.Payments[i].Installment
			e.Payments[i].Installment = &inst
		}
	}
	return e
}
