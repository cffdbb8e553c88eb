// Package services holds the application service injected into every
// handler and command. It keeps a read model of the last confirmed state of
// each collection and funnels every mutation through one pipeline: persist,
// refresh the affected collection from the store, then announce the change.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"confeitaria/internal/amqp"
	"confeitaria/internal/core"
	"confeitaria/internal/log"
	"confeitaria/internal/store"
	"confeitaria/internal/summary"

	"golang.org/x/sync/errgroup"
)

// OverpaymentPolicy decides whether an order may record more paid than its total.
type OverpaymentPolicy string

const (
	RejectOverpayment OverpaymentPolicy = "reject"
	AllowOverpayment  OverpaymentPolicy = "allow"
)

// ParseOverpaymentPolicy maps a config value to a policy; empty means reject.
func ParseOverpaymentPolicy(s string) (OverpaymentPolicy, error) {
	switch p := OverpaymentPolicy(s); p {
	case RejectOverpayment, AllowOverpayment:
		return p, nil
	case "":
		return RejectOverpayment, nil
	}
	return "", fmt.Errorf("unknown overpayment policy %q", s)
}

// ChangePublisher announces committed mutations. *amqp.Client satisfies it.
type ChangePublisher interface {
	PublishChange(ctx context.Context, collection string, op amqp.Op, recordID int64) error
}

// NopPublisher drops every change; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishChange(context.Context, string, amqp.Op, int64) error { return nil }

// PersistenceError reports a store failure. The read model is unchanged when
// it is returned.
type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a store failure.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

type Options struct {
	Publisher     ChangePublisher
	Overpayment   OverpaymentPolicy
	CanceledScope summary.CanceledScope
	// OnChange runs after every committed mutation, e.g. to drop cached reports.
	OnChange func(collection string)
}

type Service struct {
	store         store.Store
	publisher     ChangePublisher
	overpayment   OverpaymentPolicy
	canceledScope summary.CanceledScope
	onChange      func(collection string)
	logger        *log.Logger

	mu       sync.RWMutex
	products []core.Product
	orders   []core.Order
	expenses []core.Expense
}

// New builds the service and loads the read model.
func New(ctx context.Context, st store.Store, opts Options) (*Service, error) {
	s := &Service{
		store:         st,
		publisher:     opts.Publisher,
		overpayment:   opts.Overpayment,
		canceledScope: opts.CanceledScope,
		onChange:      opts.OnChange,
		logger:        log.WithComponent(log.ComponentApp),
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.overpayment == "" {
		s.overpayment = RejectOverpayment
	}
	if s.canceledScope == "" {
		s.canceledScope = summary.CanceledAllTime
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the whole read model with the store's current content.
// The three collections are fetched concurrently.
func (s *Service) Reload(ctx context.Context) error {
	var (
		products []core.Product
		orders   []core.Order
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.store.ListProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.store.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return &PersistenceError{Op: "load", Collection: "all", Err: err}
	}

	s.mu.Lock()
	s.products, s.orders, s.expenses = products, orders, expenses
	s.mu.Unlock()
	return nil
}

// refresh re-reads one collection from the store.
func (s *Service) refresh(ctx context.Context, collection string) error {
	switch collection {
	case store.Products:
		list, err := s.store.ListProducts(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.products = list
		s.mu.Unlock()
	case store.Orders:
		list, err := s.store.ListOrders(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.orders = list
		s.mu.Unlock()
	case store.Expenses:
		list, err := s.store.ListExpenses(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.expenses = list
		s.mu.Unlock()
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
	return nil
}

// apply is the single mutation pipeline. persist returns the id of the
// record it touched. Not-found and validation errors from the store pass
// through unchanged; any other failure becomes a PersistenceError and leaves
// the read model as it was.
func (s *Service) apply(ctx context.Context, collection string, op amqp.Op, persist func(context.Context) (int64, error)) (int64, error) {
	id, err := persist(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || core.IsValidation(err) {
			return 0, err
		}
		s.logger.ErrorContext(ctx, "Store write failed",
			log.FieldCollection, collection, log.FieldOperation, string(op), log.FieldError, err)
		return 0, &PersistenceError{Op: string(op), Collection: collection, Err: err}
	}

	// The write is committed from here on; the caller's cancellation must not
	// stop the refresh or the announcement.
	ctx = context.WithoutCancel(ctx)

	if err := s.refresh(ctx, collection); err != nil {
		s.logger.ErrorContext(ctx, "Read model refresh failed after write",
			log.FieldCollection, collection, log.FieldRecordID, id, log.FieldError, err)
	}
	if err := s.publisher.PublishChange(ctx, collection, op, id); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change",
			log.FieldCollection, collection, log.FieldRecordID, id, log.FieldError, err)
	}
	if s.onChange != nil {
		s.onChange(collection)
	}
	s.logger.InfoContext(ctx, "Record changed",
		log.FieldCollection, collection, log.FieldOperation, string(op), log.FieldRecordID, id)
	return id, nil
}

// Products returns the catalog ordered by name.
func (s *Service) Products() []core.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// Orders returns every order, newest first.
func (s *Service) Orders() []core.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders)
}

// Expenses returns every expense, most recent purchase first.
func (s *Service) Expenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

// Product looks a product up in the read model.
func (s *Service) Product(id int64) (core.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.products, func(p core.Product) bool { return p.ID == id })
	if i < 0 {
		return core.Product{}, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return s.products[i], nil
}

// Order looks an order up in the read model.
func (s *Service) Order(id int64) (core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.orders, func(o core.Order) bool { return o.ID == id })
	if i < 0 {
		return core.Order{}, fmt.Errorf("order %d: %w", id, store.ErrNotFound)
	}
	return s.orders[i], nil
}

// Expense looks an expense up in the read model.
func (s *Service) Expense(id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, store.ErrNotFound)
	}
	return s.expenses[i], nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
