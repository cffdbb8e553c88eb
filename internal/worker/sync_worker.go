// Package worker copies committed records into the spreadsheet mirror. It
// reacts to change events and periodically reconciles the whole store in
// case an event was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confeitaria/internal/amqp"
	"confeitaria/internal/log"
	"confeitaria/internal/sheets"
	"confeitaria/internal/store"

	"golang.org/x/sync/errgroup"
)

// Consumer delivers change messages until ctx ends. *amqp.Client satisfies it.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// SyncWorker mirrors orders and expenses from the store into a spreadsheet.
type SyncWorker struct {
	store  store.Store
	mirror sheets.Mirror
	logger *log.Logger
}

func NewSyncWorker(st store.Store, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{
		store:  st,
		mirror: mirror,
		logger: log.WithComponent(log.ComponentWorker),
	}
}

// HandleChange applies one change message. The record is read back from the
// store, so a message that arrives late still mirrors the latest state. A
// record that no longer exists is removed from the mirror.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		"message_id", msg.MessageID,
		log.FieldCollection, msg.Collection,
		"op", msg.Op,
		log.FieldRecordID, msg.RecordID)

	switch msg.Collection {
	case store.Orders, store.Expenses:
	default:
		// products are not mirrored
		w.logger.DebugContext(ctx, "Ignoring change for unmirrored collection", log.FieldCollection, msg.Collection)
		return nil
	}

	if msg.Op == amqp.OpDeleted {
		return w.delete(ctx, msg.Collection, msg.RecordID)
	}
	return w.Sync(ctx, msg.Collection, msg.RecordID)
}

// Sync copies the current state of one record into the mirror.
func (w *SyncWorker) Sync(ctx context.Context, collection string, id int64) error {
	var err error
	switch collection {
	case store.Orders:
		o, getErr := w.store.GetOrder(ctx, id)
		if getErr == nil {
			err = w.mirror.UpsertOrder(ctx, o)
		} else {
			err = getErr
		}
	case store.Expenses:
		e, getErr := w.store.GetExpense(ctx, id)
		if getErr == nil {
			err = w.mirror.UpsertExpense(ctx, e)
		} else {
			err = getErr
		}
	default:
		return fmt.Errorf("collection %q is not mirrored", collection)
	}

	if errors.Is(err, store.ErrNotFound) {
		return w.delete(ctx, collection, id)
	}
	if err != nil {
		return fmt.Errorf("sync %s %d: %w", collection, id, err)
	}
	w.logger.InfoContext(ctx, "Successfully mirrored record", log.FieldCollection, collection, log.FieldRecordID, id)
	return nil
}

func (w *SyncWorker) delete(ctx context.Context, collection string, id int64) error {
	if err := w.mirror.DeleteRecord(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s %d from mirror: %w", collection, id, err)
	}
	w.logger.InfoContext(ctx, "Removed record from mirror", log.FieldCollection, collection, log.FieldRecordID, id)
	return nil
}

// ReconcileAll upserts every order and expense. Failures are counted and
// logged; only a store read error aborts the pass.
func (w *SyncWorker) ReconcileAll(ctx context.Context) error {
	start := time.Now()
	orders, err := w.store.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	expenses, err := w.store.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	synced, failed := 0, 0
	for _, o := range orders {
		if err := w.mirror.UpsertOrder(ctx, o); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror order", log.FieldRecordID, o.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	for _, e := range expenses {
		if err := w.mirror.UpsertExpense(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror expense", log.FieldRecordID, e.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Reconcile completed",
		"total", len(orders)+len(expenses),
		"synced", synced,
		"errors", failed,
		log.FieldDuration, time.Since(start).Milliseconds())
	return ctx.Err()
}

// Run reconciles once, then consumes change events and reconciles every
// interval until ctx ends. A nil consumer runs the periodic pass alone.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.ReconcileAll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup reconcile failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(ctx, w.HandleChange)
		})
	}
	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := w.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
						w.logger.ErrorContext(ctx, "Periodic reconcile failed", log.FieldError, err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
