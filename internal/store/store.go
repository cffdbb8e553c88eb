// Package store defines the record store ports used by the service layer.
//
// Each collection supports select (list/get), insert, update and delete.
// Children (flavor variants, order lines, payments) are written and removed
// together with their parent. Adapters live in the sqlite and snapshot
// subpackages.
package store

import (
	"context"
	"errors"

	"confeitaria/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Collection names, shared by change events and the spreadsheet mirror.
const (
	Products = "products"
	Orders   = "orders"
	Expenses = "expenses"
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]core.Product, error)
	GetProduct(ctx context.Context, id int64) (core.Product, error)
	// InsertProduct stores p and its variants and returns them with ids.
	InsertProduct(ctx context.Context, p core.Product) (core.Product, error)
	// UpdateProduct replaces the product row and its whole variant set.
	UpdateProduct(ctx context.Context, p core.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	InsertVariant(ctx context.Context, productID int64, v core.FlavorVariant) (core.FlavorVariant, error)
}

// OrderPatch carries the fields an order may change after creation. Nil
// fields are left alone.
type OrderPatch struct {
	Status        *core.OrderStatus
	PaymentStatus *core.PaymentStatus
	AmountPaid    *core.Money
}

type OrderStore interface {
	ListOrders(ctx context.Context) ([]core.Order, error)
	GetOrder(ctx context.Context, id int64) (core.Order, error)
	InsertOrder(ctx context.Context, o core.Order) (core.Order, error)
	UpdateOrder(ctx context.Context, id int64, patch OrderPatch) error
}

type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	// UpdateExpense replaces the expense row and all of its payments.
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
}

// Store is a complete record store.
type Store interface {
	ProductStore
	OrderStore
	ExpenseStore
	Ping(ctx context.Context) error
	Close() error
}

// Apply writes the non-nil fields of patch onto o.
func (p OrderPatch) Apply(o *core.Order) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.AmountPaid != nil {
		o.AmountPaid = *p.AmountPaid
	}
}
