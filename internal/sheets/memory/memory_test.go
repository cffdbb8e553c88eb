package memory

import (
	"context"
	"testing"

	"confeitaria/internal/core"
	"confeitaria/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id int64) core.Order {
	return core.Order{
		ID:     id,
		Client: "Ana",
		Lines: []core.LineItem{{Product: "Bolo", Variant: "Chocolate", Quantity: decimal.NewFromInt(1),
			UnitPrice: core.Cents(8000), Total: core.Cents(8000)}},
		PaymentStatus: core.Unpaid,
		Status:        core.InProgress,
		Date:          core.NewDate(2024, 3, 1),
	}
}

func TestMemoryMirrorUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.UpsertOrder(ctx, sampleOrder(2)))
	require.NoError(t, m.UpsertOrder(ctx, sampleOrder(1)))

	o := sampleOrder(2)
	o.Status = core.Delivered
	require.NoError(t, m.UpsertOrder(ctx, o))

	rows := m.Rows(store.Orders)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0])
	assert.Equal(t, "Entregue", rows[1][8])
	assert.Equal(t, 80.0, rows[1][5])

	require.NoError(t, m.DeleteRecord(ctx, store.Orders, 2))
	require.NoError(t, m.DeleteRecord(ctx, store.Orders, 99))
	_, ok := m.Row(store.Orders, 2)
	assert.False(t, ok)
}

func TestMemoryMirrorRejectsInvalidRecords(t *testing.T) {
	m := New()
	err := m.UpsertExpense(context.Background(), core.Expense{ID: 1})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, m.Rows(store.Expenses))
}

func TestMemoryMirrorExpenseRow(t *testing.T) {
	m := New()
	require.NoError(t, m.UpsertExpense(context.Background(), core.Expense{
		ID: 4, Amount: core.Cents(1250), Vendor: "Feira", PurchaseDate: core.NewDate(2024, 1, 5),
		Payments: []core.Payment{{Method: core.InstantTransfer, Amount: core.Cents(1250), DueDate: core.NewDate(2024, 1, 5)}},
	}))
	row, ok := m.Row(store.Expenses, 4)
	require.True(t, ok)
	assert.Equal(t, "Feira", row[2])
	assert.Equal(t, "Pix: R$12.50", row[5])
	assert.Equal(t, "", row[4])
}
