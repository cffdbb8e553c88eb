package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"confeitaria/internal/core"
	"confeitaria/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data", "confeitaria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestProductsCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cake, err := repo.InsertProduct(ctx, core.Product{
		Name: "Bolo", Category: core.Cake, Customizable: true,
		Variants: []core.FlavorVariant{{Name: "Chocolate", Price: core.Cents(8000)}},
	})
	require.NoError(t, err)
	require.NotZero(t, cake.ID)
	require.NotZero(t, cake.Variants[0].ID)

	_, err = repo.InsertProduct(ctx, core.NewSimpleProduct("Brigadeiro", core.Sweet, core.Cents(250)))
	require.NoError(t, err)

	v, err := repo.InsertVariant(ctx, cake.ID, core.FlavorVariant{Name: "Ninho", Price: core.Cents(9000)})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)

	_, err = repo.InsertVariant(ctx, 9999, core.FlavorVariant{Name: "X"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := repo.GetProduct(ctx, cake.ID)
	require.NoError(t, err)
	assert.True(t, got.Customizable)
	assert.Len(t, got.Variants, 2)

	list, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bolo", list[0].Name)
	assert.Equal(t, "Brigadeiro", list[1].Name)
	assert.Len(t, list[1].Variants, 1)

	got.Name = "Bolo Caseiro"
	got.Variants = got.Variants[:1]
	require.NoError(t, repo.UpdateProduct(ctx, got))
	got, err = repo.GetProduct(ctx, cake.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bolo Caseiro", got.Name)
	assert.Len(t, got.Variants, 1)

	require.NoError(t, repo.DeleteProduct(ctx, cake.ID))
	_, err = repo.GetProduct(ctx, cake.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, cake.ID), store.ErrNotFound)
}

func TestOrdersInsertAndPatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	o, err := repo.InsertOrder(ctx, core.Order{
		Client: "Ana",
		Lines: []core.LineItem{
			{Product: "Bolo", Variant: "Chocolate", Quantity: decimal.RequireFromString("1.5"),
				AddOns: []string{"Morango"}, UnitPrice: core.Cents(8000), Total: core.Cents(13000)},
			{Product: "Brigadeiro", Quantity: decimal.NewFromInt(20), UnitPrice: core.Cents(250), Total: core.Cents(4000), Overridden: true},
		},
		PaymentStatus: core.Unpaid,
		Status:        core.InProgress,
		Date:          core.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)
	require.NotZero(t, o.ID)

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, []string{"Morango"}, got.Lines[0].AddOns)
	assert.Empty(t, got.Lines[1].AddOns)
	assert.True(t, got.Lines[1].Overridden)
	assert.Equal(t, core.Cents(17000), got.Total())
	assert.Equal(t, "2024-01-10", got.Date.String())

	status := core.Delivered
	paid := core.Cents(17000)
	pay := core.FullyPaid
	require.NoError(t, repo.UpdateOrder(ctx, o.ID, store.OrderPatch{Status: &status, PaymentStatus: &pay, AmountPaid: &paid}))

	list, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.Delivered, list[0].Status)
	assert.Equal(t, core.FullyPaid, list[0].PaymentStatus)
	assert.Equal(t, paid, list[0].AmountPaid)
	assert.Len(t, list[0].Lines, 2)

	assert.ErrorIs(t, repo.UpdateOrder(ctx, 424242, store.OrderPatch{Status: &status}), store.ErrNotFound)
}

func TestExpensesCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	e, err := repo.InsertExpense(ctx, core.Expense{
		Amount:       core.Cents(30000),
		Vendor:       "Atacadão",
		PurchaseDate: core.NewDate(2024, 1, 15),
		Payments: []core.Payment{
			{Method: core.CreditCard, Amount: core.Cents(15000), CardName: "Visa", DueDate: core.NewDate(2024, 2, 10),
				Installment: &core.Installment{Index: 1, Count: 2}},
			{Method: core.CreditCard, Amount: core.Cents(15000), CardName: "Visa", DueDate: core.NewDate(2024, 3, 10),
				Installment: &core.Installment{Index: 2, Count: 2}},
		},
	})
	require.NoError(t, err)

	got, err := repo.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Payments, 2)
	assert.Equal(t, 2, got.Payments[1].Installment.Index)
	assert.True(t, got.NextPurchase.IsZero())

	got.Payments = []core.Payment{{Method: core.Cash, Amount: core.Cents(30000), DueDate: got.PurchaseDate}}
	got.NextPurchase = core.NewDate(2024, 2, 15)
	require.NoError(t, repo.UpdateExpense(ctx, got))

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Payments, 1)
	assert.Nil(t, list[0].Payments[0].Installment)
	assert.Equal(t, "2024-02-15", list[0].NextPurchase.String())

	require.NoError(t, repo.DeleteExpense(ctx, e.ID))
	_, err = repo.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertOrderRollsBackOnLineFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO order_line_items").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = repo.InsertOrder(context.Background(), core.Order{
		Client:        "Ana",
		Lines:         []core.LineItem{{Product: "Bolo", Quantity: decimal.NewFromInt(1), Total: core.Cents(100)}},
		PaymentStatus: core.Unpaid,
		Status:        core.InProgress,
		Date:          core.NewDate(2024, 1, 1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpenseRollsBackWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE expenses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.UpdateExpense(context.Background(), core.Expense{ID: 3, Amount: core.Cents(100), Vendor: "X",
		PurchaseDate: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, category, customizable FROM products").WillReturnError(errors.New("locked"))
	_, err = newRepository(db).ListProducts(context.Background())
	assert.ErrorContains(t, err, "list products")
	assert.NoError(t, mock.ExpectationsWereMet())
}
