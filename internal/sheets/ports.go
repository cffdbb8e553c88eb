// Package sheets defines the spreadsheet mirror of orders and expenses and
// the row layout both adapters share.
package sheets

import (
	"context"
	"strconv"

	"confeitaria/internal/core"
	"confeitaria/internal/export"
	"confeitaria/internal/store"
)

// Ports for outbound adapters.
type (
	// Mirror keeps one row per record, keyed by the record id in the first column.
	Mirror interface {
		UpsertOrder(ctx context.Context, o core.Order) error
		UpsertExpense(ctx context.Context, e core.Expense) error
		// DeleteRecord removes the row of a record. A missing row is not an error.
		DeleteRecord(ctx context.Context, collection string, id int64) error
	}
)

// Sheet titles used for each mirrored collection.
const (
	OrdersSheet   = "Encomendas"
	ExpensesSheet = "Gastos"
)

var (
	orderHeader   = []any{"ID", "Data", "Cliente", "Telefone", "Itens", "Total", "Pago", "Pagamento", "Status", "Observação"}
	expenseHeader = []any{"ID", "Data da compra", "Fornecedor", "Total", "Próxima compra", "Pagamentos", "Observação"}
)

// SheetFor returns the sheet title of a mirrored collection.
func SheetFor(collection string) string {
	if collection == store.Expenses {
		return ExpensesSheet
	}
	return OrdersSheet
}

// Header returns the header row of a mirrored collection.
func Header(collection string) []any {
	if collection == store.Expenses {
		return append([]any(nil), expenseHeader...)
	}
	return append([]any(nil), orderHeader...)
}

// OrderRow flattens an order into a spreadsheet row. Amounts are plain
// numbers so the sheet can sum them.
func OrderRow(o core.Order) []any {
	return []any{
		RowKey(o.ID),
		o.Date.String(),
		o.Client,
		o.Phone,
		export.DescribeLines(o.Lines),
		o.Total().Reais(),
		o.AmountPaid.Reais(),
		o.PaymentStatus.Label(),
		o.Status.Label(),
		o.Note,
	}
}

// ExpenseRow flattens an expense into a spreadsheet row.
func ExpenseRow(e core.Expense) []any {
	return []any{
		RowKey(e.ID),
		e.PurchaseDate.String(),
		e.Vendor,
		e.Amount.Reais(),
		e.NextPurchase.String(),
		export.DescribePayments(e.Payments),
		e.Note,
	}
}

// RowKey is the text stored in the id column.
func RowKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
