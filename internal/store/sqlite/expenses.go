package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"confeitaria/internal/core"
	"confeitaria/internal/store"
)

const (
	selectExpenses = `SELECT id, amount_cents, vendor, purchase_date, next_purchase, note FROM expenses`
	selectPayments = `SELECT id, expense_id, method, amount_cents, card_name, due_date, installment_index, installment_count
		FROM payments`
)

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpenses+` ORDER BY purchase_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}

	payments, err := r.payments(ctx, selectPayments+` ORDER BY expense_id, due_date, id`)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Payments = payments[expenses[i].ID]
	}
	return expenses, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpenses+` WHERE id = ?`, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	expenses, err := scanExpenses(rows)
	if err != nil {
		return core.Expense{}, err
	}
	if len(expenses) == 0 {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, store.ErrNotFound)
	}
	e := expenses[0]

	payments, err := r.payments(ctx, selectPayments+` WHERE expense_id = ? ORDER BY due_date, id`, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.Payments = payments[e.ID]
	return e, nil
}

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (amount_cents, vendor, purchase_date, next_purchase, note) VALUES (?, ?, ?, ?, ?)`,
			e.Amount.Cents, e.Vendor, formatDate(e.PurchaseDate), formatDate(e.NextPurchase), e.Note)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		if e.ID, err = insertID(res, "expense"); err != nil {
			return err
		}
		return insertPayments(ctx, tx, e.ID, e.Payments)
	})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE expenses SET amount_cents = ?, vendor = ?, purchase_date = ?, next_purchase = ?, note = ? WHERE id = ?`,
			e.Amount.Cents, e.Vendor, formatDate(e.PurchaseDate), formatDate(e.NextPurchase), e.Note, e.ID)
		if err != nil {
			return fmt.Errorf("update expense %d: %w", e.ID, err)
		}
		if err := expectOne(res); err != nil {
			return fmt.Errorf("update expense %d: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE expense_id = ?`, e.ID); err != nil {
			return fmt.Errorf("clear payments of expense %d: %w", e.ID, err)
		}
		return insertPayments(ctx, tx, e.ID, e.Payments)
	})
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE expense_id = ?`, id); err != nil {
			return fmt.Errorf("delete payments of expense %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		if err := expectOne(res); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		return nil
	})
}

func insertPayments(ctx context.Context, tx *sql.Tx, expenseID int64, payments []core.Payment) error {
	for i := range payments {
		p := &payments[i]
		var index, count sql.NullInt64
		if p.Installment != nil {
			index = sql.NullInt64{Int64: int64(p.Installment.Index), Valid: true}
			count = sql.NullInt64{Int64: int64(p.Installment.Count), Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO payments (expense_id, method, amount_cents, card_name, due_date, installment_index, installment_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			expenseID, string(p.Method), p.Amount.Cents, p.CardName, formatDate(p.DueDate), index, count)
		if err != nil {
			return fmt.Errorf("insert payment %d: %w", i, err)
		}
		if p.ID, err = insertID(res, "payment"); err != nil {
			return err
		}
	}
	return nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var purchase, next string
		if err := rows.Scan(&e.ID, &e.Amount.Cents, &e.Vendor, &purchase, &next, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		var err error
		if e.PurchaseDate, err = parseDate(purchase); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		if e.NextPurchase, err = parseDate(next); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// payments loads payments grouped by expense id.
func (r *Repository) payments(ctx context.Context, query string, args ...any) (map[int64][]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.Payment)
	for rows.Next() {
		var p core.Payment
		var expenseID int64
		var due string
		var index, count sql.NullInt64
		if err := rows.Scan(&p.ID, &expenseID, &p.Method, &p.Amount.Cents, &p.CardName, &due, &index, &count); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.DueDate, err = parseDate(due); err != nil {
			return nil, fmt.Errorf("payment %d: %w", p.ID, err)
		}
		if index.Valid && count.Valid {
			p.Installment = &core.Installment{Index: int(index.Int64), Count: int(count.Int64)}
		}
		out[expenseID] = append(out[expenseID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}
