package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"confeitaria/internal/core"
	"confeitaria/internal/store"

	"github.com/shopspring/decimal"
)

const (
	selectOrders = `SELECT id, client, phone, amount_paid_cents, payment_status, status, note, order_date FROM orders`
	selectLines  = `SELECT id, order_id, product, variant, quantity, add_ons, unit_price_cents, total_cents, overridden
		FROM order_line_items`
)

func (r *Repository) ListOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrders+` ORDER BY order_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	lines, err := r.lines(ctx, selectLines+` ORDER BY order_id, position, id`)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrders+` WHERE id = ?`, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return core.Order{}, err
	}
	if len(orders) == 0 {
		return core.Order{}, fmt.Errorf("get order %d: %w", id, store.ErrNotFound)
	}
	o := orders[0]

	lines, err := r.lines(ctx, selectLines+` WHERE order_id = ? ORDER BY position, id`, id)
	if err != nil {
		return core.Order{}, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

func (r *Repository) InsertOrder(ctx context.Context, o core.Order) (core.Order, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (client, phone, total_cents, amount_paid_cents, payment_status, status, note, order_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.Client, o.Phone, o.Total().Cents, o.AmountPaid.Cents,
			string(o.PaymentStatus), string(o.Status), o.Note, formatDate(o.Date))
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if o.ID, err = insertID(res, "order"); err != nil {
			return err
		}

		for i := range o.Lines {
			l := &o.Lines[i]
			addOns := l.AddOns
			if addOns == nil {
				addOns = []string{}
			}
			encoded, err := json.Marshal(addOns)
			if err != nil {
				return fmt.Errorf("encode add-ons: %w", err)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO order_line_items
				 (order_id, position, product, variant, quantity, add_ons, unit_price_cents, total_cents, overridden)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				o.ID, i, l.Product, l.Variant, l.Quantity.String(), string(encoded),
				l.UnitPrice.Cents, l.Total.Cents, boolInt(l.Overridden))
			if err != nil {
				return fmt.Errorf("insert line %d of order: %w", i, err)
			}
			if l.ID, err = insertID(res, "line"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Order{}, err
	}
	return o, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, id int64, patch store.OrderPatch) error {
	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*patch.PaymentStatus))
	}
	if patch.AmountPaid != nil {
		sets = append(sets, "amount_paid_cents = ?")
		args = append(args, patch.AmountPaid.Cents)
	}
	if len(sets) == 0 {
		_, err := r.GetOrder(ctx, id)
		return err
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}
	if err := expectOne(res); err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]core.Order, error) {
	defer rows.Close()
	var out []core.Order
	for rows.Next() {
		var o core.Order
		var date string
		if err := rows.Scan(&o.ID, &o.Client, &o.Phone, &o.AmountPaid.Cents,
			&o.PaymentStatus, &o.Status, &o.Note, &date); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.ID, err)
		}
		o.Date = d
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// lines loads order line items grouped by order id.
func (r *Repository) lines(ctx context.Context, query string, args ...any) (map[int64][]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.LineItem)
	for rows.Next() {
		var l core.LineItem
		var orderID int64
		var qty, addOns string
		var overridden int
		if err := rows.Scan(&l.ID, &orderID, &l.Product, &l.Variant, &qty, &addOns,
			&l.UnitPrice.Cents, &l.Total.Cents, &overridden); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if l.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("order line %d quantity %q: %w", l.ID, qty, err)
		}
		if err := json.Unmarshal([]byte(addOns), &l.AddOns); err != nil {
			return nil, fmt.Errorf("order line %d add-ons: %w", l.ID, err)
		}
		l.Overridden = overridden != 0
		out[orderID] = append(out[orderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return out, nil
}
