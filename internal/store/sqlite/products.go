package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"confeitaria/internal/core"
)

const (
	selectProducts = `SELECT id, name, category, customizable FROM products`
	selectVariants = `SELECT id, product_id, name, price_cents FROM flavor_variants`
)

func (r *Repository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, selectProducts+` ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	variants, err := r.variants(ctx, r.db, selectVariants+` ORDER BY product_id, id`)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Variants = variants[products[i].ID]
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	var p core.Product
	var custom int
	err := r.db.QueryRowContext(ctx, selectProducts+` WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Category, &custom)
	if err != nil {
		return core.Product{}, fmt.Errorf("get product %d: %w", id, notFound(err))
	}
	p.Customizable = custom != 0

	variants, err := r.variants(ctx, r.db, selectVariants+` WHERE product_id = ? ORDER BY id`, id)
	if err != nil {
		return core.Product{}, err
	}
	p.Variants = variants[p.ID]
	return p, nil
}

func (r *Repository) InsertProduct(ctx context.Context, p core.Product) (core.Product, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (name, category, customizable) VALUES (?, ?, ?)`,
			p.Name, string(p.Category), boolInt(p.Customizable))
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if p.ID, err = insertID(res, "product"); err != nil {
			return err
		}
		return insertVariants(ctx, tx, p.ID, p.Variants)
	})
	if err != nil {
		return core.Product{}, err
	}
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p core.Product) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET name = ?, category = ?, customizable = ? WHERE id = ?`,
			p.Name, string(p.Category), boolInt(p.Customizable), p.ID)
		if err != nil {
			return fmt.Errorf("update product %d: %w", p.ID, err)
		}
		if err := expectOne(res); err != nil {
			return fmt.Errorf("update product %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM flavor_variants WHERE product_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear variants of product %d: %w", p.ID, err)
		}
		return insertVariants(ctx, tx, p.ID, p.Variants)
	})
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM flavor_variants WHERE product_id = ?`, id); err != nil {
			return fmt.Errorf("delete variants of product %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		if err := expectOne(res); err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		return nil
	})
}

func (r *Repository) InsertVariant(ctx context.Context, productID int64, v core.FlavorVariant) (core.FlavorVariant, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO flavor_variants (product_id, name, price_cents)
		 SELECT id, ?, ? FROM products WHERE id = ?`,
		v.Name, v.Price.Cents, productID)
	if err != nil {
		return core.FlavorVariant{}, fmt.Errorf("insert variant: %w", err)
	}
	if err := expectOne(res); err != nil {
		return core.FlavorVariant{}, fmt.Errorf("insert variant for product %d: %w", productID, err)
	}
	if v.ID, err = insertID(res, "variant"); err != nil {
		return core.FlavorVariant{}, err
	}
	return v, nil
}

func insertVariants(ctx context.Context, tx *sql.Tx, productID int64, variants []core.FlavorVariant) error {
	for i := range variants {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO flavor_variants (product_id, name, price_cents) VALUES (?, ?, ?)`,
			productID, variants[i].Name, variants[i].Price.Cents)
		if err != nil {
			return fmt.Errorf("insert variant %q: %w", variants[i].Name, err)
		}
		if variants[i].ID, err = insertID(res, "variant"); err != nil {
			return err
		}
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]core.Product, error) {
	defer rows.Close()
	var out []core.Product
	for rows.Next() {
		var p core.Product
		var custom int
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &custom); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Customizable = custom != 0
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// variants loads flavor variants grouped by product id.
func (r *Repository) variants(ctx context.Context, q querier, query string, args ...any) (map[int64][]core.FlavorVariant, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.FlavorVariant)
	for rows.Next() {
		var v core.FlavorVariant
		var productID int64
		if err := rows.Scan(&v.ID, &productID, &v.Name, &v.Price.Cents); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out[productID] = append(out[productID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}
