package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Row used by the admin stock table
type InventoryRow struct {
	ProductID string `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Category  string `db:"category" json:"category"`
	Stock     int    `db:"stock" json:"stock"`
	Sold      int    `db:"sold" json:"sold"`
}

// ListAll returns every product's stock, lowest first.
func (r *InventoryRepo) ListAll(ctx context.Context) ([]InventoryRow, error) {
	rows := []InventoryRow{}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id AS product_id, name, category, stock, sold
		FROM products
		ORDER BY stock, name
	`)
	return rows, err
}

func (r *InventoryRepo) Qty(ctx context.Context, productID string) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.db, &qty, `SELECT stock FROM products WHERE id = ?`, productID)
	if err != nil {
		return 0, notFound(err)
	}
	return qty, nil
}

func (r *InventoryRepo) SetQty(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		qty = 0
	}
	res, err := r.db.ExecContext(ctx, `UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`, qty, domain.Now(), productID)
	return affected(res, err)
}

// CountLow counts products whose stock is below threshold.
func (r *InventoryRepo) CountLow(ctx context.Context, threshold int) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM products WHERE stock < ?`, threshold)
	return n, err
}

// Decrement subtracts "by" units floored at zero and adds them to sold.
// Pass the checkout transaction as ex so the change commits with the order.
func (r *InventoryRepo) Decrement(ctx context.Context, ex sqlx.ExecerContext, productID string, by int) error {
	if ex == nil {
		ex = r.db
	}
	res, err := ex.ExecContext(ctx, `
		UPDATE products
		SET stock = MAX(stock - ?, 0), sold = sold + ?
		WHERE id = ?
	`, by, by, productID)
	return affected(res, err)
}

// affected maps "no row touched" to ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
