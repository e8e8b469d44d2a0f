package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    id, name, brand, tags, category, price, original_price, stock, sold,
    image_url, description, requires_prescription,
    created_at, COALESCE(updated_at,'') AS updated_at`

// Search matches q as a case-insensitive substring of name, brand, tags or
// description, and category by equality unless cat is "all" or empty.
// SQLite's LOWER and LIKE fold ASCII only, so the term is matched here
// with Unicode case folding after the category filter runs in SQL.
func (r *ProductRepo) Search(ctx context.Context, q, cat string) ([]domain.Product, error) {
	where := `1 = 1`
	args := []any{}
	if cat != "" && cat != domain.CategoryAll {
		where += ` AND category = ?`
		args = append(args, cat)
	}

	rows := []domain.Product{}
	err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT`+productCols+`
	  FROM products
	  WHERE `+where+`
	  ORDER BY created_at DESC, id`, args...)
	if err != nil || q == "" {
		return rows, err
	}
	term := strings.ToLower(q)
	out := rows[:0]
	for _, p := range rows {
		if containsFold(term, p.Name, p.Brand, p.Tags, p.Description) {
			out = append(out, p)
		}
	}
	return out, nil
}

func containsFold(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.GetContext(ctx, r.db, &p, `SELECT`+productCols+` FROM products WHERE id = ?`, id)
	return p, notFound(err)
}

func (r *ProductRepo) BestSellers(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 4
	}
	out := []domain.Product{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT`+productCols+`
	  FROM products
	  ORDER BY sold DESC, created_at DESC
	  LIMIT ?`, limit)
	return out, err
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) error {
	_, err := r.db.NamedExecContext(ctx, `
	  INSERT INTO products(id,name,brand,tags,category,price,original_price,stock,sold,image_url,description,requires_prescription,created_at,updated_at)
	  VALUES(:id,:name,:brand,:tags,:category,:price,:original_price,:stock,:sold,:image_url,:description,:requires_prescription,:created_at,:updated_at)`, p)
	return err
}

// Update rewrites the editable columns; stock and sold have their own paths.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.db.NamedExecContext(ctx, `
	  UPDATE products SET
	    name=:name, brand=:brand, tags=:tags, category=:category, price=:price,
	    original_price=:original_price, description=:description,
	    requires_prescription=:requires_prescription, updated_at=:updated_at
	  WHERE id=:id`, p)
	return affected(res, err)
}

func (r *ProductRepo) SetImage(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET image_url=?, updated_at=? WHERE id=?`, url, domain.Now(), id)
	return affected(res, err)
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	return affected(res, err)
}
