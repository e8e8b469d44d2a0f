package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type AddressRepo struct{ db *sqlx.DB }

func NewAddressRepo(db *sqlx.DB) *AddressRepo { return &AddressRepo{db: db} }

const addressCols = `id, user_id, label, recipient_name, phone, address_line, city, province, postal_code, is_default, created_at`

// List puts the default address first, then newest.
func (r *AddressRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	out := []domain.Address{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+addressCols+`
		FROM addresses
		WHERE user_id = ?
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	return out, err
}

func (r *AddressRepo) Get(ctx context.Context, userID, id string) (domain.Address, error) {
	var a domain.Address
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT `+addressCols+` FROM addresses WHERE id = ? AND user_id = ?`, id, userID)
	return a, notFound(err)
}

// Create stores a new address. The user's first address always becomes the
// default, and a new default clears the old one in the same transaction.
func (r *AddressRepo) Create(ctx context.Context, a domain.Address) (domain.Address, error) {
	err := InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var n int
		if err := sqlx.GetContext(ctx, tx, &n, `SELECT COUNT(*) FROM addresses WHERE user_id = ?`, a.UserID); err != nil {
			return err
		}
		if n == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 0 WHERE user_id = ?`, a.UserID); err != nil {
				return err
			}
		}
		_, err := tx.NamedExecContext(ctx, `
		  INSERT INTO addresses(id, user_id, label, recipient_name, phone, address_line, city, province, postal_code, is_default, created_at)
		  VALUES(:id, :user_id, :label, :recipient_name, :phone, :address_line, :city, :province, :postal_code, :is_default, :created_at)`, a)
		return err
	})
	return a, err
}

// Update rewrites the address fields; the default flag is only changed by
// SetDefault.
func (r *AddressRepo) Update(ctx context.Context, a domain.Address) error {
	res, err := r.db.NamedExecContext(ctx, `
	  UPDATE addresses SET
	    label=:label, recipient_name=:recipient_name, phone=:phone, address_line=:address_line,
	    city=:city, province=:province, postal_code=:postal_code
	  WHERE id=:id AND user_id=:user_id`, a)
	return affected(res, err)
}

// Delete removes an address. If it was the default, the newest remaining
// address takes over.
func (r *AddressRepo) Delete(ctx context.Context, userID, id string) error {
	return InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var wasDefault bool
		if err := sqlx.GetContext(ctx, tx, &wasDefault, `SELECT is_default FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return err
		}
		if !wasDefault {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = 1
			WHERE id = (SELECT id FROM addresses WHERE user_id = ? ORDER BY created_at DESC LIMIT 1)
		`, userID)
		return err
	})
}

// SetDefault clears every default flag of the user and sets one, atomically.
func (r *AddressRepo) SetDefault(ctx context.Context, userID, id string) error {
	return InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var n int
		if err := sqlx.GetContext(ctx, tx, &n, `SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 0 WHERE user_id = ?`, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 1 WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
}
