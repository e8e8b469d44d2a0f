package repos

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type PrescriptionRepo struct{ db *sqlx.DB }

func NewPrescriptionRepo(db *sqlx.DB) *PrescriptionRepo { return &PrescriptionRepo{db: db} }

const prescriptionCols = `id, user_id, image_url, status, price, notes, pharmacist_notes,
    payment_method, shipping_address, created_at, updated_at`

// PrescriptionSummary adds the uploader to a row for the admin queue.
type PrescriptionSummary struct {
	domain.Prescription
	CustomerName  string `db:"customer_name" json:"customer_name"`
	CustomerEmail string `db:"customer_email" json:"customer_email"`
}

func (r *PrescriptionRepo) Create(ctx context.Context, p domain.Prescription) error {
	_, err := r.db.NamedExecContext(ctx, `
	  INSERT INTO prescriptions(id, user_id, image_url, status, notes, created_at, updated_at)
	  VALUES(:id, :user_id, :image_url, :status, :notes, :created_at, :updated_at)`, p)
	return err
}

func (r *PrescriptionRepo) Get(ctx context.Context, id string) (domain.Prescription, error) {
	var p domain.Prescription
	err := sqlx.GetContext(ctx, r.db, &p, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = ?`, id)
	return p, notFound(err)
}

func (r *PrescriptionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Prescription, error) {
	out := []domain.Prescription{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+prescriptionCols+`
		FROM prescriptions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	return out, err
}

func (r *PrescriptionRepo) List(ctx context.Context, status domain.PrescriptionStatus) ([]PrescriptionSummary, error) {
	where, args := `1 = 1`, []any{}
	if status != "" {
		cond, cargs, err := statusIs(`p.status`, status)
		if err != nil {
			return nil, err
		}
		where += ` AND ` + cond
		args = append(args, cargs...)
	}
	out := []PrescriptionSummary{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT p.id, p.user_id, p.image_url, p.status, p.price, p.notes, p.pharmacist_notes,
		       p.payment_method, p.shipping_address, p.created_at, p.updated_at,
		       u.name AS customer_name, u.email AS customer_email
		FROM prescriptions p
		JOIN users u ON u.id = p.user_id
		WHERE `+where+`
		ORDER BY p.created_at DESC
	`, args...)
	return out, err
}

func (r *PrescriptionRepo) CountByStatus(ctx context.Context, status domain.PrescriptionStatus) (int, error) {
	cond, args, err := statusIs(`status`, status)
	if err != nil {
		return 0, err
	}
	var n int
	err = sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM prescriptions WHERE `+cond, args...)
	return n, err
}

// Quote sets the pharmacist's price and notes (pending -> processing).
func (r *PrescriptionRepo) Quote(ctx context.Context, id string, price int64, notes string) (domain.Prescription, error) {
	return r.move(ctx, id, domain.PrescriptionPending, domain.PrescriptionProcessing,
		`price = ?, pharmacist_notes = ?`, price, notes)
}

// Reject closes a pending prescription with the pharmacist's reason.
func (r *PrescriptionRepo) Reject(ctx context.Context, id, notes string) (domain.Prescription, error) {
	return r.move(ctx, id, domain.PrescriptionPending, domain.PrescriptionRejected,
		`pharmacist_notes = ?`, notes)
}

// MarkPaid records the customer's payment choice (processing -> paid).
func (r *PrescriptionRepo) MarkPaid(ctx context.Context, id, method, address string) (domain.Prescription, error) {
	return r.move(ctx, id, domain.PrescriptionProcessing, domain.PrescriptionPaid,
		`payment_method = ?, shipping_address = ?`, method, address)
}

// Complete marks fulfillment (paid -> completed). The price is left alone.
func (r *PrescriptionRepo) Complete(ctx context.Context, id string) (domain.Prescription, error) {
	return r.move(ctx, id, domain.PrescriptionPaid, domain.PrescriptionCompleted, "")
}

// move is a guarded status update: the row only changes while it still
// reads as from, so a concurrent moderator gets ErrStale.
func (r *PrescriptionRepo) move(ctx context.Context, id string, from, to domain.PrescriptionStatus, set string, args ...any) (domain.Prescription, error) {
	cond, cargs, err := statusIs(`status`, from)
	if err != nil {
		return domain.Prescription{}, err
	}
	q := `UPDATE prescriptions SET status = ?, updated_at = ?`
	if set != "" {
		q += `, ` + set
	}
	q += ` WHERE id = ? AND ` + cond
	all := append([]any{to, domain.Now()}, args...)
	all = append(all, id)
	all = append(all, cargs...)

	res, err := r.db.ExecContext(ctx, q, all...)
	if err = affected(res, err); errors.Is(err, ErrNotFound) {
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return domain.Prescription{}, gerr
		}
		return domain.Prescription{}, ErrStale
	} else if err != nil {
		return domain.Prescription{}, err
	}
	return r.Get(ctx, id)
}
