package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"apotek/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, email, name, phone, password_hash, email_confirmed, phone_verified, status, created_at`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.DB, &u, `SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.DB, &u, `SELECT `+userCols+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO users(id,email,name,phone,password_hash,email_confirmed,phone_verified,status,created_at)
		VALUES(:id,:email,:name,:phone,:password_hash,:email_confirmed,:phone_verified,:status,:created_at)`, u)
	return err
}

func (r *UserRepo) ConfirmEmail(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET email_confirmed=1 WHERE id=?`, id)
	return affected(res, err)
}

func (r *UserRepo) SetPassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	return affected(res, err)
}

// UpdateProfile changes name and phone. A changed phone loses its verified
// flag.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, phone string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET
		  name = ?,
		  phone_verified = CASE WHEN phone = ? THEN phone_verified ELSE 0 END,
		  phone = ?
		WHERE id = ?`, name, phone, phone, id)
	return affected(res, err)
}

// MarkPhoneVerified only succeeds while the stored phone still matches.
func (r *UserRepo) MarkPhoneVerified(ctx context.Context, id, phone string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET phone_verified=1 WHERE id=? AND phone=?`, id, phone)
	return affected(res, err)
}

func (r *UserRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET status=? WHERE id=?`, status, id)
	return affected(res, err)
}

func (r *UserRepo) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.DB, &n, `SELECT COUNT(*) FROM user_roles WHERE user_id=? AND role=?`, userID, role)
	return n > 0, err
}

// ListSummaries backs the admin users page.
func (r *UserRepo) ListSummaries(ctx context.Context) ([]domain.UserSummary, error) {
	out := []domain.UserSummary{}
	err := sqlx.SelectContext(ctx, r.DB, &out, `
		SELECT u.id, u.email, u.name, u.phone, u.status, u.created_at,
		       (SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id) AS order_count,
		       (SELECT COUNT(*) FROM prescriptions p WHERE p.user_id = u.id) AS prescription_count
		FROM users u
		ORDER BY u.created_at DESC, u.email
	`)
	return out, err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.DB, &u, `
      SELECT u.id,u.email,u.name,u.phone,u.password_hash,u.email_confirmed,u.phone_verified,u.status,u.created_at
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// DropSessions signs a user out everywhere (used when an admin bans them).
func (r *UserRepo) DropSessions(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL WHERE user_id=?`, userID)
	return err
}
