package domain

type User struct {
	ID             string `db:"id" json:"id"`
	Email          string `db:"email" json:"email"`
	Name           string `db:"name" json:"name"`
	Phone          string `db:"phone" json:"phone"`
	Hash           string `db:"password_hash" json:"-"`
	EmailConfirmed bool   `db:"email_confirmed" json:"email_confirmed"`
	PhoneVerified  bool   `db:"phone_verified" json:"phone_verified"`
	Status         string `db:"status" json:"status"` // active | inactive | banned
	CreatedAt      string `db:"created_at" json:"created_at"`
}

const (
	UserActive   = "active"
	UserInactive = "inactive"
	UserBanned   = "banned"

	RoleAdmin = "admin"
)

// UserSummary backs the admin users page.
type UserSummary struct {
	ID                string `db:"id" json:"id"`
	Email             string `db:"email" json:"email"`
	Name              string `db:"name" json:"name"`
	Phone             string `db:"phone" json:"phone"`
	Status            string `db:"status" json:"status"`
	CreatedAt         string `db:"created_at" json:"created_at"`
	OrderCount        int    `db:"order_count" json:"order_count"`
	PrescriptionCount int    `db:"prescription_count" json:"prescription_count"`
}
