package repos

import "github.com/jmoiron/sqlx"

// statusSet is satisfied by domain.OrderStatus and domain.PrescriptionStatus.
type statusSet interface {
	Aliases() []string
	OtherAliases() []string
	Fallback() bool
}

// statusIs matches every stored spelling of s in col, the same way Scan
// normalizes it. Unknown spellings read as the fallback status, so the
// fallback is matched by excluding every other known spelling.
func statusIs(col string, s statusSet) (string, []any, error) {
	expr := `LOWER(TRIM(COALESCE(` + col + `, '')))`
	if s.Fallback() {
		return sqlx.In(expr+` NOT IN (?)`, s.OtherAliases())
	}
	return sqlx.In(expr+` IN (?)`, s.Aliases())
}
