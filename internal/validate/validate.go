package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"apotek/internal/domain"
)

var (
	// Indonesian postal code: 5 digits
	rePostal = regexp.MustCompile(`^[0-9]{5}$`)
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	// 08xx / 628xx / +628xx mobile numbers
	rePhone = regexp.MustCompile(`^(\+62|62|0)8[0-9]{7,12}$`)
)

func PostalCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePostal.MatchString(s)
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return strings.ToLower(s), reEmail.MatchString(s)
}

// Phone strips spaces and dashes before matching.
func Phone(s string) (string, bool) {
	s = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	return s, rePhone.MatchString(s)
}

// MaxQ is the longest search term accepted, in characters.
const MaxQ = 100

// Q trims a search term and drops control characters. The catalog matches it
// as a literal substring, so nothing else is filtered. Terms longer than MaxQ
// characters are refused rather than cut.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return s, utf8.RuneCountInString(s) <= MaxQ
}

func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return ClampQty(n)
}

// ClampQty keeps a single cart line within 1..99.
func ClampQty(n int) int {
	if n < 1 {
		return 1
	}
	if n > 99 {
		return 99
	}
	return n
}

// ID validates a simple resource identifier (uuid or slug).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

var categories = map[string]bool{
	"obat":           true,
	"vitamin":        true,
	"alat-kesehatan": true,
	"perawatan-diri": true,
}

// Category accepts the fixed category keys plus "all"; empty means "all".
func Category(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == domain.CategoryAll || s == "semua" {
		return domain.CategoryAll, true
	}
	return s, categories[s]
}

func PaymentMethod(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case domain.PaymentTransfer, domain.PaymentEWallet, domain.PaymentQRIS, domain.PaymentCOD:
		return s, true
	}
	return "", false
}

// Text trims and enforces a 1..max length window.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > max {
		return "", false
	}
	return s, true
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) { return Text(s, 60) }

// Password enforces length and character-class rules.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
