package services

import (
	"errors"

	"apotek/internal/repos"
)

var (
	ErrBadCreds          = errors.New("invalid email or password")
	ErrEmailNotConfirmed = errors.New("email address not confirmed yet")
	ErrAccountBanned     = errors.New("account is banned")
	ErrEmailTaken        = errors.New("email already registered")
	ErrNotAdmin          = errors.New("admin access required")
	ErrNotOwner          = errors.New("resource belongs to another user")

	ErrCartEmpty         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrPrescriptionOnly  = errors.New("product requires a prescription upload")
	ErrCODNotAllowed     = errors.New("cash on delivery is only available below the COD limit")
	ErrPhoneNotVerified  = errors.New("phone number must be verified before checkout")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrNoteRequired      = errors.New("a rejection note is required")
	ErrPriceRequired     = errors.New("a positive price is required")
	ErrWrongCode         = errors.New("verification code is wrong or expired")
	ErrSelfModeration    = errors.New("admins cannot change their own status")

	// ErrNotFound and ErrConflict alias the storage errors so handlers only
	// import services.
	ErrNotFound = repos.ErrNotFound
	ErrConflict = repos.ErrStale
)

// ValidationError reports a rejected input field. Nothing has been written
// when one is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }
