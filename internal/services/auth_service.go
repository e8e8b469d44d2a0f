package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"apotek/internal/cart"
	"apotek/internal/domain"
	applog "apotek/internal/log"
	"apotek/internal/mail"
	"apotek/internal/repos"
	"apotek/internal/tokens"
	"apotek/internal/validate"
)

const (
	confirmTTL = 24 * time.Hour
	resetTTL   = time.Hour
)

type AuthService struct {
	Users   *repos.UserRepo
	Tokens  *tokens.Signer
	Mail    mail.Sender
	Carts   cart.Store
	BaseURL string
}

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrBadCreds
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if !u.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}
	if u.Status == domain.UserBanned {
		return nil, ErrAccountBanned
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// AdminLogin is Login plus the role check. A non-admin is signed straight
// back out.
func (s *AuthService) AdminLogin(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Login(ctx, sid, email, password)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsAdmin(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if lerr := s.Users.UnbindSession(ctx, sid); lerr != nil {
			return nil, lerr
		}
		return nil, ErrNotAdmin
	}
	return u, nil
}

// Logout unbinds the session and drops its cart.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if err := s.Users.UnbindSession(ctx, sid); err != nil {
		return err
	}
	if s.Carts != nil {
		return s.Carts.Delete(ctx, sid)
	}
	return nil
}

// CurrentUser resolves the session; banned users count as signed out.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	u, err := s.Users.SessionUser(ctx, sid)
	if err != nil {
		return nil, err
	}
	if u.Status == domain.UserBanned {
		return nil, ErrAccountBanned
	}
	return u, nil
}

func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.Users.HasRole(ctx, userID, domain.RoleAdmin)
}

// SignUp creates an unconfirmed account and mails the confirmation link.
// A mail failure is logged; the account still exists.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*domain.User, error) {
	email, ok := validate.Email(email)
	if !ok {
		return nil, invalid("email", "invalid email")
	}
	if !validate.Password(password) {
		return nil, invalid("password", "8-64 chars with upper, lower, digit and symbol")
	}
	name, ok = validate.Name(name)
	if !ok {
		return nil, invalid("name", "name is required")
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repos.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Hash:      string(hash),
		Status:    domain.UserActive,
		CreatedAt: domain.Now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.sendLink(ctx, u, tokens.ConfirmEmail, confirmTTL, "Konfirmasi email Anda", "/confirm?token="); err != nil {
		applog.Bg("signup_mail", err, map[string]any{"user_id": u.ID})
	}
	return &u, nil
}

func (s *AuthService) Confirm(ctx context.Context, token string) error {
	uid, err := s.Tokens.Parse(token, tokens.ConfirmEmail)
	if err != nil {
		return err
	}
	return s.Users.ConfirmEmail(ctx, uid)
}

// RequestReset mails a reset link. Unknown addresses succeed silently so
// the endpoint can't be used to probe for accounts.
func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.sendLink(ctx, *u, tokens.ResetPassword, resetTTL, "Atur ulang kata sandi", "/password/reset?token=")
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	uid, err := s.Tokens.Parse(token, tokens.ResetPassword)
	if err != nil {
		return err
	}
	if !validate.Password(password) {
		return invalid("password", "8-64 chars with upper, lower, digit and symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, uid, string(hash))
}

func (s *AuthService) sendLink(ctx context.Context, u domain.User, p tokens.Purpose, ttl time.Duration, subject, path string) error {
	tok, err := s.Tokens.Issue(u.ID, p, ttl)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, mail.Message{
		To:      u.Email,
		Subject: subject,
		Body:    fmt.Sprintf("Halo %s,\n\nBuka tautan berikut: %s%s%s\n", u.Name, s.BaseURL, path, tok),
	})
}
