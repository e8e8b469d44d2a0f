package services

import (
	"context"
	"errors"

	"apotek/internal/domain"
	"apotek/internal/repos"
	"apotek/internal/validate"
	"apotek/internal/verify"
)

type ProfileService struct {
	Users  *repos.UserRepo
	Verify verify.Provider
}

// Update changes the display name and phone. A new phone number has to be
// verified again before checkout.
func (s *ProfileService) Update(ctx context.Context, userID, name, phone string) (*domain.User, error) {
	name, ok := validate.Name(name)
	if !ok {
		return nil, invalid("name", "name is required")
	}
	if phone != "" {
		if phone, ok = validate.Phone(phone); !ok {
			return nil, invalid("phone", "invalid phone number")
		}
	}
	if err := s.Users.UpdateProfile(ctx, userID, name, phone); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, userID)
}

// SendOTP starts verification of the phone stored on the profile.
func (s *ProfileService) SendOTP(ctx context.Context, u *domain.User) error {
	if u.Phone == "" {
		return invalid("phone", "add a phone number first")
	}
	return s.Verify.Send(ctx, u.Phone)
}

// VerifyOTP checks the code and persists the verified flag.
func (s *ProfileService) VerifyOTP(ctx context.Context, u *domain.User, code string) error {
	if u.Phone == "" {
		return invalid("phone", "add a phone number first")
	}
	if err := s.Verify.Check(ctx, u.Phone, code); err != nil {
		if errors.Is(err, verify.ErrWrongCode) || errors.Is(err, verify.ErrExpired) || errors.Is(err, verify.ErrNotSent) {
			return ErrWrongCode
		}
		return err
	}
	return s.Users.MarkPhoneVerified(ctx, u.ID, u.Phone)
}

func (s *ProfileService) OTPHint() string { return s.Verify.Hint() }

func (s *ProfileService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return s.Users.ListSummaries(ctx)
}

// SetUserStatus is the admin moderation action. Banning signs the user out
// of every session.
func (s *ProfileService) SetUserStatus(ctx context.Context, actor *domain.User, userID, status string) error {
	switch status {
	case domain.UserActive, domain.UserInactive, domain.UserBanned:
	default:
		return invalid("status", "status must be active, inactive or banned")
	}
	if actor != nil && actor.ID == userID {
		return ErrSelfModeration
	}
	if err := s.Users.SetStatus(ctx, userID, status); err != nil {
		return err
	}
	if status == domain.UserBanned {
		return s.Users.DropSessions(ctx, userID)
	}
	return nil
}
