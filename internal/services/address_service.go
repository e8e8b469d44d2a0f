package services

import (
	"context"

	"github.com/google/uuid"

	"apotek/internal/domain"
	"apotek/internal/repos"
	"apotek/internal/validate"
)

// AddressInput is a typed shipping address. Checkout accepts either one of
// these or SavedID pointing at an address book entry.
type AddressInput struct {
	SavedID       string `json:"saved_id" form:"saved_id"`
	Label         string `json:"label" form:"label"`
	RecipientName string `json:"recipient_name" form:"recipient_name"`
	Phone         string `json:"phone" form:"phone"`
	AddressLine   string `json:"address_line" form:"address_line"`
	City          string `json:"city" form:"city"`
	Province      string `json:"province" form:"province"`
	PostalCode    string `json:"postal_code" form:"postal_code"`
}

// toAddress validates every field.
func (in AddressInput) toAddress() (domain.Address, error) {
	var a domain.Address
	var ok bool
	if a.Label, ok = validate.Text(in.Label, 30); !ok {
		return a, invalid("label", "label is required")
	}
	if a.RecipientName, ok = validate.Name(in.RecipientName); !ok {
		return a, invalid("recipient_name", "recipient is required")
	}
	if a.Phone, ok = validate.Phone(in.Phone); !ok {
		return a, invalid("phone", "invalid phone number")
	}
	if a.AddressLine, ok = validate.Text(in.AddressLine, 200); !ok {
		return a, invalid("address_line", "address is required")
	}
	if a.City, ok = validate.Text(in.City, 60); !ok {
		return a, invalid("city", "city is required")
	}
	if a.Province, ok = validate.Text(in.Province, 60); !ok {
		return a, invalid("province", "province is required")
	}
	if a.PostalCode, ok = validate.PostalCode(in.PostalCode); !ok {
		return a, invalid("postal_code", "postal code must be 5 digits")
	}
	return a, nil
}

type AddressService struct {
	Repo *repos.AddressRepo
}

func (s *AddressService) List(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.Repo.List(ctx, userID)
}

func (s *AddressService) Create(ctx context.Context, userID string, in AddressInput, makeDefault bool) (domain.Address, error) {
	a, err := in.toAddress()
	if err != nil {
		return domain.Address{}, err
	}
	a.ID = uuid.NewString()
	a.UserID = userID
	a.IsDefault = makeDefault
	a.CreatedAt = domain.Now()
	return s.Repo.Create(ctx, a)
}

func (s *AddressService) Update(ctx context.Context, userID, id string, in AddressInput) (domain.Address, error) {
	cur, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return domain.Address{}, err
	}
	a, err := in.toAddress()
	if err != nil {
		return domain.Address{}, err
	}
	a.ID, a.UserID, a.IsDefault, a.CreatedAt = cur.ID, cur.UserID, cur.IsDefault, cur.CreatedAt
	if err := s.Repo.Update(ctx, a); err != nil {
		return domain.Address{}, err
	}
	return a, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}

// SetDefault leaves exactly one default address for the user.
func (s *AddressService) SetDefault(ctx context.Context, userID, id string) error {
	return s.Repo.SetDefault(ctx, userID, id)
}

// Compose resolves the checkout address to the stored free-text form.
func (s *AddressService) Compose(ctx context.Context, userID string, in AddressInput) (string, error) {
	if in.SavedID != "" {
		a, err := s.Repo.Get(ctx, userID, in.SavedID)
		if err != nil {
			return "", err
		}
		return a.Compose(), nil
	}
	a, err := in.toAddress()
	if err != nil {
		return "", err
	}
	return a.Compose(), nil
}
