// Package tokens issues the signed one-purpose links mailed to users
// (e-mail confirmation and password reset).
package tokens

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Purpose string

const (
	ConfirmEmail  Purpose = "confirm_email"
	ResetPassword Purpose = "reset_password"

	issuer = "apotek"
)

var ErrInvalid = errors.New("invalid or expired token")

type claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token binding userID to purpose for ttl.
func (s *Signer) Issue(userID string, purpose Purpose, ttl time.Duration) (string, error) {
	now := s.now()
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Parse returns the user id of a valid, unexpired token minted for purpose.
func (s *Signer) Parse(token string, purpose Purpose) (string, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalid
	}
	if c.Purpose != purpose || c.Subject == "" || c.ExpiresAt == nil {
		return "", ErrInvalid
	}
	return c.Subject, nil
}
