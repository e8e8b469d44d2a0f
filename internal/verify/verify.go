// Package verify abstracts phone ownership checks. Only a demo provider
// exists; a real SMS/OTP gateway implements the same interface.
package verify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrWrongCode = errors.New("verification code does not match")
	ErrNotSent   = errors.New("no verification code was sent to this number")
	ErrExpired   = errors.New("verification code expired")
)

type Provider interface {
	// Send starts a verification for phone.
	Send(ctx context.Context, phone string) error
	// Check consumes the pending verification when code matches.
	Check(ctx context.Context, phone, code string) error
	// Hint is shown next to the code field; empty for real providers.
	Hint() string
}

// DemoCode is the fixed code the demo provider accepts.
const DemoCode = "123456"

// DemoProvider sends nothing and accepts DemoCode for any number it was
// asked to send to within the TTL.
type DemoProvider struct {
	mu      sync.Mutex
	pending map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewDemoProvider(ttl time.Duration) *DemoProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DemoProvider{pending: map[string]time.Time{}, ttl: ttl, now: time.Now}
}

func (d *DemoProvider) Send(_ context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[phone] = d.now().Add(d.ttl)
	return nil
}

func (d *DemoProvider) Check(_ context.Context, phone, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.pending[phone]
	if !ok {
		return ErrNotSent
	}
	if d.now().After(exp) {
		delete(d.pending, phone)
		return ErrExpired
	}
	if code != DemoCode {
		return ErrWrongCode
	}
	delete(d.pending, phone)
	return nil
}

func (d *DemoProvider) Hint() string { return "Kode demo: " + DemoCode }
