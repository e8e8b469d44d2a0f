// Package mail sends the account e-mails (confirmation, password reset).
package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	applog "apotek/internal/log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes mails to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	applog.Bg("mail_sent", nil, map[string]any{"to": m.To, "subject": m.Subject, "body": m.Body})
	return nil
}

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("mail: sender temporarily unavailable")

// BreakerSender stops calling a failing sender for a cool-down period
// after consecutive failures.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSender(next Sender, failures uint32, cooldown time.Duration) *BreakerSender {
	if failures == 0 {
		failures = 3
	}
	st := gobreaker.Settings{
		Name:        "mail",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			applog.Bg("breaker_state", nil, map[string]any{"name": name, "from": from.String(), "to": to.String()})
		},
	}
	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

func (b *BreakerSender) Send(ctx context.Context, m Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, m)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}

// Recorder keeps sent messages in memory; tests read them back.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message sent to addr.
func (r *Recorder) Last(addr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == addr {
			return r.sent[i], true
		}
	}
	return Message{}, false
}
