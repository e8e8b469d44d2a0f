// Package events publishes order and prescription lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "apotek/internal/log"
)

const (
	OrderCreated              = "order.created"
	OrderStatusChanged        = "order.status_changed"
	PrescriptionStatusChanged = "prescription.status_changed"

	producerName = "apotek"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order or prescription id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payloads ----

type ItemLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID       string     `json:"order_id"`
	UserID        string     `json:"user_id"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	Items         []ItemLine `json:"items"`
}

type StatusChangedPayload struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	ActorID string `json:"actor_id,omitempty"`
}

func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// Publisher is fire-and-forget: a failed publish is logged, never returned
// to the request that caused it.
type Publisher interface {
	Publish(ctx context.Context, e Envelope)
	Close() error
}

// Emit builds the envelope and publishes it.
func Emit(ctx context.Context, p Publisher, eventType, correlationID string, payload any) {
	if p == nil {
		return
	}
	e, err := NewEnvelope(eventType, correlationID, payload)
	if err != nil {
		applog.Bg("event_encode", err, map[string]any{"type": eventType})
		return
	}
	p.Publish(ctx, e)
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Envelope) {
	applog.Bg("event", nil, map[string]any{"type": e.EventType, "id": e.CorrelationID, "payload": string(e.Payload)})
}

func (LogPublisher) Close() error { return nil }

// Recorder keeps published envelopes in memory.
type Recorder struct {
	mu  sync.Mutex
	got []Envelope
}

func (r *Recorder) Publish(_ context.Context, e Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}

func (r *Recorder) Close() error { return nil }

// Types lists the event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.EventType)
	}
	return out
}

func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.got...)
}
