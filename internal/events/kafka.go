package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	applog "apotek/internal/log"
)

// KafkaPublisher hands envelopes to a background writer through a buffered
// inbox. When the inbox is full the event is dropped and logged rather than
// blocking the request.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	done    chan struct{}
	closing sync.Once
	started atomic.Bool
	mu      sync.RWMutex
	closed  bool
}

func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start runs the writer loop until Close drains the inbox.
func (p *KafkaPublisher) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				applog.Bg("kafka_write", err, map[string]any{"key": string(m.Key)})
			}
			cancel()
		}
	}()
}

func (p *KafkaPublisher) Publish(_ context.Context, e Envelope) {
	m, err := toMessage(e)
	if err != nil {
		applog.Bg("kafka_encode", err, map[string]any{"type": e.EventType})
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		applog.Bg("kafka_drop", nil, map[string]any{"type": e.EventType, "reason": "closed"})
		return
	}
	select {
	case p.inbox <- m:
	default:
		applog.Bg("kafka_drop", nil, map[string]any{"type": e.EventType, "reason": "inbox full"})
	}
}

// Close stops accepting events, flushes what is queued and closes the writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.closing.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		if p.started.Load() {
			<-p.done
		}
		err = p.w.Close()
	})
	return err
}

func toMessage(e Envelope) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	key := e.CorrelationID
	if key == "" {
		key = e.EventID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	}, nil
}
