// Package eventlog implements a fire-and-forget relay of discovery-core
// events (recs emitted, turn errors) onto Kafka. It
// is deliberately not a telemetry sink: delivery failures are logged and
// swallowed, never surfaced to the request path.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"reelix/internal/config"
)

// Producer abstracts the kafka writer behavior the relay needs, so tests can
// substitute a recording fake.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is one fire-and-forget record. Key scopes related events (a
// session_id or query_id) for partition affinity; Kind names what happened.
type Event struct {
	Kind      string         `json:"kind"`
	Key       string         `json:"key"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Relay publishes Events onto a single configured topic.
type Relay struct {
	producer Producer
	topic    string
}

// New builds a Relay backed by a kafka.Writer targeting cfg.Topic across
// cfg.Brokers. An empty brokers list yields a nil Relay whose Publish is a
// documented no-op, so the discovery core can run without Kafka configured.
func New(cfg config.KafkaConfig) *Relay {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("count", len(msgs)).Msg("eventlog: publish failed, dropping events")
			}
		},
	}
	return &Relay{producer: w, topic: cfg.Topic}
}

// Publish best-effort writes ev. A nil Relay or a write failure is logged
// and swallowed — event logging must never block or fail the caller's turn.
func (r *Relay) Publish(ctx context.Context, ev Event) {
	if r == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("kind", ev.Kind).Msg("eventlog: marshal failed, dropping event")
		return
	}
	msg := kafka.Message{Topic: r.topic, Key: []byte(ev.Key), Value: payload}
	if err := r.producer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("kind", ev.Kind).Msg("eventlog: publish failed, dropping event")
	}
}

// Close flushes and closes the underlying writer. Safe to call on a nil
// Relay.
func (r *Relay) Close() error {
	if r == nil {
		return nil
	}
	if err := r.producer.Close(); err != nil {
		return fmt.Errorf("close eventlog producer: %w", err)
	}
	return nil
}
