package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"reelix/internal/config"
)

type recordingProducer struct {
	mu     sync.Mutex
	sent   []kafka.Message
	failOn error
}

func (p *recordingProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.failOn != nil {
		return p.failOn
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func TestNewReturnsNilWithoutBrokers(t *testing.T) {
	t.Parallel()

	r := New(config.KafkaConfig{Topic: "events"})
	require.Nil(t, r)
	r.Publish(context.Background(), Event{Kind: "x"}) // must not panic
	require.NoError(t, r.Close())
}

func TestPublishWritesEventPayload(t *testing.T) {
	t.Parallel()

	rec := &recordingProducer{}
	r := &Relay{producer: rec, topic: "reelix.events"}

	r.Publish(context.Background(), Event{Kind: "recs_emitted", Key: "sess-1", SessionID: "sess-1", Fields: map[string]any{"count": float64(3)}})

	require.Len(t, rec.sent, 1)
	require.Equal(t, "reelix.events", rec.sent[0].Topic)
	require.Equal(t, "sess-1", string(rec.sent[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(rec.sent[0].Value, &got))
	require.Equal(t, "recs_emitted", got.Kind)
	require.Equal(t, "sess-1", got.SessionID)
}

func TestPublishSwallowsWriteFailure(t *testing.T) {
	t.Parallel()

	rec := &recordingProducer{failOn: errors.New("broker unreachable")}
	r := &Relay{producer: rec, topic: "reelix.events"}

	require.NotPanics(t, func() {
		r.Publish(context.Background(), Event{Kind: "turn_error", Key: "err-1"})
	})
}
