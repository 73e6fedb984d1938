package whystream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reelix/internal/llm"
	"reelix/internal/model"
)

func TestBuildEnvelopeIncludesOneBriefPerCandidate(t *testing.T) {
	t.Parallel()

	spec := model.RecQuerySpec{QueryText: "cozy mysteries", CoreGenres: []string{"mystery"}}
	candidates := []model.Candidate{
		{MediaID: 1, Payload: model.Payload{EmbeddingText: "a quiet village whodunit"}},
		{MediaID: 2, Payload: model.Payload{EmbeddingText: "a locked-room puzzle"}},
	}

	env := BuildEnvelope("gpt-test", spec, candidates)
	require.Len(t, env.Calls, 1)
	require.Len(t, env.Calls[0].ItemsBrief, 2)
	require.Equal(t, int64(1), env.Calls[0].ItemsBrief[0].MediaID)
	require.Equal(t, "jsonl", env.OutputFmt)
	require.Contains(t, env.Calls[0].Messages[1].Content, "cozy mysteries")
}

// fakeProvider streams a fixed sequence of deltas then completes.
type fakeProvider struct {
	deltas []string
	err    error
}

func (f *fakeProvider) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, llm.Usage, error) {
	return llm.Message{}, llm.Usage{}, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	for _, d := range f.deltas {
		h.OnDelta(d)
	}
	return f.err
}

func TestStreamParsesOneItemPerLine(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{deltas: []string{
		`{"media_id":1,"why":"a"}` + "\n",
		`{"media_id":2,"why":"b"}` + "\n",
	}}
	s := &Streamer{Provider: provider, Model: "gpt-test", HeartbeatSec: time.Second}

	var items []WhyItem
	err := s.Stream(context.Background(), model.PromptsEnvelope{
		Calls: []model.PromptCall{{Messages: []model.CallMessage{{Role: "user", Content: "go"}}}},
	}, func(it WhyItem) { items = append(items, it) }, func() {})

	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, int64(1), items[0].MediaID)
	require.Equal(t, "b", items[1].Why)
}

func TestStreamFlushesTrailingLineWithoutNewline(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{deltas: []string{`{"media_id":7,"why":"trailing"}`}}
	s := &Streamer{Provider: provider, Model: "gpt-test", HeartbeatSec: time.Second}

	var items []WhyItem
	err := s.Stream(context.Background(), model.PromptsEnvelope{
		Calls: []model.PromptCall{{Messages: []model.CallMessage{{Role: "user", Content: "go"}}}},
	}, func(it WhyItem) { items = append(items, it) }, func() {})

	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(7), items[0].MediaID)
}

func TestStreamReturnsNilImmediatelyWithNoCalls(t *testing.T) {
	t.Parallel()

	s := &Streamer{Provider: &fakeProvider{}}
	called := false
	err := s.Stream(context.Background(), model.PromptsEnvelope{}, func(WhyItem) { called = true }, func() {})
	require.NoError(t, err)
	require.False(t, called)
}

func TestStreamFiresHeartbeatOnStall(t *testing.T) {
	t.Parallel()

	blockCh := make(chan struct{})
	provider := &blockingProvider{release: blockCh}
	s := &Streamer{Provider: provider, Model: "gpt-test", HeartbeatSec: 5 * time.Millisecond}

	heartbeats := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Stream(context.Background(), model.PromptsEnvelope{
			Calls: []model.PromptCall{{Messages: []model.CallMessage{{Role: "user", Content: "go"}}}},
		}, func(WhyItem) {}, func() {
			select {
			case heartbeats <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-heartbeats:
	case <-time.After(time.Second):
		t.Fatal("expected a heartbeat while the provider stalled")
	}
	close(blockCh)
	<-done
}

// blockingProvider never sends a delta until release is closed, to exercise
// the heartbeat path.
type blockingProvider struct {
	release chan struct{}
}

func (b *blockingProvider) Chat(context.Context, []llm.Message, []llm.ToolSchema, string) (llm.Message, llm.Usage, error) {
	return llm.Message{}, llm.Usage{}, nil
}

func (b *blockingProvider) ChatStream(ctx context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	<-b.release
	return nil
}
