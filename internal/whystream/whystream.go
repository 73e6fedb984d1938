// Package whystream implements component J: the WHY-explanation streamer.
// It builds the PromptsEnvelope for a final slate and parses the model's
// JSONL output incrementally, injecting heartbeats on stall.
package whystream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reelix/internal/llm"
	"reelix/internal/model"
)

const defaultHeartbeatSec = 15 * time.Second

const systemPrompt = `You write short "why you'll enjoy it" explanations. For each candidate,
emit exactly one line: a JSON object {"media_id": <int>, "why": <string>}.
Emit one object per line, in the given candidate order, and nothing else.
"why" must be a single line of markdown with no literal newlines.`

// BuildEnvelope assembles the system+user messages and per-candidate
// fenced blocks that the model's JSONL output is derived from.
func BuildEnvelope(modelName string, spec model.RecQuerySpec, candidates []model.Candidate) model.PromptsEnvelope {
	var user strings.Builder
	fmt.Fprintf(&user, "query_text: %s\n", spec.QueryText)
	fmt.Fprintf(&user, "core_genres: %s\n", strings.Join(spec.CoreGenres, ", "))
	fmt.Fprintf(&user, "core_tone: %s\n", spec.CoreTone)
	fmt.Fprintf(&user, "key_themes: %s\n", strings.Join(spec.KeyThemes, ", "))
	fmt.Fprintf(&user, "narrative_shape: %s\n\n", spec.NarrativeShape)

	briefs := make([]model.ItemBrief, 0, len(candidates))
	for _, c := range candidates {
		fmt.Fprintf(&user, "```candidate\nmedia_id: %d\n%s\n```\n", c.MediaID, c.Payload.EmbeddingText)
		briefs = append(briefs, model.ItemBrief{MediaID: c.MediaID, EmbeddingText: c.Payload.EmbeddingText})
	}

	return model.PromptsEnvelope{
		Model:     modelName,
		OutputFmt: "jsonl",
		Calls: []model.PromptCall{{
			CallID: "why",
			Messages: []model.CallMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: user.String()},
			},
			ItemsBrief: briefs,
		}},
	}
}

// WhyItem is one parsed per-candidate explanation.
type WhyItem struct {
	MediaID int64  `json:"media_id"`
	Why     string `json:"why"`
}

type deltaHandler struct {
	ch chan<- string
}

func (h deltaHandler) OnDelta(s string)       { h.ch <- s }
func (h deltaHandler) OnToolCall(llm.ToolCall) {}

// Streamer drives the streaming LLM call and JSONL parse loop.
type Streamer struct {
	Provider     llm.Provider
	Model        string
	HeartbeatSec time.Duration
}

// Stream runs one WHY-explanation call. onItem is invoked for each
// successfully parsed object in order; onHeartbeat is invoked whenever no
// delta arrives within the heartbeat interval.
func (s *Streamer) Stream(ctx context.Context, env model.PromptsEnvelope, onItem func(WhyItem), onHeartbeat func()) error {
	heartbeat := s.HeartbeatSec
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatSec
	}
	if len(env.Calls) == 0 {
		return nil
	}
	msgs := make([]llm.Message, 0, len(env.Calls[0].Messages))
	for _, m := range env.Calls[0].Messages {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	deltaCh := make(chan string)
	doneCh := make(chan error, 1)
	go func() {
		err := s.Provider.ChatStream(ctx, msgs, nil, s.Model, deltaHandler{ch: deltaCh})
		close(deltaCh)
		doneCh <- err
	}()

	var buf strings.Builder
	timer := time.NewTimer(heartbeat)
	defer timer.Stop()

	flushLines := func() {
		for {
			current := buf.String()
			idx := strings.IndexByte(current, '\n')
			if idx < 0 {
				return
			}
			line := current[:idx]
			rest := current[idx+1:]
			if item, ok := tryParse(line); ok {
				onItem(item)
				buf.Reset()
				buf.WriteString(rest)
				continue
			}
			// incomplete/invalid line: wait for more bytes rather than
			// dropping it, per the spec's "restore the line" contract.
			return
		}
	}

	for {
		select {
		case d, ok := <-deltaCh:
			if !ok {
				deltaCh = nil
				continue
			}
			buf.WriteString(d)
			flushLines()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(heartbeat)
		case err := <-doneCh:
			if rem := strings.TrimSpace(buf.String()); rem != "" {
				if item, ok := tryParse(rem); ok {
					onItem(item)
				}
			}
			return err
		case <-timer.C:
			onHeartbeat()
			timer.Reset(heartbeat)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func tryParse(line string) (WhyItem, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return WhyItem{}, false
	}
	var item WhyItem
	if err := json.Unmarshal([]byte(line), &item); err != nil {
		return WhyItem{}, false
	}
	return item, true
}
