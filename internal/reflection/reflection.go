// Package reflection implements component K: a best-effort, hard-timeout
// LLM call that proposes a next-step suggestion after a slate is served.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reelix/internal/llm"
	"reelix/internal/model"
	"reelix/internal/observability"
)

const defaultTimeout = 10 * time.Second

const systemPrompt = `You suggest one follow-up direction for a movie/TV recommendation slate.
Respond with exactly one JSON object: {"strategy": <one of: more_like_title,
explore_adjacent, shift_era>, "suggestion": <1-2 sentences ending with "?">}`

// Strategy is the closed set of next-step strategies.
type Strategy string

const (
	StrategyMoreLikeTitle   Strategy = "more_like_title"
	StrategyExploreAdjacent Strategy = "explore_adjacent"
	StrategyShiftEra        Strategy = "shift_era"
)

// Suggestion is the output of a successful reflection call.
type Suggestion struct {
	Strategy   Strategy `json:"strategy"`
	Suggestion string   `json:"suggestion"`
}

// Agent drives the reflection call.
type Agent struct {
	Provider llm.Provider
	Model    string
	Timeout  time.Duration
}

// Reflect issues the best-effort call. Any failure or timeout returns
// (Suggestion{}, false) rather than an error — callers must treat this as
// fully optional.
func (a *Agent) Reflect(ctx context.Context, spec model.RecQuerySpec, finalRecs []model.Candidate, tierCounts map[string]int, prevStrategy string) (Suggestion, bool) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "query_text: %s\n", spec.QueryText)
	fmt.Fprintf(&b, "core_genres: %s\n", strings.Join(spec.CoreGenres, ", "))
	for strategy, n := range tierCounts {
		fmt.Fprintf(&b, "tier %s: %d\n", strategy, n)
	}
	for _, c := range finalRecs {
		fmt.Fprintf(&b, "slate item: %s (%d)\n", c.Payload.Title, c.Payload.ReleaseYear)
	}
	if prevStrategy != "" {
		fmt.Fprintf(&b, "previous_strategy: %s (avoid repeating)\n", prevStrategy)
	}

	msgs := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}

	resp, _, err := a.Provider.Chat(cctx, msgs, nil, a.Model)
	if err != nil {
		observability.LoggerWithTrace(ctx).Debug().Err(err).Msg("reflection_failed")
		return Suggestion{}, false
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &s); err != nil {
		observability.LoggerWithTrace(ctx).Debug().Err(err).Msg("reflection_decode_failed")
		return Suggestion{}, false
	}
	if s.Strategy != StrategyMoreLikeTitle && s.Strategy != StrategyExploreAdjacent && s.Strategy != StrategyShiftEra {
		return Suggestion{}, false
	}
	return s, true
}

func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
