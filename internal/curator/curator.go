// Package curator implements component E: a single LLM call that scores
// every pipeline candidate along four fit axes, a deterministic tiering
// rule over those scores, and tier-based slate selection.
package curator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelix/internal/errs"
	"reelix/internal/llm"
	"reelix/internal/model"
)

const systemPrompt = `You are a strict JSON-only evaluator. Given a recommendation query and a
list of candidate titles, score each candidate along four axes: genre_fit,
tone_fit, structure_fit, theme_fit. Each axis is an integer in {0,1,2}.
Respond with exactly one JSON object and nothing else:
{"evaluation_results":[{"media_id":<int>,"genre_fit":<int>,"tone_fit":<int>,"structure_fit":<int>,"theme_fit":<int>}, ...]}`

type evalResult struct {
	MediaID      int64 `json:"media_id"`
	GenreFit     int   `json:"genre_fit"`
	ToneFit      int   `json:"tone_fit"`
	StructureFit int   `json:"structure_fit"`
	ThemeFit     int   `json:"theme_fit"`
}

type evalEnvelope struct {
	EvaluationResults []evalResult `json:"evaluation_results"`
}

// Evaluator calls an LLM provider to score candidates against a query spec.
type Evaluator struct {
	Provider llm.Provider
	Model    string
}

func buildUserMessage(spec model.RecQuerySpec, candidates []model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "query: %s\n", spec.QueryText)
	fmt.Fprintf(&b, "core_genres: %s\n", strings.Join(spec.CoreGenres, ", "))
	fmt.Fprintf(&b, "core_tone: %s\n", strings.Join(spec.CoreTone, ", "))
	fmt.Fprintf(&b, "key_themes: %s\n", strings.Join(spec.KeyThemes, ", "))
	fmt.Fprintf(&b, "narrative_shape: %s\n\n", spec.NarrativeShape)
	for _, c := range candidates {
		fmt.Fprintf(&b, "candidate media_id=%d title=%q genres=%s overview=%q\n",
			c.MediaID, c.Payload.Title, strings.Join(c.Payload.Genres, ","), c.Payload.Overview)
	}
	return b.String()
}

// Evaluate scores every candidate. Candidates absent from the model's
// response get a moderate default score (1 on every axis).
func (e *Evaluator) Evaluate(ctx context.Context, spec model.RecQuerySpec, candidates []model.Candidate) (map[int64]model.CuratorScore, error) {
	msgs := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserMessage(spec, candidates)},
	}
	resp, _, err := e.Provider.Chat(ctx, msgs, nil, e.Model)
	if err != nil {
		return nil, errs.New(errs.KindLLMTransientError, "curator call failed", err)
	}

	var env evalEnvelope
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &env); err != nil {
		return nil, errs.New(errs.KindLLMValidationError, "curator response not valid JSON", err)
	}

	scores := make(map[int64]model.CuratorScore, len(candidates))
	for _, r := range env.EvaluationResults {
		scores[r.MediaID] = model.CuratorScore{
			GenreFit:     clamp02(r.GenreFit),
			ToneFit:      clamp02(r.ToneFit),
			StructureFit: clamp02(r.StructureFit),
			ThemeFit:     clamp02(r.ThemeFit),
		}
	}
	for _, c := range candidates {
		if _, ok := scores[c.MediaID]; !ok {
			scores[c.MediaID] = model.CuratorScore{GenreFit: 1, ToneFit: 1, StructureFit: 1, ThemeFit: 1}
		}
	}
	return scores, nil
}

func clamp02(v int) int {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}

// extractJSON trims any leading/trailing text a model adds around the JSON
// object despite instructions, by slicing from the first '{' to the last '}'.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// Tier is the deterministic match tier assigned to a curator-scored
// candidate.
type Tier string

const (
	TierStrong   Tier = "strong_match"
	TierModerate Tier = "moderate_match"
	TierNone     Tier = "no_match"
)

// Classify applies the deterministic tiering rule from a curator score.
func Classify(s model.CuratorScore) Tier {
	total := s.Total()
	switch {
	case s.GenreFit == 2 && s.ToneFit == 2:
		return TierStrong
	case total >= 5 && s.GenreFit >= 1:
		return TierStrong
	case total >= 3 && total <= 4 && s.GenreFit >= 1:
		return TierModerate
	default:
		return TierNone
	}
}

// Select applies the tier-count-based selection table to an already-ranked
// candidate list (order within each tier is preserved).
func Select(candidates []model.Candidate, tiers map[int64]Tier, limit int) []model.Candidate {
	var strongs, moderates []model.Candidate
	for _, c := range candidates {
		switch tiers[c.MediaID] {
		case TierStrong:
			strongs = append(strongs, c)
		case TierModerate:
			moderates = append(moderates, c)
		}
	}

	n := len(strongs)
	var out []model.Candidate
	switch {
	case n >= limit:
		out = append(out, strongs[:limit]...)
	case n >= 5:
		out = append(out, strongs...)
	case n >= 3:
		out = append(out, strongs...)
		out = append(out, capped(moderates, 2)...)
	case n >= 1:
		out = append(out, strongs...)
		out = append(out, capped(moderates, 4)...)
	default:
		out = append(out, capped(moderates, 5)...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func capped(items []model.Candidate, n int) []model.Candidate {
	if len(items) > n {
		return items[:n]
	}
	return items
}
