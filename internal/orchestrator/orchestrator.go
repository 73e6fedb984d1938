// Package orchestrator implements component I: the per-turn LLM
// tool-calling loop that routes a user message into either a chat reply or
// a structured recommendation-engine invocation.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reelix/internal/errs"
	"reelix/internal/llm"
	"reelix/internal/model"
)

const maxSteps = 3

// Orchestrator drives the LLM decision half of one turn: chat, or a
// structured recommendation-engine invocation. It does not itself run the
// pipeline/curator/session-store calls — those are orchestrated by the
// caller so it can interleave SSE events around the heavier F+E work.
type Orchestrator struct {
	Provider llm.Provider
	Model    string
}

// Decision is the outcome of the tool-calling loop.
type Decision struct {
	TurnMode       model.TurnMode
	ChatMessage    string
	Spec           model.RecQuerySpec
	TurnKind       model.TurnKind
	RecentFeedback string
	OpeningSummary string
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(
		"You are a movie and TV recommendation orchestrator. The current year is %d. "+
			"Decide whether the user's message needs the recommendation_agent tool or a "+
			"plain conversational reply. Call the tool only when the user wants a slate of "+
			"titles or a refinement of one.", now.Year())
}

func memorySystemMessage(state *model.SessionState) string {
	if state == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("SESSION MEMORY\n")
	fmt.Fprintf(&b, "turn_kind: %s\n", state.Summary.TurnKind)
	if state.Summary.RecentFeedback != "" {
		fmt.Fprintf(&b, "recent_feedback: %s\n", state.Summary.RecentFeedback)
	}
	if state.LastSpec != nil {
		fmt.Fprintf(&b, "last_spec.query_text: %s\n", state.LastSpec.QueryText)
		fmt.Fprintf(&b, "last_spec.core_genres: %s\n", strings.Join(state.LastSpec.CoreGenres, ", "))
	}
	if len(state.SlotMap) > 0 {
		b.WriteString("slots:\n")
		for slot, e := range state.SlotMap {
			fmt.Fprintf(&b, "  %s: %s (%d)\n", slot, e.Title, e.ReleaseYear)
		}
	}
	return b.String()
}

// Decide executes the bounded tool-calling loop for one turn.
func (o *Orchestrator) Decide(ctx context.Context, userMessage string, priorState *model.SessionState) (Decision, error) {
	schema, err := BuildToolSchema()
	if err != nil {
		return Decision{}, errs.New(errs.KindInternal, "tool schema build failed", err)
	}

	now := time.Now()
	msgs := []llm.Message{{Role: "system", Content: systemPrompt(now)}}
	if mem := memorySystemMessage(priorState); mem != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: mem})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userMessage})

	for step := 0; step < maxSteps; step++ {
		resp, _, err := o.Provider.Chat(ctx, msgs, []llm.ToolSchema{schema}, o.Model)
		if err != nil {
			return Decision{}, errs.New(errs.KindLLMTransientError, "orchestrator chat failed", err)
		}

		if len(resp.ToolCalls) == 0 {
			return Decision{TurnMode: model.TurnModeChat, ChatMessage: resp.Content}, nil
		}

		tc := resp.ToolCalls[0]
		if tc.Name != toolName {
			msgs = append(msgs, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
			msgs = append(msgs, llm.Message{Role: "tool", Content: fmt.Sprintf("unknown tool %q", tc.Name), ToolID: tc.ID})
			continue
		}

		var args ToolArgs
		if err := json.Unmarshal(tc.Args, &args); err != nil {
			return Decision{}, errs.New(errs.KindLLMValidationError, "tool call args decode failed", err)
		}

		turnKind := model.TurnKind(args.MemoryDelta.TurnKind)
		if turnKind == "" {
			turnKind = model.TurnKindNew
		}

		return Decision{
			TurnMode:       model.TurnModeRecs,
			Spec:           specFromArgs(args),
			TurnKind:       turnKind,
			RecentFeedback: args.MemoryDelta.RecentFeedback,
			OpeningSummary: args.OpeningSummary,
		}, nil
	}

	return Decision{TurnMode: model.TurnModeChat, ChatMessage: "I wasn't able to settle on a plan for that — could you rephrase?"}, nil
}

func specFromArgs(args ToolArgs) model.RecQuerySpec {
	spec := model.RecQuerySpec{
		QueryText:      args.RecQuerySpec.QueryText,
		MediaType:      model.MediaType(args.RecQuerySpec.MediaType),
		CoreGenres:     args.RecQuerySpec.CoreGenres,
		SubGenres:      args.RecQuerySpec.SubGenres,
		CoreTone:       args.RecQuerySpec.CoreTone,
		NarrativeShape: args.RecQuerySpec.NarrativeShape,
		KeyThemes:      args.RecQuerySpec.KeyThemes,
		ExcludeGenres:  args.RecQuerySpec.ExcludeGenres,
		Providers:      args.RecQuerySpec.Providers,
		SeedTitles:     args.RecQuerySpec.SeedTitles,
		NumRecs:        args.RecQuerySpec.NumRecs,
	}
	if args.RecQuerySpec.YearRange != nil {
		start, end := args.RecQuerySpec.YearRange.Start, args.RecQuerySpec.YearRange.End
		if start < 1970 {
			start = 1970
		}
		if end > 2100 {
			end = 2100
		}
		if start <= end {
			spec.YearRange = &model.YearRange{Start: start, End: end}
		}
	}
	return spec
}
