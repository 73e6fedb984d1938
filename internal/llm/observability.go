package llm

import (
	"context"

	"reelix/internal/observability"
)

// RecordUsage logs token accounting for one call. This is span-adjacent
// ambient logging, not a telemetry sink: the fire-and-forget analytics
// relay (internal/eventlog) is the out-of-scope collaborator for that.
func RecordUsage(ctx context.Context, role, model string, u Usage) {
	observability.LoggerWithTrace(ctx).Debug().
		Str("role", role).
		Str("model", model).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Msg("llm_usage")
}
