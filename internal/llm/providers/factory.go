// Package providers builds a concrete llm.Provider for a configured role.
package providers

import (
	"context"
	"fmt"

	"reelix/internal/config"
	"reelix/internal/llm"
	"reelix/internal/llm/anthropic"
	"reelix/internal/llm/genai"
	"reelix/internal/llm/openai"
)

// Build constructs the provider named by cfg.Provider ("openai", "anthropic",
// or "genai").
func Build(ctx context.Context, cfg config.LLMRoleConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return anthropic.New(cfg.APIKey, cfg.BaseURL), nil
	case "genai":
		return genai.New(ctx, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
