// Package genai adapts google.golang.org/genai to the llm.Provider contract.
package genai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"reelix/internal/llm"
)

type Client struct {
	sdk *genai.Client
}

func New(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	sdk, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{sdk: sdk}, nil
}

func splitSystem(msgs []llm.Message) (system string, rest []llm.Message) {
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func adaptContents(msgs []llm.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		var parts []*genai.Part
		switch m.Role {
		case "assistant":
			role = "model"
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Args, &args)
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, args))
			}
		case "tool":
			role = "user"
			parts = append(parts, genai.NewPartFromFunctionResponse(m.ToolID, map[string]any{"result": m.Content}))
		default:
			parts = append(parts, genai.NewPartFromText(m.Content))
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func adaptTools(tools []llm.ToolSchema) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  genai.SchemaFromJSONSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, llm.Usage, error) {
	system, rest := splitSystem(msgs)
	cfg := &genai.GenerateContentConfig{Tools: adaptTools(tools)}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}}
	}
	resp, err := c.sdk.Models.GenerateContent(ctx, model, adaptContents(rest), cfg)
	if err != nil {
		return llm.Message{}, llm.Usage{}, fmt.Errorf("genai chat: %w", err)
	}
	out := llm.Message{Role: "assistant"}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				out.Content += p.Text
			}
			if p.FunctionCall != nil {
				args, _ := json.Marshal(p.FunctionCall.Args)
				out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: p.FunctionCall.Name, Args: args, ID: p.FunctionCall.Name})
			}
		}
	}
	var usage llm.Usage
	if resp.UsageMetadata != nil {
		usage = llm.Usage{PromptTokens: int(resp.UsageMetadata.PromptTokenCount), CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount)}
	}
	return out, usage, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	system, rest := splitSystem(msgs)
	cfg := &genai.GenerateContentConfig{Tools: adaptTools(tools)}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}}
	}
	for chunk, err := range c.sdk.Models.GenerateContentStream(ctx, model, adaptContents(rest), cfg) {
		if err != nil {
			return fmt.Errorf("genai chat stream: %w", err)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, p := range chunk.Candidates[0].Content.Parts {
			if p.Text != "" {
				h.OnDelta(p.Text)
			}
			if p.FunctionCall != nil {
				args, _ := json.Marshal(p.FunctionCall.Args)
				h.OnToolCall(llm.ToolCall{Name: p.FunctionCall.Name, Args: args, ID: p.FunctionCall.Name})
			}
		}
	}
	return nil
}
