// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// llm.Provider contract.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"reelix/internal/llm"
)

type Client struct {
	sdk sdk.Client
}

func New(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...)}
}

const defaultMaxTokens = 2048

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

func adaptMessages(msgs []llm.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "user":
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "tool":
			out = append(out, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolID, m.Content, false)))
		default: // assistant
			blocks := []sdk.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args any
				_ = json.Unmarshal(tc.Args, &args)
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return out
}

func adaptSchemas(tools []llm.ToolSchema) []sdk.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				InputSchema: sdk.ToolInputSchemaParam{Properties: t.Parameters["properties"]},
			},
		})
	}
	return out
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, llm.Usage, error) {
	system, rest := splitSystem(msgs)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages:  adaptMessages(rest),
		Tools:     adaptSchemas(tools),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Message{}, llm.Usage{}, fmt.Errorf("anthropic chat: %w", err)
	}
	out := llm.Message{Role: "assistant"}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case sdk.TextBlock:
			out.Content += variant.Text
		case sdk.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: variant.Name, Args: args, ID: variant.ID})
		}
	}
	usage := llm.Usage{PromptTokens: int(resp.Usage.InputTokens), CompletionTokens: int(resp.Usage.OutputTokens)}
	return out, usage, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	system, rest := splitSystem(msgs)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages:  adaptMessages(rest),
		Tools:     adaptSchemas(tools),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	stream := c.sdk.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	pending := map[int64]*llm.ToolCall{}
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case sdk.ContentBlockStartEvent:
			if tu, ok := variant.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
				pending[variant.Index] = &llm.ToolCall{Name: tu.Name, ID: tu.ID}
			}
		case sdk.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case sdk.TextDelta:
				h.OnDelta(delta.Text)
			case sdk.InputJSONDelta:
				if tc, ok := pending[variant.Index]; ok {
					tc.Args = append(tc.Args, []byte(delta.PartialJSON)...)
				}
			}
		case sdk.ContentBlockStopEvent:
			if tc, ok := pending[variant.Index]; ok {
				h.OnToolCall(*tc)
				delete(pending, variant.Index)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic chat stream: %w", err)
	}
	return nil
}
