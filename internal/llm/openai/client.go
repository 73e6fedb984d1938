// Package openai adapts github.com/openai/openai-go/v2 to the llm.Provider
// contract.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog/log"

	"reelix/internal/llm"
)

// Client wraps the OpenAI chat-completions API.
type Client struct {
	sdk sdk.Client
}

// New builds a Client. baseURL may be empty to use the default API host.
func New(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...)}
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "user":
			out = append(out, sdk.UserMessage(m.Content))
		case "tool":
			out = append(out, sdk.ToolMessage(m.Content, m.ToolID))
		default: // assistant
			if len(m.ToolCalls) == 0 {
				out = append(out, sdk.AssistantMessage(m.Content))
				continue
			}
			calls := make([]sdk.ChatCompletionMessageToolCallUnionParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, sdk.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &sdk.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: sdk.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Args),
						},
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{
				OfAssistant: &sdk.ChatCompletionAssistantMessageParam{
					Content:   sdk.ChatCompletionAssistantMessageParamContentUnion{OfString: sdk.String(m.Content)},
					ToolCalls: calls,
				},
			})
		}
	}
	return out
}

func adaptSchemas(tools []llm.ToolSchema) []sdk.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.ChatCompletionFunctionTool(sdk.FunctionDefinitionParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			Parameters:  sdk.FunctionParameters(t.Parameters),
		}))
	}
	return out
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, llm.Usage, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    model,
		Messages: adaptMessages(msgs),
		Tools:    adaptSchemas(tools),
	}
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Message{}, llm.Usage{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(comp.Choices) == 0 {
		return llm.Message{}, llm.Usage{}, fmt.Errorf("openai chat: no choices returned")
	}
	choice := comp.Choices[0]
	out := llm.Message{Role: "assistant", Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		fn := tc.Function
		if fn.Name == "" || isEmptyArgs(fn.Arguments) {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: fn.Name, Args: json.RawMessage(fn.Arguments), ID: tc.ID})
	}
	usage := llm.Usage{PromptTokens: int(comp.Usage.PromptTokens), CompletionTokens: int(comp.Usage.CompletionTokens)}
	return out, usage, nil
}

func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	params := sdk.ChatCompletionNewParams{
		Model:    model,
		Messages: adaptMessages(msgs),
		Tools:    adaptSchemas(tools),
	}
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	pending := map[int64]*llm.ToolCall{}
	var order []int64

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			h.OnDelta(choice.Delta.Content)
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := tc.Index
			cur, ok := pending[idx]
			if !ok {
				cur = &llm.ToolCall{}
				pending[idx] = cur
				order = append(order, idx)
			}
			if tc.ID != "" {
				cur.ID = tc.ID
			}
			if tc.Function.Name != "" {
				cur.Name = tc.Function.Name
			}
			cur.Args = append(cur.Args, []byte(tc.Function.Arguments)...)
		}
		if choice.FinishReason != "" {
			for _, idx := range order {
				tc := pending[idx]
				if tc.Name != "" && !isEmptyArgsBytes(tc.Args) {
					h.OnToolCall(*tc)
				}
			}
			pending = map[int64]*llm.ToolCall{}
			order = nil
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai chat stream: %w", err)
	}
	log.Ctx(ctx).Debug().Str("model", model).Msg("openai_stream_complete")
	return nil
}

func isEmptyArgs(s string) bool {
	return s == "" || s == "{}" || s == "null"
}

func isEmptyArgsBytes(b []byte) bool {
	return isEmptyArgs(string(b))
}
