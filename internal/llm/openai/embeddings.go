package openai

import (
	"context"
	"fmt"

	sdk "github.com/openai/openai-go/v2"
)

// EmbeddingModel is the model used for query-time dense embedding. Fixed at
// 768 dimensions to match the vector store's dense field.
const EmbeddingModel = "text-embedding-3-small"

// Embed satisfies encoder.DenseEncoder.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model:          EmbeddingModel,
		Input:          sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(text)},
		Dimensions:     sdk.Int(768),
		EncodingFormat: sdk.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: no data returned")
	}
	return resp.Data[0].Embedding, nil
}
