// Package encoder implements component A: encoding user text into a dense
// embedding and a sparse BM25 vector, run concurrently.
package encoder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"reelix/internal/bm25"
	"reelix/internal/model"
)

// DenseEncoder is the external embedding-model collaborator. The offline
// embedding pipeline that trains/serves it is out of scope; this interface
// is all component A demands of it.
type DenseEncoder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Encoded is the dual encoding of one query.
type Encoded struct {
	Dense  []float64
	Sparse bm25.SparseVector
}

// Encoder produces Encoded values for a query string.
type Encoder struct {
	dense DenseEncoder
	stats bm25.Stats
}

func New(dense DenseEncoder, stats bm25.Stats) *Encoder {
	return &Encoder{dense: dense, stats: stats}
}

// EncodeQuery runs the dense and sparse encodes concurrently; result ordering
// between the two is irrelevant, only that both complete (or the dense call
// fails the whole query — retrieval cannot proceed without a dense vector).
func (e *Encoder) EncodeQuery(ctx context.Context, text string, _ model.MediaType) (Encoded, error) {
	var out Encoded
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.dense.Embed(gctx, text)
		if err != nil {
			return fmt.Errorf("dense encode: %w", err)
		}
		out.Dense = v
		return nil
	})
	g.Go(func() error {
		out.Sparse = bm25.Encode(e.stats, text)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Encoded{}, err
	}
	return out, nil
}
