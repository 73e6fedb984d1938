// Package pipeline implements component D: orchestrating the query encoder,
// vector retriever, RRF pool, metadata rerank, and diversification into a
// ranked candidate list with score traces.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"reelix/internal/config"
	"reelix/internal/encoder"
	"reelix/internal/errs"
	"reelix/internal/fusion"
	"reelix/internal/model"
	"reelix/internal/observability"
	"reelix/internal/rerank"
	"reelix/internal/vectorstore"
)

// Input is one pipeline call's parameters.
type Input struct {
	MediaType  model.MediaType
	QueryText  string
	Filter     vectorstore.Filter
	FtK        int
	VecK       int
	UserGenres []string
	Weights    config.PipelineWeights
	MetaTopN   int
	FinalTopK  int
}

// Output is the pipeline's result: the final ranked slate plus its score
// traces.
type Output struct {
	Candidates []model.Candidate
	Traces     []model.ScoreTrace
}

// Pipeline ties components A-C together over concrete encoder and
// vector-store clients. Run keeps no per-call state on the Pipeline, so
// concurrent calls do not interfere.
type Pipeline struct {
	Encoder *encoder.Encoder
	Store   *vectorstore.Store
	RRFK    int
}

// Run executes one recommendation-pipeline call.
func (p *Pipeline) Run(ctx context.Context, in Input) (Output, error) {
	enc, err := p.Encoder.EncodeQuery(ctx, in.QueryText, in.MediaType)
	if err != nil {
		return Output{}, errs.New(errs.KindRetrievalUnavailable, "query encode failed", err)
	}

	var dense, sparse []vectorstore.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := p.Store.Dense(gctx, in.MediaType, enc.Dense, in.Filter, in.VecK)
		if err != nil {
			return err
		}
		dense = r
		return nil
	})
	sparseErrCh := make(chan error, 1)
	g.Go(func() error {
		r, err := p.Store.Sparse(gctx, in.MediaType, enc.Sparse, in.Filter, in.FtK)
		if err != nil {
			// partial results: dense OK, sparse failed proceeds with an
			// empty sparse list and a warning, per component B's contract.
			sparseErrCh <- err
			return nil
		}
		sparse = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return Output{}, err
	}
	close(sparseErrCh)
	if err := <-sparseErrCh; err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("sparse retrieval failed; continuing with dense results only")
		sparse = nil
	}

	pool := fusion.RRF(dense, sparse, p.RRFK)

	metaTopN := in.MetaTopN
	if metaTopN <= 0 {
		metaTopN = 100
	}
	scored := rerank.Rerank(pool, in.MediaType, in.UserGenres, in.Weights, time.Now())
	if len(scored) > metaTopN {
		scored = scored[:metaTopN]
	}

	keys := make([]string, len(scored))
	for i, s := range scored {
		keys[i] = s.Pooled.Payload.Payload.Collection
	}
	div := fusion.Diversify(keys, 1)

	finalTopK := in.FinalTopK
	if finalTopK <= 0 {
		finalTopK = 12
	}

	candidates := make([]model.Candidate, 0, finalTopK)
	traces := make([]model.ScoreTrace, 0, len(scored))
	kept := 0
	for _, idx := range div.KeptIndices {
		s := scored[idx]
		trace := model.ScoreTrace{
			MediaID:    s.Pooled.MediaID,
			DenseRank:  s.Pooled.DenseRank,
			SparseRank: s.Pooled.SparseRank,
			Features: map[string]float64{
				"dense": s.Features.Dense, "sparse": s.Features.Sparse, "rating": s.Features.Rating,
				"popularity": s.Features.Popularity, "genre": s.Features.Genre, "recency": s.Features.Recency,
			},
			Weights: map[string]float64{
				"dense": in.Weights.Dense, "sparse": in.Weights.Sparse, "rating": in.Weights.Rating,
				"popularity": in.Weights.Popularity, "genre": in.Weights.Genre, "recency": in.Weights.Recency,
			},
			MetadataScore: s.Score,
			FinalScore:    s.Score,
		}
		traces = append(traces, trace)
		if kept < finalTopK {
			dense := s.Pooled.DenseScore
			sparseRaw := s.Pooled.SparseRaw
			candidates = append(candidates, model.Candidate{
				MediaID:     s.Pooled.MediaID,
				MediaType:   in.MediaType,
				Payload:     s.Pooled.Payload.Payload,
				DenseScore:  &dense,
				SparseScore: &sparseRaw,
			})
			kept++
		}
	}
	for _, idx := range div.PrunedIndices {
		s := scored[idx]
		traces = append(traces, model.ScoreTrace{
			MediaID:         s.Pooled.MediaID,
			MetadataScore:   s.Score,
			FinalScore:      s.Score,
			DiversityPruned: true,
		})
	}

	return Output{Candidates: candidates, Traces: traces}, nil
}
