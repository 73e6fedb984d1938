// Package runner implements component F: adapting a structured query spec
// and user taste context into a pipeline (D) call, including the refine-turn
// novelty penalty. Curator scoring (E) is not run here; the HTTP layer runs
// it on the returned candidates.
package runner

import (
	"context"
	"sort"
	"time"

	"reelix/internal/catalog"
	"reelix/internal/config"
	"reelix/internal/curator"
	"reelix/internal/model"
	"reelix/internal/pipeline"
	"reelix/internal/vectorstore"
)

const defaultYearMin = 1970

// ContextLog captures what the runner derived from the taste context, for
// logging and for the curator opening prompt.
type ContextLog struct {
	UserGenres        []string
	UserKeywords      []string
	ActiveProviderIDs []int
	FilterMode        string
}

// Output is the runner's result: scored candidates, their traces, and the
// derived context log.
type Output struct {
	Candidates []model.Candidate
	Traces     []model.ScoreTrace
	CtxLog     ContextLog
}

// Runner ties components A-D together behind the recommendation-turn entry
// point the HTTP layer calls. Run does not use the Curator field.
type Runner struct {
	Pipeline  *pipeline.Pipeline
	Curator   *curator.Evaluator
	Weights   config.PipelineWeights
	MetaTopN  int
	FinalTopK int
	VecK      int
}

// Run executes one recommendation-runner call.
func (r *Runner) Run(ctx context.Context, spec model.RecQuerySpec, taste model.UserTasteContext, seenMediaIDs []int64, turnKind model.TurnKind, now time.Time) (Output, error) {
	yearMin, yearMax := defaultYearMin, now.Year()
	if spec.YearRange != nil {
		yearMin, yearMax = spec.YearRange.Start, spec.YearRange.End
	}

	providerIDs := taste.ActiveProviderIDs
	if len(spec.Providers) > 0 {
		providerIDs = catalog.ResolveProviderIDs(ctx, spec.Providers)
	}

	filter := vectorstore.Filter{
		GenresAnyOf:    spec.CoreGenres,
		ProviderIDsAny: providerIDs,
		YearMin:        yearMin,
		YearMax:        yearMax,
	}

	mediaType := model.MediaMovie
	if spec.MediaType == model.MediaTV {
		mediaType = model.MediaTV
	}

	ftK := r.VecK
	if ftK <= 0 {
		ftK = 200
	}

	out, err := r.Pipeline.Run(ctx, pipeline.Input{
		MediaType:  mediaType,
		QueryText:  spec.QueryText,
		Filter:     filter,
		FtK:        ftK,
		VecK:       ftK,
		UserGenres: taste.LikedGenres,
		Weights:    r.Weights,
		MetaTopN:   r.MetaTopN,
		FinalTopK:  r.FinalTopK,
	})
	if err != nil {
		return Output{}, err
	}

	candidates := out.Candidates
	traces := out.Traces

	if turnKind == model.TurnKindRefine {
		seen := make(map[int64]struct{}, len(seenMediaIDs))
		for _, id := range seenMediaIDs {
			seen[id] = struct{}{}
		}
		traceByID := make(map[int64]*model.ScoreTrace, len(traces))
		for i := range traces {
			traceByID[traces[i].MediaID] = &traces[i]
		}
		for i := range candidates {
			if _, ok := seen[candidates[i].MediaID]; ok {
				if t, ok := traceByID[candidates[i].MediaID]; ok {
					t.FinalScore *= 0.9
				}
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			ti, tj := traceByID[candidates[i].MediaID], traceByID[candidates[j].MediaID]
			if ti == nil || tj == nil {
				return false
			}
			return ti.FinalScore > tj.FinalScore
		})
	}

	filterMode := "open"
	if len(providerIDs) > 0 {
		filterMode = "provider_restricted"
	}

	ctxLog := ContextLog{
		UserGenres:        taste.LikedGenres,
		UserKeywords:      taste.LikedKeywords,
		ActiveProviderIDs: providerIDs,
		FilterMode:        filterMode,
	}

	return Output{Candidates: candidates, Traces: traces, CtxLog: ctxLog}, nil
}
