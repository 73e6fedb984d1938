package rerank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reelix/internal/config"
	"reelix/internal/fusion"
	"reelix/internal/model"
	"reelix/internal/vectorstore"
)

func equalWeights() config.PipelineWeights {
	return config.PipelineWeights{Dense: 1, Sparse: 1, Rating: 1, Popularity: 1, Genre: 1, Recency: 1}
}

func TestRerankOrdersByWeightedScoreDescending(t *testing.T) {
	t.Parallel()

	pool := []fusion.Pooled{
		{MediaID: 1, DenseScore: 0.1, Payload: vectorstore.Result{Payload: model.Payload{VoteAverage: 6.0, VoteCount: 3000, Popularity: 5}}},
		{MediaID: 2, DenseScore: 0.9, Payload: vectorstore.Result{Payload: model.Payload{VoteAverage: 9.0, VoteCount: 3000, Popularity: 100}}},
	}
	weights := config.PipelineWeights{Dense: 1}

	scored := Rerank(pool, model.MediaMovie, nil, weights, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, scored, 2)
	require.Equal(t, int64(2), scored[0].Pooled.MediaID)
	require.Equal(t, int64(1), scored[1].Pooled.MediaID)
}

func TestRerankTieBreaksByAscendingMediaID(t *testing.T) {
	t.Parallel()

	pool := []fusion.Pooled{
		{MediaID: 5, DenseScore: 0.5},
		{MediaID: 2, DenseScore: 0.5},
	}
	scored := Rerank(pool, model.MediaMovie, nil, config.PipelineWeights{Dense: 1}, time.Now())
	require.Equal(t, int64(2), scored[0].Pooled.MediaID)
	require.Equal(t, int64(5), scored[1].Pooled.MediaID)
}

func TestGenreFeatureNoPenaltyWithoutUserSignal(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.0, genreFeature(nil, []string{"drama"}))
}

func TestGenreFeatureOverlapFraction(t *testing.T) {
	t.Parallel()

	got := genreFeature([]string{"drama", "comedy"}, []string{"drama"})
	require.InDelta(t, 0.5, got, 1e-9)
}

func TestRatingFeatureClampsToFloorAndCeiling(t *testing.T) {
	t.Parallel()

	// Very low vote average with a huge vote count pulls the Bayesian
	// estimate near the raw average, below the movie floor.
	require.Equal(t, 0.0, ratingFeature(model.MediaMovie, 1.0, 1_000_000))
	require.Equal(t, 1.0, ratingFeature(model.MediaMovie, 10.0, 1_000_000))
}

func TestPopularityFeatureIsMonotonicAndClamped(t *testing.T) {
	t.Parallel()

	low := popularityFeature(model.MediaMovie, 1)
	high := popularityFeature(model.MediaMovie, 1000)
	require.Less(t, low, high)
	require.LessOrEqual(t, high, 1.0)
	require.GreaterOrEqual(t, low, 0.0)
}

func TestPopularityFeatureClampsNegativeInput(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, popularityFeature(model.MediaMovie, -5))
}

func TestRecencyFeatureZeroWithoutHalfLife(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, recencyFeature(2020, time.Now(), 0))
}

func TestSparseFeatureZeroWhenRawOrP95NonPositive(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, sparseFeature(0, 5))
	require.Equal(t, 0.0, sparseFeature(5, 0))
}

func TestP95PositiveIgnoresNonPositiveValues(t *testing.T) {
	t.Parallel()

	got := p95Positive([]float64{-1, 0, 1, 2, 3, 4, 5})
	require.Equal(t, 5.0, got)
}

func TestP95PositiveEmptyReturnsZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, p95Positive(nil))
}
