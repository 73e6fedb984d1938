// Package rerank implements the metadata-rerank half of component C: per
// feature scoring clamped to [0,1], combined into a weighted metadata score.
package rerank

import (
	"math"
	"sort"
	"time"

	"reelix/internal/config"
	"reelix/internal/fusion"
	"reelix/internal/model"
)

const (
	bayesianPriorMu = 7.0
	bayesianPriorM  = 2000.0

	movieRatingFloor = 6.0
	movieRatingCeil  = 9.0
	tvRatingFloor    = 7.0
	tvRatingCeil     = 9.0

	moviePopAnchor = 31.0
	tvPopAnchor    = 58.0
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Features is the set of per-feature contributions, already clamped to
// [0,1].
type Features struct {
	Dense      float64
	Sparse     float64
	Rating     float64
	Popularity float64
	Genre      float64
	Recency    float64
}

func bayesianRating(voteAverage float64, voteCount int) float64 {
	v := float64(voteCount)
	return (v/(v+bayesianPriorM))*voteAverage + (bayesianPriorM/(v+bayesianPriorM))*bayesianPriorMu
}

func ratingFeature(mt model.MediaType, voteAverage float64, voteCount int) float64 {
	smoothed := bayesianRating(voteAverage, voteCount)
	floor, ceil := movieRatingFloor, movieRatingCeil
	if mt == model.MediaTV {
		floor, ceil = tvRatingFloor, tvRatingCeil
	}
	if ceil == floor {
		return 0
	}
	return clamp01((smoothed - floor) / (ceil - floor))
}

func popularityFeature(mt model.MediaType, popularity float64) float64 {
	anchor := moviePopAnchor * 1.15
	if mt == model.MediaTV {
		anchor = tvPopAnchor * 1.15
	}
	if popularity < 0 {
		popularity = 0
	}
	num := math.Log1p(popularity)
	den := math.Log1p(anchor)
	if den == 0 {
		return 0
	}
	return clamp01(math.Pow(num/den, 0.6))
}

func sparseFeature(raw, p95 float64) float64 {
	if raw <= 0 || p95 <= 0 {
		return 0
	}
	return clamp01(math.Log1p(raw) / math.Log1p(p95))
}

func genreFeature(userGenres, itemGenres []string) float64 {
	if len(userGenres) == 0 {
		return 1 // no penalty when the user has no genre signal
	}
	userSet := make(map[string]struct{}, len(userGenres))
	for _, g := range userGenres {
		userSet[g] = struct{}{}
	}
	overlap := 0
	for _, g := range itemGenres {
		if _, ok := userSet[g]; ok {
			overlap++
		}
	}
	return clamp01(float64(overlap) / float64(len(userGenres)))
}

func recencyFeature(releaseYear int, now time.Time, halfLifeYears float64) float64 {
	if halfLifeYears <= 0 {
		return 0
	}
	age := float64(now.Year() - releaseYear)
	if age < 0 {
		age = 0
	}
	lambda := math.Ln2 / halfLifeYears
	return clamp01(math.Exp(-lambda * age))
}

// Scored is one pooled candidate with computed features and a final
// metadata score.
type Scored struct {
	Pooled  fusion.Pooled
	Features Features
	Score   float64
}

// Rerank computes per-feature values and the weighted metadata score for
// every pooled candidate, sorted descending by score.
func Rerank(pool []fusion.Pooled, mediaType model.MediaType, userGenres []string, weights config.PipelineWeights, now time.Time) []Scored {
	sparseRaws := make([]float64, len(pool))
	for i, p := range pool {
		sparseRaws[i] = p.SparseRaw
	}
	p95 := p95Positive(sparseRaws)

	out := make([]Scored, 0, len(pool))
	for _, p := range pool {
		f := Features{
			Dense:      clamp01(p.DenseScore),
			Sparse:     sparseFeature(p.SparseRaw, p95),
			Rating:     ratingFeature(mediaType, p.Payload.Payload.VoteAverage, p.Payload.Payload.VoteCount),
			Popularity: popularityFeature(mediaType, p.Payload.Payload.Popularity),
			Genre:      genreFeature(userGenres, p.Payload.Payload.Genres),
			Recency:    recencyFeature(p.Payload.Payload.ReleaseYear, now, 0),
		}
		score := weights.Dense*f.Dense + weights.Sparse*f.Sparse + weights.Rating*f.Rating +
			weights.Popularity*f.Popularity + weights.Genre*f.Genre + weights.Recency*f.Recency
		out = append(out, Scored{Pooled: p, Features: f, Score: score})
	}

	sortScoredDesc(out)
	return out
}

func sortScoredDesc(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Pooled.MediaID < s[j].Pooled.MediaID
	})
}

func p95Positive(scores []float64) float64 {
	positive := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s > 0 {
			positive = append(positive, s)
		}
	}
	if len(positive) == 0 {
		return 0
	}
	sort.Float64s(positive)
	idx := int(math.Ceil(0.95*float64(len(positive)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(positive) {
		idx = len(positive) - 1
	}
	return positive[idx]
}
