// Package fusion implements the pool-formation half of component C:
// Reciprocal Rank Fusion over dense and sparse result lists, and hard-cap
// collection diversification.
package fusion

import (
	"sort"

	"reelix/internal/vectorstore"
)

// Pooled is one candidate after RRF, still carrying both raw scores and
// rank positions for the reranker.
type Pooled struct {
	MediaID    int64
	DenseRank  int // 1-based; 0 if absent
	SparseRank int
	DenseScore float64 // raw cosine, 0 if absent
	SparseRaw  float64 // raw sparse score, 0 if absent
	RRF        float64
	Payload    vectorstore.Result
}

// RRF computes Reciprocal Rank Fusion over a dense list and a sparse list.
// score(id) = sum 1/(k + rank_in_list); the pool is the union of ids with
// positive RRF.
func RRF(dense, sparse []vectorstore.Result, k int) []Pooled {
	if k <= 0 {
		k = 60
	}
	densePos := make(map[int64]int, len(dense))
	denseByID := make(map[int64]vectorstore.Result, len(dense))
	for i, r := range dense {
		densePos[r.MediaID] = i + 1
		denseByID[r.MediaID] = r
	}
	sparsePos := make(map[int64]int, len(sparse))
	sparseByID := make(map[int64]vectorstore.Result, len(sparse))
	for i, r := range sparse {
		sparsePos[r.MediaID] = i + 1
		sparseByID[r.MediaID] = r
	}

	seen := map[int64]struct{}{}
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, r := range dense {
		add(r.MediaID)
	}
	for _, r := range sparse {
		add(r.MediaID)
	}

	out := make([]Pooled, 0, len(ids))
	for _, id := range ids {
		dr := densePos[id]
		sr := sparsePos[id]
		var score float64
		if dr > 0 {
			score += 1.0 / float64(k+dr)
		}
		if sr > 0 {
			score += 1.0 / float64(k+sr)
		}
		p := Pooled{MediaID: id, DenseRank: dr, SparseRank: sr, RRF: score}
		if dres, ok := denseByID[id]; ok {
			p.DenseScore = dres.Score
			p.Payload = dres
		}
		if sres, ok := sparseByID[id]; ok {
			p.SparseRaw = sres.Score
			if p.Payload.MediaID == 0 {
				p.Payload = sres
			}
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RRF != out[j].RRF {
			return out[i].RRF > out[j].RRF
		}
		return out[i].MediaID < out[j].MediaID
	})
	return out
}

// DiversifyResult is the outcome of hard-cap diversification: the kept
// ordered slice plus a trace of pruned indices (positions in the input
// slice, in the order they were pruned).
type DiversifyResult struct {
	KeptIndices   []int
	PrunedIndices []int
}

// Diversify groups items by collection key (descending input score order,
// so callers must pre-sort by metadata score) and keeps at most `cap` per
// group. Items with an empty collection key get a synthetic unique key so
// solo titles never collide.
func Diversify(collectionKeys []string, cap int) DiversifyResult {
	if cap <= 0 {
		cap = 1
	}
	counts := map[string]int{}
	var res DiversifyResult
	for i, key := range collectionKeys {
		if key == "" {
			res.KeptIndices = append(res.KeptIndices, i)
			continue
		}
		if counts[key] < cap {
			counts[key]++
			res.KeptIndices = append(res.KeptIndices, i)
		} else {
			res.PrunedIndices = append(res.PrunedIndices, i)
		}
	}
	return res
}
