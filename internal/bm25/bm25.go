// Package bm25 implements query-time BM25 sparse vector encoding against a
// persisted vocabulary and corpus statistics.
package bm25

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Stats are the corpus-level statistics required to weight query terms. They
// are produced by the offline indexing pipeline (out of scope here) and
// loaded read-only at startup.
type Stats struct {
	// Vocabulary maps a stemmed token to its stable integer index.
	Vocabulary map[string]int
	// IDF maps a stemmed token to its inverse document frequency.
	IDF map[string]float64
	// AvgDL is the average document length (in unique-after-stem tokens)
	// across the corpus.
	AvgDL float64
}

const (
	k1         = 1.2
	bQuery     = 0 // query length must not penalize the query itself
	maxQueryTF = 3
)

// statsFile is the on-disk shape written by the offline indexing pipeline.
type statsFile struct {
	Vocabulary map[string]int     `json:"vocabulary"`
	IDF        map[string]float64 `json:"idf"`
	AvgDL      float64            `json:"avg_dl"`
}

// LoadStats reads persisted vocabulary/IDF/avg-doc-length statistics from a
// JSON file produced by the offline indexing pipeline. An empty path yields
// empty Stats, so a fresh deployment can start up before the first index run
// has produced one.
func LoadStats(path string) (Stats, error) {
	if path == "" {
		return Stats{Vocabulary: map[string]int{}, IDF: map[string]float64{}}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read bm25 stats %q: %w", path, err)
	}
	var sf statsFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return Stats{}, fmt.Errorf("decode bm25 stats %q: %w", path, err)
	}
	return Stats{Vocabulary: sf.Vocabulary, IDF: sf.IDF, AvgDL: sf.AvgDL}, nil
}

// SparseVector is a sorted-by-index (indices, values) pair.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// Encode produces the query-time BM25 sparse vector for text. Encoding the
// same text twice with the same Stats is byte-for-byte identical.
func Encode(stats Stats, text string) SparseVector {
	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	uniqueLen := 0
	seen := map[string]struct{}{}
	for _, t := range tokens {
		tf[t]++
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			uniqueLen++
		}
	}

	type entry struct {
		idx uint32
		val float32
	}
	entries := make([]entry, 0, len(tf))
	for term, rawTF := range tf {
		idx, ok := stats.Vocabulary[term]
		if !ok {
			continue
		}
		idf, ok := stats.IDF[term]
		if !ok {
			continue
		}
		t := float64(rawTF)
		if t > maxQueryTF {
			t = maxQueryTF
		}
		denom := t + k1*(1-bQuery+bQuery*float64(uniqueLen)/avgDLOrOne(stats.AvgDL))
		weight := idf * t * (k1 + 1) / denom
		entries = append(entries, entry{idx: uint32(idx), val: float32(weight)})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	indices := make([]uint32, len(entries))
	values := make([]float32, len(entries))
	for i, e := range entries {
		indices[i] = e.idx
		values[i] = e.val
	}
	return SparseVector{Indices: indices, Values: values}
}

func avgDLOrOne(avgdl float64) float64 {
	if avgdl <= 0 {
		return 1
	}
	return avgdl
}

// P95Positive returns the 95th percentile of the positive values in scores.
// The metadata reranker computes the same percentile with its own p95Positive.
func P95Positive(scores []float64) float64 {
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
