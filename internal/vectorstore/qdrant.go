// Package vectorstore implements component B: dense and sparse top-K
// retrieval against Qdrant's two movie/tv collections, each with two named
// vectors per point.
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"reelix/internal/bm25"
	"reelix/internal/config"
	"reelix/internal/errs"
	"reelix/internal/model"
)

const (
	denseVectorName  = "dense_vector"
	sparseVectorName = "sparse_vector"
)

// Filter is the shared conjunctive filter for dense and sparse search.
type Filter struct {
	GenresAnyOf    []string
	ProviderIDsAny []int
	YearMin        int
	YearMax        int
	MustNotIDs     []int64
}

// Result is one retrieved item plus the payload fields downstream scoring
// needs.
type Result struct {
	MediaID int64
	Score   float64
	Payload model.Payload
}

// Store is the Qdrant-backed implementation of the Vector Retriever.
type Store struct {
	client      *qdrant.Client
	movieColl   string
	tvColl      string
	callBudget  time.Duration
}

// New connects to Qdrant at cfg.URL and ensures both collections exist with
// the required named vectors and payload indexes.
func New(ctx context.Context, cfg config.QdrantConfig) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}
	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	qcfg := &qdrant.Config{Host: host, Port: port, UseTLS: u.Scheme == "https"}
	if cfg.APIKey != "" {
		qcfg.APIKey = cfg.APIKey
	}
	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}

	s := &Store{client: client, movieColl: cfg.MovieColl, tvColl: cfg.TVColl, callBudget: cfg.CallBudget}
	for _, coll := range []string{cfg.MovieColl, cfg.TVColl} {
		if err := s.ensureCollection(ctx, coll, cfg.DenseDim); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string, denseDim int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			denseVectorName: {Size: uint64(denseDim), Distance: qdrant.Distance_Cosine},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			sparseVectorName: {Index: &qdrant.SparseIndexConfig{}},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	for _, field := range []struct {
		name string
		kind qdrant.FieldType
	}{
		{"media_id", qdrant.FieldType_FieldTypeInteger},
		{"title", qdrant.FieldType_FieldTypeKeyword},
		{"release_year", qdrant.FieldType_FieldTypeInteger},
		{"genres", qdrant.FieldType_FieldTypeKeyword},
		{"watch_providers", qdrant.FieldType_FieldTypeInteger},
	} {
		kind := field.kind
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field.name,
			FieldType:      &kind,
		}); err != nil {
			return fmt.Errorf("index %s.%s: %w", name, field.name, err)
		}
	}
	return nil
}

func (s *Store) collectionFor(mt model.MediaType) string {
	if mt == model.MediaTV {
		return s.tvColl
	}
	return s.movieColl
}

func buildFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if len(f.GenresAnyOf) > 0 {
		must = append(must, qdrant.NewMatchKeywords("genres", f.GenresAnyOf...))
	}
	if len(f.ProviderIDsAny) > 0 {
		ids := make([]int64, len(f.ProviderIDsAny))
		for i, p := range f.ProviderIDsAny {
			ids[i] = int64(p)
		}
		must = append(must, qdrant.NewMatchInts("watch_providers", ids...))
	}
	yearMin, yearMax := f.YearMin, f.YearMax
	if yearMin > yearMax {
		yearMin, yearMax = yearMax, yearMin
	}
	if yearMin != 0 || yearMax != 0 {
		must = append(must, qdrant.NewRange("release_year", &qdrant.Range{
			Gte: qdrant.PtrOf(float64(yearMin)),
			Lte: qdrant.PtrOf(float64(yearMax)),
		}))
	}
	var mustNot []*qdrant.Condition
	for _, id := range f.MustNotIDs {
		mustNot = append(mustNot, qdrant.NewMatchInt("media_id", id))
	}
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must, MustNot: mustNot}
}

// Dense performs nearest-neighbor search against the dense field.
func (s *Store) Dense(ctx context.Context, mt model.MediaType, vec []float64, filter Filter, limit int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callBudget)
	defer cancel()
	f32 := make([]float32, len(vec))
	for i, v := range vec {
		f32[i] = float32(v)
	}
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionFor(mt),
		Query:          qdrant.NewQuery(f32...),
		Using:          qdrant.PtrOf(denseVectorName),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.New(errs.KindRetrievalUnavailable, "dense search failed", err)
	}
	return toResults(resp), nil
}

// Sparse performs sparse search using the BM25 indices/values.
func (s *Store) Sparse(ctx context.Context, mt model.MediaType, vec bm25.SparseVector, filter Filter, limit int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callBudget)
	defer cancel()
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionFor(mt),
		Query:          qdrant.NewQuerySparse(vec.Indices, vec.Values),
		Using:          qdrant.PtrOf(sparseVectorName),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.New(errs.KindRetrievalUnavailable, "sparse search failed", err)
	}
	return toResults(resp), nil
}

func toResults(points []*qdrant.ScoredPoint) []Result {
	out := make([]Result, 0, len(points))
	for _, p := range points {
		out = append(out, Result{
			MediaID: payloadInt(p.Payload, "media_id"),
			Score:   float64(p.Score),
			Payload: model.Payload{
				Title:         payloadStr(p.Payload, "title"),
				ReleaseYear:   int(payloadInt(p.Payload, "release_year")),
				Genres:        payloadStrList(p.Payload, "genres"),
				Overview:      payloadStr(p.Payload, "overview"),
				Providers:     payloadIntList(p.Payload, "watch_providers"),
				VoteAverage:   payloadFloat(p.Payload, "vote_average"),
				VoteCount:     int(payloadInt(p.Payload, "vote_count")),
				Popularity:    payloadFloat(p.Payload, "popularity"),
				Collection:    payloadStr(p.Payload, "collection"),
				EmbeddingText: payloadStr(p.Payload, "embedding_text"),
			},
		})
	}
	return out
}

func payloadStr(m map[string]*qdrant.Value, key string) string {
	if v, ok := m[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(m map[string]*qdrant.Value, key string) int64 {
	if v, ok := m[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func payloadFloat(m map[string]*qdrant.Value, key string) float64 {
	if v, ok := m[key]; ok {
		return v.GetDoubleValue()
	}
	return 0
}

func payloadStrList(m map[string]*qdrant.Value, key string) []string {
	v, ok := m[key]
	if !ok || v.GetListValue() == nil {
		return nil
	}
	out := make([]string, 0, len(v.GetListValue().Values))
	for _, item := range v.GetListValue().Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

func payloadIntList(m map[string]*qdrant.Value, key string) []int {
	v, ok := m[key]
	if !ok || v.GetListValue() == nil {
		return nil
	}
	out := make([]int, 0, len(v.GetListValue().Values))
	for _, item := range v.GetListValue().Values {
		out = append(out, int(item.GetIntegerValue()))
	}
	return out
}
