package fusion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reelix/internal/vectorstore"
)

func TestRRFOrdersByCombinedReciprocalRank(t *testing.T) {
	t.Parallel()

	dense := []vectorstore.Result{
		{MediaID: 1, Score: 0.9},
		{MediaID: 2, Score: 0.8},
		{MediaID: 3, Score: 0.7},
	}
	sparse := []vectorstore.Result{
		{MediaID: 2, Score: 5.0},
		{MediaID: 1, Score: 3.0},
	}

	pooled := RRF(dense, sparse, 60)
	require.Len(t, pooled, 3)
	// id 2 is rank 2 dense + rank 1 sparse; id 1 is rank 1 dense + rank 2
	// sparse. Both ranks sum to 3, so id 2 and id 1 tie on RRF and the
	// tie-break falls to ascending media id.
	require.Equal(t, int64(1), pooled[0].MediaID)
	require.Equal(t, int64(2), pooled[1].MediaID)
	require.Equal(t, int64(3), pooled[2].MediaID)
	require.Greater(t, pooled[0].RRF, pooled[2].RRF)
}

func TestRRFIncludesSparseOnlyHits(t *testing.T) {
	t.Parallel()

	dense := []vectorstore.Result{{MediaID: 1, Score: 0.9}}
	sparse := []vectorstore.Result{{MediaID: 99, Score: 2.0}}

	pooled := RRF(dense, sparse, 60)
	require.Len(t, pooled, 2)

	var found bool
	for _, p := range pooled {
		if p.MediaID == 99 {
			found = true
			require.Equal(t, 0, p.DenseRank)
			require.Equal(t, 1, p.SparseRank)
		}
	}
	require.True(t, found, "sparse-only candidate must appear in the pool")
}

func TestRRFDefaultsKWhenNonPositive(t *testing.T) {
	t.Parallel()

	dense := []vectorstore.Result{{MediaID: 1, Score: 0.5}}
	withDefault := RRF(dense, nil, 0)
	withExplicit := RRF(dense, nil, 60)
	require.Equal(t, withExplicit[0].RRF, withDefault[0].RRF)
}

func TestDiversifyCapsPerCollection(t *testing.T) {
	t.Parallel()

	keys := []string{"franchise-a", "franchise-a", "franchise-a", "franchise-b", ""}
	res := Diversify(keys, 2)

	require.Equal(t, []int{0, 1, 3, 4}, res.KeptIndices)
	require.Equal(t, []int{2}, res.PrunedIndices)
}

func TestDiversifyTreatsEmptyKeyAsAlwaysUnique(t *testing.T) {
	t.Parallel()

	keys := []string{"", "", "", ""}
	res := Diversify(keys, 1)

	require.Equal(t, []int{0, 1, 2, 3}, res.KeptIndices)
	require.Empty(t, res.PrunedIndices)
}

func TestDiversifyDefaultsCapWhenNonPositive(t *testing.T) {
	t.Parallel()

	keys := []string{"a", "a"}
	res := Diversify(keys, 0)

	require.Equal(t, []int{0}, res.KeptIndices)
	require.Equal(t, []int{1}, res.PrunedIndices)
}
