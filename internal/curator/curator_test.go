package curator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reelix/internal/model"
)

func TestClassifyStrongOnPerfectGenreAndTone(t *testing.T) {
	t.Parallel()

	tier := Classify(model.CuratorScore{GenreFit: 2, ToneFit: 2, StructureFit: 0, ThemeFit: 0})
	require.Equal(t, TierStrong, tier)
}

func TestClassifyStrongOnHighTotalWithGenre(t *testing.T) {
	t.Parallel()

	tier := Classify(model.CuratorScore{GenreFit: 1, ToneFit: 2, StructureFit: 1, ThemeFit: 1})
	require.Equal(t, TierStrong, tier)
}

func TestClassifyModerateOnMidTotalWithGenre(t *testing.T) {
	t.Parallel()

	tier := Classify(model.CuratorScore{GenreFit: 1, ToneFit: 1, StructureFit: 1, ThemeFit: 0})
	require.Equal(t, TierModerate, tier)
}

func TestClassifyNoneWithoutGenreFit(t *testing.T) {
	t.Parallel()

	tier := Classify(model.CuratorScore{GenreFit: 0, ToneFit: 2, StructureFit: 2, ThemeFit: 2})
	require.Equal(t, TierNone, tier)
}

func TestSelectFillsFromStrongFirstThenModerate(t *testing.T) {
	t.Parallel()

	candidates := []model.Candidate{
		{MediaID: 1}, {MediaID: 2}, {MediaID: 3}, {MediaID: 4}, {MediaID: 5}, {MediaID: 6},
	}
	tiers := map[int64]Tier{
		1: TierStrong,
		2: TierModerate,
		3: TierModerate,
		4: TierModerate,
		5: TierNone,
		6: TierModerate,
	}

	// n=1 strong falls into the "n >= 1" row: all strongs plus up to 4
	// moderates, in input order.
	out := Select(candidates, tiers, 5)
	require.Len(t, out, 5)
	ids := make([]int64, len(out))
	for i, c := range out {
		ids[i] = c.MediaID
	}
	require.Equal(t, []int64{1, 2, 3, 4, 6}, ids)
}

func TestSelectCapsAtLimitWhenStrongsExceedIt(t *testing.T) {
	t.Parallel()

	candidates := []model.Candidate{{MediaID: 1}, {MediaID: 2}, {MediaID: 3}}
	tiers := map[int64]Tier{1: TierStrong, 2: TierStrong, 3: TierStrong}

	out := Select(candidates, tiers, 2)
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].MediaID)
	require.Equal(t, int64(2), out[1].MediaID)
}

func TestSelectFallsBackToModeratesOnlyWhenNoStrongs(t *testing.T) {
	t.Parallel()

	candidates := []model.Candidate{{MediaID: 1}, {MediaID: 2}, {MediaID: 3}}
	tiers := map[int64]Tier{1: TierModerate, 2: TierModerate, 3: TierNone}

	out := Select(candidates, tiers, 5)
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].MediaID)
	require.Equal(t, int64(2), out[1].MediaID)
}

func TestExtractJSONTrimsSurroundingProse(t *testing.T) {
	t.Parallel()

	raw := "here you go: {\"evaluation_results\":[]} thanks!"
	require.Equal(t, `{"evaluation_results":[]}`, extractJSON(raw))
}

func TestExtractJSONReturnsInputWithoutBraces(t *testing.T) {
	t.Parallel()

	require.Equal(t, "no json here", extractJSON("no json here"))
}

func TestClamp02(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, clamp02(-3))
	require.Equal(t, 2, clamp02(9))
	require.Equal(t, 1, clamp02(1))
}
