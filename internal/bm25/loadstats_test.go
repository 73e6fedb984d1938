package bm25

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadStatsEmptyPathYieldsEmptyStats(t *testing.T) {
	t.Parallel()

	s, err := LoadStats("")
	require.NoError(t, err)
	require.Empty(t, s.Vocabulary)
	require.Empty(t, s.IDF)
}

func TestLoadStatsReadsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")
	content := `{"vocabulary":{"space":0,"heist":1},"idf":{"space":1.2,"heist":3.4},"avg_dl":12.5}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadStats(path)
	require.NoError(t, err)
	require.Equal(t, 0, s.Vocabulary["space"])
	require.Equal(t, 1, s.Vocabulary["heist"])
	require.InDelta(t, 3.4, s.IDF["heist"], 1e-9)
	require.InDelta(t, 12.5, s.AvgDL, 1e-9)
}

func TestLoadStatsMissingFileErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadStats(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
