package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRerunPatchDistinguishesAbsentNullAndValue(t *testing.T) {
	t.Parallel()

	t.Run("empty patch leaves both fields unset", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(json.RawMessage(`{}`))
		require.NoError(t, err)
		require.False(t, set["providers"])
		require.False(t, set["year_range"])
		require.Nil(t, patch.Providers)
		require.Nil(t, patch.YearRange)
	})

	t.Run("providers present as null", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(json.RawMessage(`{"providers":null}`))
		require.NoError(t, err)
		require.True(t, set["providers"])
		require.Nil(t, patch.Providers)
	})

	t.Run("providers present with a value", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(json.RawMessage(`{"providers":["netflix","hulu"]}`))
		require.NoError(t, err)
		require.True(t, set["providers"])
		require.NotNil(t, patch.Providers)
		require.Equal(t, []string{"netflix", "hulu"}, *patch.Providers)
	})

	t.Run("year_range present as null", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(json.RawMessage(`{"year_range":null}`))
		require.NoError(t, err)
		require.True(t, set["year_range"])
		require.Nil(t, patch.YearRange)
	})

	t.Run("year_range present with a pair", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(json.RawMessage(`{"year_range":[2010,2020]}`))
		require.NoError(t, err)
		require.True(t, set["year_range"])
		require.NotNil(t, patch.YearRange)
		require.Equal(t, [2]int{2010, 2020}, *patch.YearRange)
	})

	t.Run("only one field provided leaves the other untouched", func(t *testing.T) {
		t.Parallel()
		_, set, err := decodeRerunPatch(json.RawMessage(`{"providers":["netflix"]}`))
		require.NoError(t, err)
		require.True(t, set["providers"])
		require.False(t, set["year_range"])
	})

	t.Run("empty raw message yields no fields set", func(t *testing.T) {
		t.Parallel()
		patch, set, err := decodeRerunPatch(nil)
		require.NoError(t, err)
		require.Nil(t, set)
		require.Nil(t, patch.Providers)
	})

	t.Run("malformed patch returns an error", func(t *testing.T) {
		t.Parallel()
		_, _, err := decodeRerunPatch(json.RawMessage(`{"providers":`))
		require.Error(t, err)
	})
}
