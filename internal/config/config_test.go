package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvIntFallsBackToDefaultWhenUnsetOrInvalid(t *testing.T) {
	require.Equal(t, 8, envInt("REELIX_TEST_ENV_INT_UNSET", 8))

	t.Setenv("REELIX_TEST_ENV_INT", "not-a-number")
	require.Equal(t, 8, envInt("REELIX_TEST_ENV_INT", 8))

	t.Setenv("REELIX_TEST_ENV_INT", "42")
	require.Equal(t, 42, envInt("REELIX_TEST_ENV_INT", 8))
}

func TestEnvBoolAcceptsCommonTruthyForms(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes", "Yes"} {
		t.Setenv("REELIX_TEST_ENV_BOOL", v)
		require.True(t, envBool("REELIX_TEST_ENV_BOOL"), "expected %q to be truthy", v)
	}
	t.Setenv("REELIX_TEST_ENV_BOOL", "0")
	require.False(t, envBool("REELIX_TEST_ENV_BOOL"))
}

func TestEnvDurationFallsBackOnParseFailure(t *testing.T) {
	t.Setenv("REELIX_TEST_ENV_DURATION", "nonsense")
	require.Equal(t, 5*time.Second, envDuration("REELIX_TEST_ENV_DURATION", 5*time.Second))

	t.Setenv("REELIX_TEST_ENV_DURATION", "250ms")
	require.Equal(t, 250*time.Millisecond, envDuration("REELIX_TEST_ENV_DURATION", 5*time.Second))
}

func TestFirstNonEmptyPicksFirstNonBlank(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	require.Equal(t, "", firstNonEmpty("", "   "))
}

func TestSplitCSVTrimsAndDropsEmpties(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, b ,,c"))
	require.Nil(t, splitCSV("  "))
}

func TestLoadDefaultsDefaultNumRecsToEight(t *testing.T) {
	t.Setenv("DEFAULT_NUM_RECS", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8, cfg.DefaultNumRecs)
}
