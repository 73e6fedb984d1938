package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildToolSchemaNamesTheRecommendationAgent(t *testing.T) {
	t.Parallel()

	schema, err := BuildToolSchema()
	require.NoError(t, err)
	require.Equal(t, "recommendation_agent", schema.Name)
	require.NotEmpty(t, schema.Description)
	require.NotEmpty(t, schema.Parameters)
}

func TestBuildToolSchemaExposesRecQuerySpecProperties(t *testing.T) {
	t.Parallel()

	schema, err := BuildToolSchema()
	require.NoError(t, err)

	props, ok := schema.Parameters["properties"].(map[string]any)
	require.True(t, ok, "schema must declare top-level properties")
	require.Contains(t, props, "rec_query_spec")
	require.Contains(t, props, "memory_delta")
	require.Contains(t, props, "opening_summary")
}
