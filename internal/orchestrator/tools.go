package orchestrator

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reelix/internal/llm"
)

// ToolArgs is the argument shape for the single `recommendation_agent` tool
// the orchestrator exposes to the LLM. Field tags drive jsonschema
// generation so the wire schema and the Go decode target never drift.
type ToolArgs struct {
	RecQuerySpec struct {
		QueryText      string   `json:"query_text" jsonschema:"the user's vibe query, verbatim or lightly normalized"`
		MediaType      string   `json:"media_type" jsonschema:"enum=movie,enum=tv"`
		CoreGenres     []string `json:"core_genres"`
		SubGenres      []string `json:"sub_genres,omitempty"`
		CoreTone       string   `json:"core_tone,omitempty"`
		NarrativeShape string   `json:"narrative_shape,omitempty"`
		KeyThemes      []string `json:"key_themes,omitempty"`
		ExcludeGenres  []string `json:"exclude_genres,omitempty"`
		Providers      []string `json:"providers,omitempty"`
		YearRange      *struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"year_range,omitempty"`
		SeedTitles []string `json:"seed_titles,omitempty"`
		NumRecs    int      `json:"num_recs"`
	} `json:"rec_query_spec"`
	MemoryDelta struct {
		TurnKind       string `json:"turn_kind" jsonschema:"enum=new,enum=refine,enum=chat"`
		RecentFeedback string `json:"recent_feedback,omitempty"`
	} `json:"memory_delta"`
	OpeningSummary string `json:"opening_summary" jsonschema:"exactly two sentences, 220 characters or fewer"`
}

const toolName = "recommendation_agent"
const toolDescription = "Run the hybrid recommendation engine against a structured query spec and return a curated opening for the resulting slate."

// BuildToolSchema generates the recommendation_agent tool schema from
// ToolArgs via reflection, wrapped in an mcp.Tool definition so the schema
// shape matches what a Model Context Protocol tool registration would
// produce.
func BuildToolSchema() (llm.ToolSchema, error) {
	schema, err := jsonschema.For[ToolArgs](nil)
	if err != nil {
		return llm.ToolSchema{}, err
	}
	tool := &mcp.Tool{Name: toolName, Description: toolDescription, InputSchema: schema}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return llm.ToolSchema{}, err
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return llm.ToolSchema{}, err
	}
	return llm.ToolSchema{Name: tool.Name, Description: tool.Description, Parameters: params}, nil
}
