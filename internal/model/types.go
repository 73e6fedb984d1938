// Package model defines the data types shared across the discovery core:
// candidates, score traces, query specs, session state, tickets, and the
// orchestrator's per-turn working memory.
package model

import "time"

// MediaType is the closed set of media kinds this backend recommends.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Payload is the display/prompt-context data carried by a Candidate.
type Payload struct {
	Title          string    `json:"title"`
	ReleaseYear    int       `json:"release_year"`
	Genres         []string  `json:"genres"`
	Overview       string    `json:"overview"`
	Providers      []int     `json:"providers"`
	VoteAverage    float64   `json:"vote_average"`
	VoteCount      int       `json:"vote_count"`
	Popularity     float64   `json:"popularity"`
	Collection     string    `json:"collection,omitempty"`
	EmbeddingText  string    `json:"embedding_text"`
}

// Candidate is one retrieved item, owned by the pipeline for the duration of
// a turn.
type Candidate struct {
	MediaID     int64      `json:"media_id"`
	MediaType   MediaType  `json:"media_type"`
	Payload     Payload    `json:"payload"`
	DenseScore  *float64   `json:"dense_score,omitempty"`
	SparseScore *float64   `json:"sparse_score,omitempty"`
}

// ScoreTrace is the per-candidate audit record produced by the pipeline.
type ScoreTrace struct {
	MediaID         int64              `json:"media_id"`
	DenseRank       int                `json:"dense_rank,omitempty"`
	SparseRank      int                `json:"sparse_rank,omitempty"`
	Features        map[string]float64 `json:"features"`
	Weights         map[string]float64 `json:"weights"`
	MetadataScore   float64            `json:"metadata_score"`
	CuratorEval     *CuratorScore      `json:"curator_eval,omitempty"`
	Tier            string             `json:"tier,omitempty"`
	FinalScore      float64            `json:"final_score"`
	DiversityPruned bool               `json:"diversity_pruned,omitempty"`
}

// CuratorScore is the curator LLM's four-axis fit evaluation for one
// candidate.
type CuratorScore struct {
	GenreFit     int `json:"genre_fit"`
	ToneFit      int `json:"tone_fit"`
	StructureFit int `json:"structure_fit"`
	ThemeFit     int `json:"theme_fit"`
}

func (c CuratorScore) Total() int { return c.GenreFit + c.ToneFit + c.StructureFit + c.ThemeFit }

// YearRange is an inclusive, ordered [start, end] pair.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RecQuerySpec is the structured representation of the current user intent,
// built per turn by the orchestrator and immutable once passed to the
// runner.
type RecQuerySpec struct {
	QueryText      string     `json:"query_text"`
	MediaType      MediaType  `json:"media_type"`
	CoreGenres     []string   `json:"core_genres"`
	SubGenres      []string   `json:"sub_genres,omitempty"`
	CoreTone       string     `json:"core_tone,omitempty"`
	NarrativeShape string     `json:"narrative_shape,omitempty"`
	KeyThemes      []string   `json:"key_themes,omitempty"`
	ExcludeGenres  []string   `json:"exclude_genres,omitempty"`
	Providers      []string   `json:"providers,omitempty"`
	YearRange      *YearRange `json:"year_range,omitempty"`
	SeedTitles     []string   `json:"seed_titles,omitempty"`
	NumRecs        int        `json:"num_recs"`
}

// RecentInteraction is one timestamped taste signal.
type RecentInteraction struct {
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTasteContext is a read-only snapshot of a user's long-term
// preferences, produced by an external taste-profile service and consumed,
// never mutated, by the runner.
type UserTasteContext struct {
	TasteVector        []float64           `json:"taste_vector,omitempty"`
	PositiveCount      int                 `json:"positive_count"`
	NegativeCount      int                 `json:"negative_count"`
	LikedGenres        []string            `json:"liked_genres"`
	LikedKeywords      []string            `json:"liked_keywords"`
	RecentInteractions []RecentInteraction `json:"recent_interactions"`
	ActiveProviderIDs  []int               `json:"active_provider_ids"`
	ProviderFilterMode string              `json:"provider_filter_mode"`
}

// SessionSummary is the compact per-turn memory of the conversation.
type SessionSummary struct {
	TurnKind               string         `json:"turn_kind"`
	RecentFeedback         string         `json:"recent_feedback,omitempty"`
	LastUserMessage        string         `json:"last_user_message,omitempty"`
	LastAdminMessage       string         `json:"last_admin_message,omitempty"`
	Constraints            map[string]any `json:"constraints,omitempty"`
	Prefs                  map[string]any `json:"prefs,omitempty"`
	LastReflectionStrategy string         `json:"last_reflection_strategy,omitempty"`
}

// SlotEntry is one slate position resolvable by "#N" references.
type SlotEntry struct {
	MediaID     int64  `json:"media_id"`
	Title       string `json:"title"`
	ReleaseYear int    `json:"release_year"`
}

// SessionState is per-session durable memory.
type SessionState struct {
	UserID       string               `json:"user_id"`
	Summary      SessionSummary       `json:"summary"`
	LastSpec     *RecQuerySpec        `json:"last_spec,omitempty"`
	SlotMap      map[string]SlotEntry `json:"slot_map,omitempty"`
	SeenMediaIDs []int64              `json:"seen_media_ids,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

const SeenMediaIDsCap = 200

// PromptCall is one LLM call inside a PromptsEnvelope.
type PromptCall struct {
	CallID     string        `json:"call_id"`
	Messages   []CallMessage `json:"messages"`
	ItemsBrief []ItemBrief   `json:"items_brief"`
}

// CallMessage mirrors llm.Message in a JSON-stable shape for ticket storage.
type CallMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ItemBrief is the per-candidate prompt-context slice used by the
// why-explanation streamer.
type ItemBrief struct {
	MediaID       int64  `json:"media_id"`
	EmbeddingText string `json:"embedding_text"`
}

// PromptsEnvelope is the single-source-of-truth representation of one or
// more LLM calls, used both to reconstruct the WHY stream deterministically
// and to trace generation.
type PromptsEnvelope struct {
	Model      string         `json:"model"`
	Params     map[string]any `json:"params"`
	OutputFmt  string         `json:"output_format"`
	Calls      []PromptCall   `json:"calls"`
	PromptHash string         `json:"prompt_hash"`
}

// Ticket is the per-query prompt envelope backing the WHY stream.
type Ticket struct {
	UserID    string          `json:"user_id"`
	Prompts   PromptsEnvelope `json:"prompts"`
	CreatedAt time.Time       `json:"created_at"`
	Meta      map[string]any  `json:"meta,omitempty"`
}

// TurnMode distinguishes a chat reply from a structured recs turn.
type TurnMode string

const (
	TurnModeChat TurnMode = "chat"
	TurnModeRecs TurnMode = "recs"
)

// TurnKind classifies how a turn relates to prior session state.
type TurnKind string

const (
	TurnKindNew    TurnKind = "new"
	TurnKindRefine TurnKind = "refine"
	TurnKindChat   TurnKind = "chat"
)

// AgentState is the orchestrator's per-turn working memory; lifetime is one
// HTTP request.
type AgentState struct {
	UserID        string
	SessionID     string
	QueryID       string
	Messages      []ChatMessage
	SessionMemory *SessionState
	Candidates    []Candidate
	Traces        []ScoreTrace
	FinalRecs     []Candidate
	TurnMode      TurnMode
	TurnKind      TurnKind
	TurnMemory    map[string]any
	StepCount     int
	CuratorOpening string
}

// ChatMessage mirrors llm.Message to avoid a model->llm import cycle while
// keeping AgentState self-contained.
type ChatMessage struct {
	Role      string
	Content   string
	ToolID    string
	ToolCalls []ToolCallRef
}

// ToolCallRef mirrors llm.ToolCall for AgentState bookkeeping.
type ToolCallRef struct {
	Name string
	Args []byte
	ID   string
}
