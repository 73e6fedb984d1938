// Package config loads process configuration for the discovery core from
// environment variables (with .env overlay) and an optional YAML weights
// file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RedisConfig configures the Redis-compatible store backing both the
// session store and the ticket store.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	TLSInsecureSkipVerify bool
	SessionSlidingTTL     time.Duration
	SessionAbsoluteTTL    time.Duration
	TicketSlidingTTL      time.Duration
	TicketAbsoluteTTL     time.Duration
}

// QdrantConfig configures the vector store client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	DenseDim   int
	MovieColl  string
	TVColl     string
	CallBudget time.Duration
}

// LLMRoleConfig configures one LLM role (orchestrator, curator, why-streamer,
// reflection). Provider is one of "openai", "anthropic", "genai".
type LLMRoleConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// LLMConfig groups per-role LLM settings plus shared retry policy.
type LLMConfig struct {
	Orchestrator   LLMRoleConfig
	Curator        LLMRoleConfig
	WhyStreamer    LLMRoleConfig
	Reflection     LLMRoleConfig
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// ObsConfig configures OpenTelemetry tracing.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// KafkaConfig configures the fire-and-forget event logging relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PipelineWeights holds the metadata-rerank feature weights, overridable via
// YAML. Defaults match the spec's metadata rerank formula.
type PipelineWeights struct {
	Dense      float64 `yaml:"dense"`
	Sparse     float64 `yaml:"sparse"`
	Rating     float64 `yaml:"rating"`
	Popularity float64 `yaml:"popularity"`
	Genre      float64 `yaml:"genre"`
	Recency    float64 `yaml:"recency"`
}

// PipelineConfig holds the pipeline defaults and feature-flagged stages.
type PipelineConfig struct {
	MetaTopN           int             `yaml:"meta_top_n"`
	FinalTopK          int             `yaml:"final_top_k"`
	RRFK               int             `yaml:"rrf_k"`
	Weights            PipelineWeights `yaml:"weights"`
	CrossEncoderRerank bool            `yaml:"cross_encoder_rerank"`
}

type Config struct {
	Host     string
	Port     int
	LogPath  string
	LogLevel string

	Redis  RedisConfig
	Qdrant QdrantConfig
	LLM    LLMConfig
	Obs    ObsConfig
	Kafka  KafkaConfig

	MaxOrchestratorSteps int
	ReflectionTimeout    time.Duration
	BM25StatsPath        string
	DefaultNumRecs       int

	Pipeline PipelineConfig
}

// Load populates Config from the environment (after overlaying a local .env
// file, if present) and, if REELIX_WEIGHTS_FILE names a readable file,
// merges pipeline weight overrides from it.
func Load() (Config, error) {
	if err := godotenv.Overload(); err != nil {
		_ = godotenv.Overload("example.env")
	}

	cfg := Config{
		Host:     firstNonEmpty(os.Getenv("HOST"), "0.0.0.0"),
		Port:     envInt("PORT", 8080),
		LogPath:  os.Getenv("LOG_PATH"),
		LogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),

		Redis: RedisConfig{
			Addr:                  firstNonEmpty(os.Getenv("REDIS_ADDR"), "localhost:6379"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    envInt("REDIS_DB", 0),
			TLSInsecureSkipVerify: envBool("REDIS_TLS_INSECURE_SKIP_VERIFY"),
			SessionSlidingTTL:     envDuration("SESSION_SLIDING_TTL", 24*time.Hour),
			SessionAbsoluteTTL:    envDuration("SESSION_ABSOLUTE_TTL", 7*24*time.Hour),
			TicketSlidingTTL:      envDuration("TICKET_SLIDING_TTL", 15*time.Minute),
			TicketAbsoluteTTL:     envDuration("TICKET_ABSOLUTE_TTL", 60*time.Minute),
		},

		Qdrant: QdrantConfig{
			URL:        firstNonEmpty(os.Getenv("QDRANT_URL"), "http://localhost:6334"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			DenseDim:   envInt("QDRANT_DENSE_DIM", 768),
			MovieColl:  firstNonEmpty(os.Getenv("QDRANT_MOVIE_COLLECTION"), "movies"),
			TVColl:     firstNonEmpty(os.Getenv("QDRANT_TV_COLLECTION"), "tv"),
			CallBudget: envDuration("QDRANT_CALL_BUDGET", 3*time.Second),
		},

		LLM: LLMConfig{
			Orchestrator:   loadRole("ORCHESTRATOR", 20*time.Second),
			Curator:        loadRole("CURATOR", 30*time.Second),
			WhyStreamer:    loadRole("WHY", 60*time.Second),
			Reflection:     loadRole("REFLECTION", 10*time.Second),
			MaxRetries:     envInt("LLM_MAX_RETRIES", 2),
			RetryBaseDelay: envDuration("LLM_RETRY_BASE_DELAY", 500*time.Millisecond),
		},

		Obs: ObsConfig{
			OTLP:           os.Getenv("OTLP_ENDPOINT"),
			ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "reelix-discovery"),
			ServiceVersion: firstNonEmpty(os.Getenv("OTEL_SERVICE_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("ENVIRONMENT"), "development"),
		},

		Kafka: KafkaConfig{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   firstNonEmpty(os.Getenv("KAFKA_EVENTLOG_TOPIC"), "reelix.discovery.events"),
		},

		MaxOrchestratorSteps: envInt("MAX_ORCHESTRATOR_STEPS", 3),
		ReflectionTimeout:    envDuration("REFLECTION_TIMEOUT", 10*time.Second),
		BM25StatsPath:        os.Getenv("BM25_STATS_FILE"),
		DefaultNumRecs:       envInt("DEFAULT_NUM_RECS", 8),

		Pipeline: PipelineConfig{
			MetaTopN:  envInt("PIPELINE_META_TOP_N", 100),
			FinalTopK: envInt("PIPELINE_FINAL_TOP_K", 12),
			RRFK:      envInt("PIPELINE_RRF_K", 60),
			Weights: PipelineWeights{
				Dense: 0.60, Sparse: 0.10, Rating: 0.18, Popularity: 0.12, Genre: 0.00, Recency: 0,
			},
			CrossEncoderRerank: envBool("PIPELINE_CROSS_ENCODER_RERANK"),
		},
	}

	if wf := os.Getenv("REELIX_WEIGHTS_FILE"); wf != "" {
		if b, err := os.ReadFile(wf); err == nil {
			var override struct {
				Pipeline PipelineConfig `yaml:"pipeline"`
			}
			// Seed with the current values so keys absent from the file keep them.
			override.Pipeline = cfg.Pipeline
			if err := yaml.Unmarshal(b, &override); err != nil {
				return cfg, fmt.Errorf("parse weights file %q: %w", wf, err)
			}
			if override.Pipeline.MetaTopN > 0 {
				cfg.Pipeline = override.Pipeline
			}
		}
	}

	return cfg, nil
}

func loadRole(prefix string, defaultTimeout time.Duration) LLMRoleConfig {
	return LLMRoleConfig{
		Provider: firstNonEmpty(os.Getenv(prefix+"_LLM_PROVIDER"), os.Getenv("LLM_PROVIDER"), "openai"),
		Model:    firstNonEmpty(os.Getenv(prefix+"_LLM_MODEL"), os.Getenv("LLM_MODEL"), "gpt-4o-mini"),
		BaseURL:  os.Getenv(prefix + "_LLM_BASE_URL"),
		APIKey:   firstNonEmpty(os.Getenv(prefix+"_LLM_API_KEY"), os.Getenv("OPENAI_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("GOOGLE_LLM_API_KEY")),
		Timeout:  envDuration(prefix+"_LLM_TIMEOUT", defaultTimeout),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
