// Package config loads the process-wide configuration surface from
// environment variables (optionally via a .env overlay), mirroring the
// teacher's internal/config loader: read every env var with
// strings.TrimSpace(os.Getenv(...)) and apply it only when non-empty, so
// zero-value defaults survive unset variables. No vocabulary or gate file
// is read; the per-type gate table comes from DefaultGates.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProviderConfig describes one entry in the LLM Router's fallback chain.
type ProviderConfig struct {
	Name          string // "anthropic" | "openai" | "google"
	Endpoint      string
	APIKey        string
	Model         string
	InputPricePM  float64 // price per 1e6 input tokens
	OutputPricePM float64 // price per 1e6 output tokens
	RateLimitRPM  int
}

// EmbeddingConfig configures the embedding provider used by C7.
type EmbeddingConfig struct {
	BaseURL   string
	Path      string
	APIKey    string
	APIHeader string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// VectorStoreConfig configures the qdrant-backed vector store client.
type VectorStoreConfig struct {
	DSN        string
	Collection string
	Dimension  int
	Metric     string
}

// RerankerConfig configures the local cross-encoder reranker endpoint.
type RerankerConfig struct {
	Enabled bool
	Host    string
	Model   string
}

// RetrievalConfig holds the hybrid-retrieval tuning knobs (§4.9, §6).
type RetrievalConfig struct {
	Alpha         float64 // dense/sparse mix weight, default 0.6
	MMRLambda     float64 // default 0.5
	TopKDefault   int
	HyDEEnabled   bool
	ConfidenceTau float64 // rerank score threshold, default 0.3
	MinCoverage   int     // default 2
	MinTop        float64 // default 0.4
}

// TimeoutsConfig holds per-stage outbound call deadlines (§5).
type TimeoutsConfig struct {
	Enrichment time.Duration
	Embedding  time.Duration
	VectorOp   time.Duration
	Synthesis  time.Duration
	OCRPerPage time.Duration
	Extraction time.Duration
}

// ExportConfig configures canonical export (§4.13, §6).
type ExportConfig struct {
	Root       string
	FlatNames  bool // flat "YYYY-MM-DD__type__slug__shortid.md" vs nested "{type}/{yyyy-mm-dd}/..."
	ArchiveDir string
}

// Config is the full process configuration surface.
type Config struct {
	Providers               []ProviderConfig
	Embedding               EmbeddingConfig
	VectorStore             VectorStoreConfig
	Reranker                RerankerConfig
	Retrieval               RetrievalConfig
	Timeouts                TimeoutsConfig
	Export                  ExportConfig
	VocabularyDir           string
	DailyBudgetUSD          float64
	NearDupHammingThreshold int
	LogLevel                string
	LedgerPath              string
}

// Load reads configuration from the environment, overlaying a .env file if
// present in the working directory.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Retrieval: RetrievalConfig{
			Alpha:         0.6,
			MMRLambda:     0.5,
			TopKDefault:   8,
			ConfidenceTau: 0.3,
			MinCoverage:   2,
			MinTop:        0.4,
		},
		Timeouts: TimeoutsConfig{
			Enrichment: 30 * time.Second,
			Embedding:  20 * time.Second,
			VectorOp:   10 * time.Second,
			Synthesis:  60 * time.Second,
			OCRPerPage: 120 * time.Second,
			Extraction: 60 * time.Second,
		},
		Export: ExportConfig{
			Root:      "vault",
			FlatNames: true,
		},
		NearDupHammingThreshold: 3,
		LogLevel:                "info",
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("VOCABULARY_DIR")); v != "" {
		cfg.VocabularyDir = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORT_ROOT")); v != "" {
		cfg.Export.Root = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPORT_FLAT_NAMES")); v != "" {
		cfg.Export.FlatNames = v == "1" || v == "true"
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_DIR")); v != "" {
		cfg.Export.ArchiveDir = v
	}
	if v := strings.TrimSpace(os.Getenv("COST_LEDGER_PATH")); v != "" {
		cfg.LedgerPath = v
	}
	if v := strings.TrimSpace(os.Getenv("DAILY_BUDGET_USD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DailyBudgetUSD = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("NEAR_DUP_HAMMING_THRESHOLD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NearDupHammingThreshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RETRIEVAL_ALPHA")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.Alpha = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("MMR_LAMBDA")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.MMRLambda = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOPK_DEFAULT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopKDefault = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HYDE_ENABLED")); v != "" {
		cfg.Retrieval.HyDEEnabled = v == "1" || v == "true"
	}

	// Embedding provider.
	cfg.Embedding.BaseURL = strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL"))
	cfg.Embedding.Path = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_PATH")), "/v1/embeddings")
	cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY"))
	cfg.Embedding.APIHeader = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_API_HEADER")), "Authorization")
	cfg.Embedding.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")), "text-embedding-3-small")
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_DIMENSION")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = n
		}
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1536
	}
	cfg.Embedding.Timeout = cfg.Timeouts.Embedding

	// Vector store.
	cfg.VectorStore.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_DSN")), "http://localhost:6334")
	cfg.VectorStore.Collection = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")), "documents")
	cfg.VectorStore.Dimension = cfg.Embedding.Dimension
	cfg.VectorStore.Metric = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_METRIC")), "cosine")

	// Reranker.
	cfg.Reranker.Host = strings.TrimSpace(os.Getenv("RERANKER_HOST"))
	cfg.Reranker.Model = strings.TrimSpace(os.Getenv("RERANKER_MODEL"))
	cfg.Reranker.Enabled = cfg.Reranker.Host != ""

	// Providers: PROVIDER_CHAIN is a comma-separated ordered list of names;
	// each name's credentials/model/pricing are read from NAME_-prefixed vars.
	chain := strings.TrimSpace(os.Getenv("PROVIDER_CHAIN"))
	if chain == "" {
		chain = "anthropic,openai,google"
	}
	for _, name := range strings.Split(chain, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		pc := providerFromEnv(name)
		if pc.APIKey == "" {
			continue // skip providers with no configured credential
		}
		cfg.Providers = append(cfg.Providers, pc)
	}

	return cfg, nil
}

func providerFromEnv(name string) ProviderConfig {
	prefix := strings.ToUpper(name)
	pc := ProviderConfig{Name: name}
	pc.APIKey = strings.TrimSpace(os.Getenv(prefix + "_API_KEY"))
	pc.Endpoint = strings.TrimSpace(os.Getenv(prefix + "_BASE_URL"))
	pc.Model = strings.TrimSpace(os.Getenv(prefix + "_MODEL"))
	if v := strings.TrimSpace(os.Getenv(prefix + "_INPUT_PRICE_PM")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			pc.InputPricePM = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "_OUTPUT_PRICE_PM")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			pc.OutputPricePM = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "_RATE_LIMIT_RPM")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pc.RateLimitRPM = n
		}
	}
	return pc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
