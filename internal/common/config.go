package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Logging     LoggingConfig    `toml:"logging"`
	Commerce    CommerceConfig   `toml:"commerce"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	LLM         LLMConfig        `toml:"llm"`
	Indexing    IndexingConfig   `toml:"indexing"`
	Search      SearchConfig     `toml:"search"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Jobs        JobsConfig       `toml:"jobs"`
	// Accounts lists the connected stores this instance syncs. In a full
	// deployment these come from the account service; the static list covers
	// single-tenant and development setups.
	Accounts []StoreAccountConfig `toml:"accounts" validate:"dive"`
}

// StoreAccountConfig holds one connected store's platform credentials.
type StoreAccountConfig struct {
	StoreID       string `toml:"store_id" validate:"required"`
	AccessToken   string `toml:"access_token"`
	APIBaseURL    string `toml:"api_base_url"`
	PrimaryLocale string `toml:"primary_locale"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type QueueConfig struct {
	Name              string `toml:"name"`
	PollInterval      string `toml:"poll_interval"`      // e.g. "250ms"
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g. "5m"
	Concurrency       int    `toml:"concurrency" validate:"gte=1"`
	MaxReceive        int    `toml:"max_receive" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// CommerceConfig tunes the external commerce platform client.
type CommerceConfig struct {
	RequestTimeout   string  `toml:"request_timeout"`
	PageSize         int     `toml:"page_size" validate:"gte=1,lte=250"`
	MaxPages         int     `toml:"max_pages" validate:"gte=1"`
	RequestsPerSec   float64 `toml:"requests_per_sec"`
	FallbackLocales  []string `toml:"fallback_locales"`
}

// VectorStoreConfig selects and tunes the vector database client.
type VectorStoreConfig struct {
	Provider string `toml:"provider" validate:"oneof=http memory"` // "memory" for tests/offline
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Timeout  string `toml:"timeout"`
}

// LLMConfig configures the embedding provider.
type LLMConfig struct {
	Provider       string `toml:"provider" validate:"oneof=gemini offline"`
	GoogleAPIKey   string `toml:"google_api_key"`
	EmbedModelName string `toml:"embed_model_name"`
	EmbedDimension int    `toml:"embed_dimension" validate:"gte=1"`
	Timeout        string `toml:"timeout"`
	MaxBatchSize   int    `toml:"max_batch_size" validate:"gte=1"`
}

// IndexingConfig tunes chunking and indexer behavior.
type IndexingConfig struct {
	MaxChunkChars int `toml:"max_chunk_chars" validate:"gte=100"`
	// StaleAfter marks a store as needs_sync once its last index is older
	// than this duration, e.g. "24h".
	StaleAfter string `toml:"stale_after"`
}

// SearchConfig tunes hybrid ranking.
type SearchConfig struct {
	SemanticWeight float64 `toml:"semantic_weight"`
	KeywordWeight  float64 `toml:"keyword_weight"`
	DefaultTopK    int     `toml:"default_top_k" validate:"gte=1"`
	LockWaitTimeout string `toml:"lock_wait_timeout"` // e.g. "2s"
}

// SchedulerConfig drives periodic refresh submissions.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron expression
}

// JobsConfig sets retry and timeout policy for background jobs.
type JobsConfig struct {
	MaxRetries       int    `toml:"max_retries" validate:"gte=0"`
	RetryBackoff     string `toml:"retry_backoff"`      // base delay, e.g. "1s"
	IndexTimeout     string `toml:"index_timeout"`      // e.g. "120s"
	CleanupTimeout   string `toml:"cleanup_timeout"`    // e.g. "120s"
	DeleteTimeout    string `toml:"delete_timeout"`     // e.g. "45s"
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/taberna",
			},
		},
		Queue: QueueConfig{
			Name:              "sync",
			PollInterval:      "250ms",
			VisibilityTimeout: "5m",
			Concurrency:       2,
			MaxReceive:        5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Commerce: CommerceConfig{
			RequestTimeout:  "30s",
			PageSize:        100,
			MaxPages:        100,
			RequestsPerSec:  4,
			FallbackLocales: []string{"en", "es"},
		},
		VectorStore: VectorStoreConfig{
			Provider: "http",
			BaseURL:  "http://localhost:6333",
			Timeout:  "30s",
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			EmbedModelName: "gemini-embedding-001",
			EmbedDimension: 768,
			Timeout:        "60s",
			MaxBatchSize:   16,
		},
		Indexing: IndexingConfig{
			MaxChunkChars: 1200,
			StaleAfter:    "24h",
		},
		Search: SearchConfig{
			SemanticWeight:  0.7,
			KeywordWeight:   0.3,
			DefaultTopK:     10,
			LockWaitTimeout: "2s",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 */6 * * *",
		},
		Jobs: JobsConfig{
			MaxRetries:     3,
			RetryBackoff:   "1s",
			IndexTimeout:   "120s",
			CleanupTimeout: "120s",
			DeleteTimeout:  "45s",
		},
	}
}

// LoadFromFiles loads configuration in priority order: defaults, then each
// file in sequence (later files override earlier ones), then environment
// variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its declared constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Search.SemanticWeight+c.Search.KeywordWeight <= 0 {
		return fmt.Errorf("invalid configuration: search weights must sum to a positive value")
	}
	return nil
}

// ApplyFlagOverrides applies command-line overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides maps TABERNA_* environment variables onto the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TABERNA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("TABERNA_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("TABERNA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("TABERNA_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("TABERNA_VECTOR_STORE_URL"); v != "" {
		config.VectorStore.BaseURL = v
	}
	if v := os.Getenv("TABERNA_VECTOR_STORE_API_KEY"); v != "" {
		config.VectorStore.APIKey = v
	}
	if v := os.Getenv("TABERNA_LLM_GOOGLE_API_KEY"); v != "" {
		config.LLM.GoogleAPIKey = v
	}
	if v := os.Getenv("TABERNA_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
}

// Duration parses a duration field, falling back to def on empty or invalid
// values.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
