// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.riffle/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model, embedder model
//   - Retrieval: per-source depth, RRF constant, context cap
//   - Conversation: history window
//   - Storage: PostgreSQL connection (see storage.go)
//
// Security: sensitive data (passwords) is never logged; the config directory
// uses 0750 permissions.
//
// Error Handling: sentinel errors for Go-idiomatic checking with errors.Is();
// wrap with context using fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the per-source retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidRRFConstant indicates the RRF smoothing constant is out of range.
	ErrInvalidRRFConstant = errors.New("invalid rrf_constant")

	// ErrInvalidHistoryWindow indicates the history window is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history_window")

	// ErrInvalidChunking indicates the chunk size/overlap combination is invalid.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality; our pgvector schema uses
	// 768 dimensions (knowledge.VectorDimension).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultTopK is the default per-source retrieval depth.
	DefaultTopK = 5

	// DefaultRRFConstant is the default reciprocal rank fusion smoothing
	// constant. Higher values discount exact rank position in favor of
	// presence across lists.
	DefaultRRFConstant = 60.0

	// DefaultHistoryWindow is the default number of conversation turns
	// included in model prompts.
	DefaultHistoryWindow = 10

	// MaxTopK bounds the per-source retrieval depth.
	MaxTopK = 50

	// MaxHistoryWindow bounds the prompt history window.
	MaxHistoryWindow = 200
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Retrieval configuration
	TopK        int     `mapstructure:"top_k" json:"top_k"`
	RRFConstant float64 `mapstructure:"rrf_constant" json:"rrf_constant"`

	// Conversation configuration
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`

	// Debug enables per-stage pipeline state streaming.
	Debug bool `mapstructure:"debug" json:"debug"`

	// Knowledge base indexing configuration
	KBPath       string `mapstructure:"kb_path" json:"kb_path"`
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".riffle")

	// Ensure directory exists (0750 for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval defaults
	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("rrf_constant", DefaultRRFConstant)

	// Conversation defaults
	viper.SetDefault("history_window", DefaultHistoryWindow)
	viper.SetDefault("debug", false)

	// Knowledge base defaults (match the common layout: a kb/ directory of text files)
	viper.SetDefault("kb_path", "kb")
	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 200)

	// PostgreSQL defaults (local development instance)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "riffle")
	viper.SetDefault("postgres_password", "riffle_dev_password")
	viper.SetDefault("postgres_db_name", "riffle")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Observability defaults (empty = tracing disabled)
	viper.SetDefault("otlp_endpoint", "")
}

// bindEnvVariables binds environment overrides explicitly.
//
// GEMINI_API_KEY is read directly by the Genkit Google AI plugin, not via
// Viper; its presence is the provider's concern, not ours.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "RIFFLE_PROVIDER")
	mustBind("model_name", "RIFFLE_MODEL_NAME")
	mustBind("embedder_model", "RIFFLE_EMBEDDER_MODEL")
	mustBind("debug", "RIFFLE_DEBUG")
	mustBind("top_k", "RIFFLE_TOP_K")
	mustBind("rrf_constant", "RIFFLE_RRF_CONSTANT")
	mustBind("history_window", "RIFFLE_HISTORY_WINDOW")
	mustBind("kb_path", "RIFFLE_KB_PATH")

	mustBind("postgres_host", "RIFFLE_POSTGRES_HOST")
	mustBind("postgres_port", "RIFFLE_POSTGRES_PORT")
	mustBind("postgres_user", "RIFFLE_POSTGRES_USER")
	mustBind("postgres_password", "RIFFLE_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "RIFFLE_POSTGRES_DB_NAME")

	mustBind("otlp_endpoint", "RIFFLE_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matching against
// real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer secrets show the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
