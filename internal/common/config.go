package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// LLMProvider constants for the default provider setting
const (
	LLMProviderGemini = "gemini"
	LLMProviderClaude = "claude"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Extract     ExtractConfig   `toml:"extract"`
	Enrich      EnrichConfig    `toml:"enrich"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Logging     LoggingConfig   `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig     `toml:"badger"`
	Files  FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration for the staged
// page record store
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean runs
}

type FilesystemConfig struct {
	Images string `toml:"images"` // Directory for extracted page image blobs
	Corpus string `toml:"corpus"` // Directory for per-category corpus JSON files
}

// ExtractConfig controls the PDF extraction and tagging stages
type ExtractConfig struct {
	InputDir string `toml:"input_dir"` // Directory of source PDFs
	// Minimum column-aligned tokens on a line before the tagger considers
	// the page to contain a table
	TableColumnThreshold int `toml:"table_column_threshold"`
	TableRowThreshold    int `toml:"table_row_threshold"`
}

// EnrichConfig controls the multimodal enrichment stage
type EnrichConfig struct {
	MaxTasks      int    `toml:"max_tasks"`       // Max concurrent in-flight vision calls
	MaxRetries    int    `toml:"max_retries"`     // Retry budget per page
	MinTextLength int    `toml:"min_text_length"` // Pages with less raw text than this get enriched
	Model         string `toml:"model"`           // Vision-capable model (provider detected from name)
}

// RetrievalConfig controls the retrieval engine
type RetrievalConfig struct {
	MaxTasks    int     `toml:"max_tasks"`    // Max concurrent in-flight retrieval calls
	MaxRetries  int     `toml:"max_retries"`  // Retry budget per query
	MaxGap      int     `toml:"max_gap"`      // Tolerated page-number gap during aggregation
	Model       string  `toml:"model"`        // Text model (provider detected from name)
	Temperature float32 `toml:"temperature"`  // Sampling temperature for retrieval calls
	MaxTokens   int     `toml:"max_tokens"`   // Response token cap
	ErrorLog    string  `toml:"error_log"`    // Append-only error log path
}

type GeminiConfig struct {
	APIKey    string `toml:"api_key"`    // User must provide API key (env or config)
	Model     string `toml:"model"`      // Default Gemini model
	Timeout   string `toml:"timeout"`    // Per-call timeout, e.g. "5m"
	RateLimit string `toml:"rate_limit"` // Minimum interval between calls, e.g. "1s"
}

type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
	RateLimit string `toml:"rate_limit"`
}

type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "gemini" or "claude"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the configuration defaults applied before any
// config file or environment override
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/pages",
				ResetOnStartup: false,
			},
			Files: FilesystemConfig{
				Images: "./data/images",
				Corpus: "./data/corpus",
			},
		},
		Extract: ExtractConfig{
			InputDir:             "./reference",
			TableColumnThreshold: 3,
			TableRowThreshold:    2,
		},
		Enrich: EnrichConfig{
			MaxTasks:      100,
			MaxRetries:    3,
			MinTextLength: 200,
			Model:         "", // Empty uses the default provider's model
		},
		Retrieval: RetrievalConfig{
			MaxTasks:    100,
			MaxRetries:  3,
			MaxGap:      1,
			Model:       "",
			Temperature: 0, // Deterministic ranking
			MaxTokens:   1000,
			ErrorLog:    "./error_log.txt",
		},
		Gemini: GeminiConfig{
			APIKey:    "", // User must provide API key (REPERIO_GEMINI_API_KEY or config)
			Model:     "gemini-2.0-flash",
			Timeout:   "5m",
			RateLimit: "1s",
		},
		Claude: ClaudeConfig{
			APIKey:    "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:     "claude-haiku-3-5-20241022",
			MaxTokens: 4096,
			Timeout:   "5m",
			RateLimit: "1s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REPERIO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("REPERIO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dir := os.Getenv("REPERIO_IMAGES_DIR"); dir != "" {
		config.Storage.Files.Images = dir
	}
	if dir := os.Getenv("REPERIO_CORPUS_DIR"); dir != "" {
		config.Storage.Files.Corpus = dir
	}
	if dir := os.Getenv("REPERIO_INPUT_DIR"); dir != "" {
		config.Extract.InputDir = dir
	}

	if tasks := os.Getenv("REPERIO_ENRICH_MAX_TASKS"); tasks != "" {
		if n, err := strconv.Atoi(tasks); err == nil {
			config.Enrich.MaxTasks = n
		}
	}
	if tasks := os.Getenv("REPERIO_RETRIEVAL_MAX_TASKS"); tasks != "" {
		if n, err := strconv.Atoi(tasks); err == nil {
			config.Retrieval.MaxTasks = n
		}
	}

	if key := os.Getenv("REPERIO_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("REPERIO_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if provider := os.Getenv("REPERIO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}

	if level := os.Getenv("REPERIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ResolveAPIKey resolves an API key by name with environment variable
// priority. Resolution order: environment variable -> config fallback -> error.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"REPERIO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"REPERIO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
