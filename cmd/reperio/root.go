package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/llm"
	"github.com/ternarybob/reperio/internal/storage/badger"
)

var (
	configFile string

	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "reperio",
	Short: "LLM-assisted retrieval over PDF document collections",
	Long: `Reperio stages PDF pages, enriches image-heavy pages with vision
model descriptions, builds per-category document corpora and answers
retrieval questions by asking an LLM to pick the most relevant document
from each question's candidate set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (TOML)")
}

// initRuntime runs the startup sequence shared by every command:
// .env, config (defaults -> file -> env), logger, banner.
func initRuntime() error {
	// Missing .env is fine, environment variables still apply
	_ = godotenv.Load()

	path := configFile
	if path == "" {
		if _, err := os.Stat("reperio.toml"); err == nil {
			path = "reperio.toml"
		}
	}

	var err error
	config, err = common.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if path != "" {
		logger.Info().Str("config", path).Msg("Configuration loaded")
	}
	return nil
}

// openStorage opens the badger page store per the configured path
func openStorage() (*badger.BadgerDB, error) {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	return db, nil
}

// newProvider builds the configured LLM provider for the given model and
// verifies its credential before any work starts, so a missing API key
// aborts the command instead of failing every call. The offline provider
// is a deterministic local stand-in used for dry runs without API keys.
func newProvider(model string) (llm.Provider, error) {
	if config.LLM.DefaultProvider == string(llm.ProviderOffline) {
		return llm.NewOfflineProvider(logger), nil
	}
	factory, err := llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, logger)
	if err != nil {
		return nil, err
	}
	if err := factory.CheckCredentials(model); err != nil {
		return nil, err
	}
	return factory, nil
}

// resolveCategories parses the --category flag value, empty means all
func resolveCategories(value string) ([]models.Category, error) {
	if value == "" {
		return models.Categories(), nil
	}
	category, err := models.ParseCategory(value)
	if err != nil {
		return nil, err
	}
	return []models.Category{category}, nil
}
