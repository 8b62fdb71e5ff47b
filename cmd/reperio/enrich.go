package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/services/audit"
	"github.com/ternarybob/reperio/internal/services/enrich"
	"github.com/ternarybob/reperio/internal/storage/badger"
)

var enrichCategory string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Describe image-heavy staged pages with a vision model",
	Long: `Selects staged pages that carry image content but too little parsed
text, sends each page's images to the configured vision model and attaches
the generated description. Pages whose calls exhaust the retry budget stay
unenriched and are recorded in the error log.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichCategory, "category", "", "Category to process (finance, insurance, faq; default all)")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	categories, err := resolveCategories(enrichCategory)
	if err != nil {
		return err
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := newProvider(config.Enrich.Model)
	if err != nil {
		return err
	}
	defer provider.Close()

	recorder, err := audit.NewRecorder(config.Retrieval.ErrorLog, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	enricher := enrich.NewEnricher(
		provider,
		badger.NewPageStorage(db, logger),
		recorder,
		config.Enrich.MaxTasks,
		config.Enrich.MaxRetries,
		config.Enrich.Model,
		logger,
	)

	for _, category := range categories {
		result, err := enricher.EnrichCategory(ctx, category, config.Enrich.MinTextLength)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d pages selected, %d enriched, %d failed\n",
			category, result.PagesSelected, result.PagesEnriched, result.PagesFailed)
	}

	if n := recorder.Count(); n > 0 {
		cmd.Printf("%d errors recorded in %s\n", n, config.Retrieval.ErrorLog)
	}
	return nil
}
