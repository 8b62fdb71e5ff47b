package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/services/corpus"
	"github.com/ternarybob/reperio/internal/storage/badger"
)

var corpusCategory string

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Build per-category corpus files from staged pages",
	Long: `Groups staged pages by document, validates page ordering, merges page
text with generated descriptions and writes one corpus JSON file per
category. Documents with broken page sequences are excluded.`,
	RunE: runCorpus,
}

func init() {
	corpusCmd.Flags().StringVar(&corpusCategory, "category", "", "Category to process (finance, insurance, faq; default all)")
	rootCmd.AddCommand(corpusCmd)
}

func runCorpus(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	categories, err := resolveCategories(corpusCategory)
	if err != nil {
		return err
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	service := corpus.NewService(badger.NewPageStorage(db, logger), config.Retrieval.MaxGap, logger)

	for _, category := range categories {
		result, err := service.BuildCategory(ctx, category, config.Storage.Files.Corpus)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d documents written to %s (%d excluded)\n",
			category, result.DocumentsWritten, result.Path, result.DocumentsExcluded)
	}
	return nil
}
