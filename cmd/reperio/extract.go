package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/services/extract"
	"github.com/ternarybob/reperio/internal/storage/badger"
)

var (
	extractInputDir string
	extractCategory string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract PDF pages into the staged page store",
	Long: `Reads every numerically named PDF in the input directory (the file
stem is the document id), extracts per-page text and embedded images, tags
pages with content-type flags and stages the page records. A corrupt file
is logged and skipped, it never aborts the batch.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInputDir, "input", "i", "", "Directory of source PDFs (overrides config)")
	extractCmd.Flags().StringVar(&extractCategory, "category", "", "Category to process (finance, insurance, faq; default all)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	categories, err := resolveCategories(extractCategory)
	if err != nil {
		return err
	}

	inputDir := config.Extract.InputDir
	if extractInputDir != "" {
		inputDir = extractInputDir
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	store := badger.NewPageStorage(db, logger)
	extractor := extract.NewExtractor(logger)
	tagger := extract.NewTagger(config.Extract.TableColumnThreshold, config.Extract.TableRowThreshold, logger)
	service := extract.NewService(extractor, tagger, store, logger)

	// Source PDFs live in one subdirectory per category. Re-running extract
	// replaces whatever the previous run staged for that category.
	for _, category := range categories {
		if err := store.ClearCategory(ctx, category); err != nil {
			return err
		}
		result, err := service.ProcessDirectory(ctx, filepath.Join(inputDir, string(category)), config.Storage.Files.Images, category)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d files processed, %d failed, %d pages staged, %d excluded\n",
			category, result.FilesProcessed, result.FilesFailed, result.PagesStaged, result.PagesExcluded)
	}

	if err := db.RunGC(); err != nil {
		logger.Warn().Err(err).Msg("Post-run value log GC failed")
	}
	return nil
}
