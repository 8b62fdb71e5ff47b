package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/services/audit"
	"github.com/ternarybob/reperio/internal/services/corpus"
	"github.com/ternarybob/reperio/internal/services/retrieval"
)

var (
	retrieveQuestions string
	retrieveOutput    string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Answer retrieval questions against the built corpus",
	Long: `Loads the per-category corpus files and a questions file, then asks
the configured model to pick the most relevant document from each
question's candidate set. Every question receives exactly one answer;
questions whose calls fail within the retry budget fall back to their
first candidate and are recorded in the error log.`,
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveQuestions, "questions", "q", "", "Questions file (JSON)")
	retrieveCmd.Flags().StringVarP(&retrieveOutput, "output", "o", "./answers.json", "Answers output file")
	retrieveCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	questions, err := retrieval.LoadQuestions(retrieveQuestions)
	if err != nil {
		return err
	}

	if err := retrieval.CheckWritable(retrieveOutput); err != nil {
		return err
	}

	index := corpus.NewCorpus()
	loaded, err := index.LoadAll(config.Storage.Files.Corpus)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.Info().Int("documents", loaded).Msg("Corpus loaded")

	provider, err := newProvider(config.Retrieval.Model)
	if err != nil {
		return err
	}
	defer provider.Close()

	recorder, err := audit.NewRecorder(config.Retrieval.ErrorLog, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	engine := retrieval.NewEngine(
		provider,
		index,
		recorder,
		config.Retrieval.MaxTasks,
		config.Retrieval.MaxRetries,
		config.Retrieval.Model,
		config.Retrieval.Temperature,
		config.Retrieval.MaxTokens,
		logger,
	)

	result, err := engine.Run(ctx, questions)
	if err != nil {
		return err
	}

	if err := retrieval.WriteAnswers(retrieveOutput, result.Answers); err != nil {
		return err
	}

	cmd.Printf("%d questions answered (%d fallbacks), written to %s\n",
		len(result.Answers.Answers), result.Fallbacks, retrieveOutput)
	if n := recorder.Count(); n > 0 {
		cmd.Printf("%d errors recorded in %s\n", n, config.Retrieval.ErrorLog)
	}
	return nil
}
