package main

import (
	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/services/evaluate"
)

var (
	evaluateAnswers string
	evaluateTruth   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score an answers file against ground truth",
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateAnswers, "answers", "a", "./answers.json", "Answers file (JSON)")
	evaluateCmd.Flags().StringVarP(&evaluateTruth, "truth", "t", "", "Ground truth file (JSON)")
	evaluateCmd.MarkFlagRequired("truth")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	answers, err := evaluate.LoadAnswers(evaluateAnswers)
	if err != nil {
		return err
	}
	truths, err := evaluate.LoadGroundTruth(evaluateTruth)
	if err != nil {
		return err
	}

	report := evaluate.Score(answers, truths)

	cmd.Printf("Precision: %.4f (%d/%d correct)\n", report.Precision, report.Correct, report.Total)
	for _, m := range report.Mismatches {
		cmd.Printf("  qid %d: predicted %d, expected %d\n", m.QID, m.Predicted, m.Expected)
	}
	for _, qid := range report.MissingQID {
		cmd.Printf("  qid %d: no prediction\n", qid)
	}
	return nil
}
