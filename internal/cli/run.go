package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/annotation-compare/internal/core/usecase"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/export"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var failOnUnmatched bool
	cmd := &cobra.Command{
		Use:   "run <dataset-a> <dataset-b>",
		Short: "Compare two datasets and print the report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.compareOptions(cmd)
			if err != nil {
				return err
			}
			exporter, err := export.New(flags.format)
			if err != nil {
				return err
			}
			logger := flags.logger(cmd)

			a, err := loadDataset(args[0], logger)
			if err != nil {
				return err
			}
			b, err := loadDataset(args[1], logger)
			if err != nil {
				return err
			}
			stats, err := flags.statisticsFor(args[0], opts.Workers)
			if err != nil {
				return err
			}
			comparator := usecase.NewComparisonUseCase(stats, usecase.NewValidationUseCase(opts.Workers))
			report, err := comparator.Compare(cmd.Context(), a, b, opts)
			if err != nil {
				return err
			}

			w, closeOut, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			if err := exporter.Export(cmd.Context(), report, w); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			logger.Info("comparison_finished",
				"matched_pairs", report.Summary.MatchedPairs,
				"unmatched_a", report.Summary.UnmatchedA,
				"unmatched_b", report.Summary.UnmatchedB,
			)

			if failOnUnmatched && (report.Summary.UnmatchedA > 0 || report.Summary.UnmatchedB > 0) {
				return fmt.Errorf("%d annotations in A and %d in B are unmatched", report.Summary.UnmatchedA, report.Summary.UnmatchedB)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnUnmatched, "fail-on-unmatched", false, "exit non-zero when any annotation is unmatched")
	return cmd
}
