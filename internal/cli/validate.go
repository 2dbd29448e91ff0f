package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/usecase"
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var (
		schemaPath string
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "validate <dataset>",
		Short: "Check a dataset against its category schema",
		Long: `validate reports undefined labels and attributes, out-of-domain values,
missing attributes, empty items and malformed geometry.

With --schema, the categories of another dataset file are used instead of the
dataset's own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.compareOptions(cmd)
			if err != nil {
				return err
			}
			logger := flags.logger(cmd)
			ds, err := loadDataset(args[0], logger)
			if err != nil {
				return err
			}
			schema := ds.Categories
			if schemaPath != "" {
				other, err := loadDataset(schemaPath, logger)
				if err != nil {
					return err
				}
				schema = other.Categories
			}

			report, err := usecase.NewValidationUseCase(opts.Workers).Validate(cmd.Context(), ds, schema, domain.StatisticsFilter{Subsets: opts.SubsetFilter})
			if err != nil {
				return err
			}

			w, closeOut, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			if err := writeValue(w, flags.format, report); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			if strict && !report.OK() {
				return fmt.Errorf("%d validation findings", len(report.Findings))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "dataset file whose categories are the schema")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any finding is reported")
	return cmd
}
