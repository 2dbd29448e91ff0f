package cli

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "stats <dataset>",
		Short: "Print descriptive statistics of one dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.compareOptions(cmd)
			if err != nil {
				return err
			}
			ds, err := loadDataset(args[0], flags.logger(cmd))
			if err != nil {
				return err
			}
			calc, err := flags.statisticsFor(args[0], opts.Workers)
			if err != nil {
				return err
			}
			stats, err := calc.Compute(cmd.Context(), ds, domain.StatisticsFilter{Subsets: opts.SubsetFilter, Labels: labels})
			if err != nil {
				return err
			}

			w, closeOut, err := flags.writer(cmd)
			if err != nil {
				return err
			}
			if err := writeValue(w, flags.format, stats); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "restrict statistics to these labels")
	return cmd
}
