package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/annotation-compare/internal/config"
	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/usecase"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/datasetfile"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/hashing"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/annotation-compare/internal/observability/logging"
)

type globalFlags struct {
	optionsFile string
	format      string
	output      string
	logLevel    string
	mediaRoot   string

	iou               float64
	pointsThreshold   float64
	labelAgnostic     bool
	autoAcceptRenamed bool
	assignment        string
	subsets           []string
	workers           int
}

func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare, profile and validate annotated datasets",
		Long: `compare matches the annotations of two datasets item by item, reconciles
their label schemas and reports statistics and validation findings.

Datasets are JSON or YAML documents with categories and items.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.optionsFile, "options", "", "YAML file with comparison options")
	pf.StringVarP(&flags.format, "format", "f", "json", "output format: json, yaml or xlsx (reports only)")
	pf.StringVarP(&flags.output, "output", "o", "", "write output to a file instead of stdout")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level")
	pf.StringVar(&flags.mediaRoot, "media-root", "", "directory media paths resolve against, defaults to the first dataset's directory")
	pf.Float64Var(&flags.iou, "iou", 0.5, "minimum IoU for bbox, polygon and mask matches")
	pf.Float64Var(&flags.pointsThreshold, "points-threshold", 0.5, "minimum similarity for keypoint matches")
	pf.BoolVar(&flags.labelAgnostic, "label-agnostic", false, "match on geometry only, ignoring labels")
	pf.BoolVar(&flags.autoAcceptRenamed, "auto-accept-renamed", false, "accept labels that differ only in case or whitespace")
	pf.StringVar(&flags.assignment, "assignment", string(domain.AssignGreedy), "assignment strategy: greedy or optimal")
	pf.StringSliceVar(&flags.subsets, "subsets", nil, "restrict statistics and validation to these subsets")
	pf.IntVar(&flags.workers, "workers", 0, "parallel workers, 0 uses all CPUs")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	return cmd
}

// compareOptions layers env, the options file and explicitly set flags.
func (f *globalFlags) compareOptions(cmd *cobra.Command) (domain.CompareOptions, error) {
	opts, err := config.Load().CompareOptions()
	if err != nil {
		return domain.CompareOptions{}, err
	}
	if f.optionsFile != "" {
		loaded, err := config.LoadCompareOptionsFile(f.optionsFile, opts)
		if err != nil {
			return domain.CompareOptions{}, err
		}
		opts = loaded
	}

	changed := cmd.Flags().Changed
	if changed("iou") {
		opts.IoUThreshold = f.iou
	}
	if changed("points-threshold") {
		opts.PointsThreshold = f.pointsThreshold
	}
	if changed("label-agnostic") {
		opts.LabelAwareMatching = !f.labelAgnostic
	}
	if changed("auto-accept-renamed") {
		opts.AutoAcceptRenamedLabels = f.autoAcceptRenamed
	}
	if changed("assignment") {
		opts.Assignment = domain.AssignmentStrategy(f.assignment)
	}
	if changed("subsets") {
		opts.SubsetFilter = f.subsets
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if err := opts.Validate(); err != nil {
		return domain.CompareOptions{}, err
	}
	return opts, nil
}

func (f *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "compare-cli", f.logLevel)
}

// writer returns the output destination and a function that finalizes it.
func (f *globalFlags) writer(cmd *cobra.Command) (io.Writer, func() error, error) {
	if f.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(f.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return file, file.Close, nil
}

// loadDataset reads a dataset file in the format implied by its extension.
func loadDataset(path string, logger *slog.Logger) (*domain.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open dataset", err)
	}
	defer file.Close()

	doc, err := datasetfile.Decode(file, datasetfile.FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds, duplicates := doc.Dataset()
	if ds.Name == "" {
		ds.Name = filepath.Base(path)
	}
	if len(duplicates) > 0 {
		logger.Warn("dataset_duplicate_categories", "dataset", path, "categories", duplicates)
	}
	return ds, nil
}

// statisticsFor hashes media relative to --media-root or, without it, the
// directory of the first dataset.
func (f *globalFlags) statisticsFor(firstDataset string, workers int) (*usecase.StatisticsUseCase, error) {
	root := f.mediaRoot
	if root == "" {
		root = filepath.Dir(firstDataset)
	}
	media, err := localfs.New(root)
	if err != nil {
		return nil, err
	}
	return usecase.NewStatisticsUseCase(hashing.NewMediaHasher(media), workers), nil
}

func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "write output", fmt.Errorf("format %q is not supported here", format))
	}
}
