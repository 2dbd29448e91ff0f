package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

// Tools exposes comparison, statistics and validation over stored datasets as
// MCP tools.
type Tools struct {
	source     ports.DatasetSource
	comparator ports.DatasetComparator
	stats      ports.StatisticsCalculator
	validator  ports.DatasetValidator
	defaults   domain.CompareOptions
	logger     *slog.Logger
}

func NewTools(
	source ports.DatasetSource,
	comparator ports.DatasetComparator,
	stats ports.StatisticsCalculator,
	validator ports.DatasetValidator,
	defaults domain.CompareOptions,
	logger *slog.Logger,
) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		source:     source,
		comparator: comparator,
		stats:      stats,
		validator:  validator,
		defaults:   defaults,
		logger:     logger,
	}
}

func (t *Tools) Server(version string) *server.MCPServer {
	s := server.NewMCPServer("annotation-compare", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("compare_datasets",
		mcp.WithDescription("Match annotations of two stored datasets and return the comparison report as JSON."),
		mcp.WithString("dataset_a", mcp.Required(), mcp.Description("Storage key of the first dataset")),
		mcp.WithString("dataset_b", mcp.Required(), mcp.Description("Storage key of the second dataset")),
		mcp.WithNumber("iou_threshold", mcp.Description("Minimum IoU for region matches, 0..1")),
		mcp.WithNumber("points_threshold", mcp.Description("Minimum similarity for keypoint matches, 0..1")),
		mcp.WithBoolean("label_aware_matching", mcp.Description("Only match annotations whose labels are mapped to each other")),
		mcp.WithBoolean("auto_accept_renamed_labels", mcp.Description("Accept case/whitespace label renames")),
		mcp.WithString("assignment", mcp.Description("greedy or optimal")),
		mcp.WithString("subsets", mcp.Description("Comma-separated subsets for statistics and validation")),
	), t.compare)

	s.AddTool(mcp.NewTool("dataset_statistics",
		mcp.WithDescription("Compute counts, label distribution and shape statistics of a stored dataset."),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Storage key of the dataset")),
		mcp.WithString("subsets", mcp.Description("Comma-separated subset filter")),
		mcp.WithString("labels", mcp.Description("Comma-separated label filter")),
	), t.statistics)

	s.AddTool(mcp.NewTool("validate_dataset",
		mcp.WithDescription("Check a stored dataset against its own category schema or another dataset's."),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Storage key of the dataset")),
		mcp.WithString("schema_dataset", mcp.Description("Storage key of a dataset whose categories are the schema")),
		mcp.WithString("subsets", mcp.Description("Comma-separated subset filter")),
	), t.validate)

	return s
}

func (t *Tools) compare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refA, err := req.RequireString("dataset_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refB, err := req.RequireString("dataset_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := t.defaults
	opts.IoUThreshold = req.GetFloat("iou_threshold", opts.IoUThreshold)
	opts.PointsThreshold = req.GetFloat("points_threshold", opts.PointsThreshold)
	opts.LabelAwareMatching = req.GetBool("label_aware_matching", opts.LabelAwareMatching)
	opts.AutoAcceptRenamedLabels = req.GetBool("auto_accept_renamed_labels", opts.AutoAcceptRenamedLabels)
	opts.Assignment = domain.AssignmentStrategy(req.GetString("assignment", string(opts.Assignment)))
	if subsets := splitList(req.GetString("subsets", "")); subsets != nil {
		opts.SubsetFilter = subsets
	}

	a, err := t.source.Load(ctx, refA)
	if err != nil {
		return t.failure("compare_datasets", err), nil
	}
	b, err := t.source.Load(ctx, refB)
	if err != nil {
		return t.failure("compare_datasets", err), nil
	}
	report, err := t.comparator.Compare(ctx, a, b, opts)
	if err != nil {
		return t.failure("compare_datasets", err), nil
	}
	return jsonResult(report)
}

func (t *Tools) statistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("dataset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ds, err := t.source.Load(ctx, ref)
	if err != nil {
		return t.failure("dataset_statistics", err), nil
	}
	stats, err := t.stats.Compute(ctx, ds, domain.StatisticsFilter{
		Subsets: splitList(req.GetString("subsets", "")),
		Labels:  splitList(req.GetString("labels", "")),
	})
	if err != nil {
		return t.failure("dataset_statistics", err), nil
	}
	return jsonResult(stats)
}

func (t *Tools) validate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("dataset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ds, err := t.source.Load(ctx, ref)
	if err != nil {
		return t.failure("validate_dataset", err), nil
	}
	schema := ds.Categories
	if schemaRef := req.GetString("schema_dataset", ""); schemaRef != "" {
		other, err := t.source.Load(ctx, schemaRef)
		if err != nil {
			return t.failure("validate_dataset", err), nil
		}
		schema = other.Categories
	}
	report, err := t.validator.Validate(ctx, ds, schema, domain.StatisticsFilter{
		Subsets: splitList(req.GetString("subsets", "")),
	})
	if err != nil {
		return t.failure("validate_dataset", err), nil
	}
	return jsonResult(report)
}

func (t *Tools) failure(tool string, err error) *mcp.CallToolResult {
	t.logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
