package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// New returns the exporter for a format name.
func New(format string) (ports.ReportExporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return JSONExporter{Indent: "  "}, nil
	case FormatYAML, "yml":
		return YAMLExporter{}, nil
	case FormatXLSX:
		return XLSXExporter{}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "select exporter", fmt.Errorf("unknown format %q", format))
	}
}

func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return "application/yaml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

type JSONExporter struct {
	Indent string
}

func (e JSONExporter) Export(_ context.Context, report *domain.ComparisonReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	if e.Indent != "" {
		enc.SetIndent("", e.Indent)
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

type YAMLExporter struct{}

func (YAMLExporter) Export(_ context.Context, report *domain.ComparisonReport, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}
	return nil
}
