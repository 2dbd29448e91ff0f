package datasetfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file name extension; unknown extensions
// fall back to content sniffing.
func FormatFor(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Decode reads one dataset document. Attribute numbers from JSON keep their
// textual form as json.Number.
func Decode(r io.Reader, format Format) (*Document, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = sniff(br)
	}

	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(br)
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode dataset", fmt.Errorf("json: %w", err))
		}
	case FormatYAML:
		if err := yaml.NewDecoder(br).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return &doc, nil
			}
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode dataset", fmt.Errorf("yaml: %w", err))
		}
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode dataset", fmt.Errorf("unsupported format %q", format))
	}
	return &doc, nil
}

func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml dataset: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json dataset: %w", err)
		}
		return nil
	}
}

func sniff(br *bufio.Reader) Format {
	head, _ := br.Peek(512)
	trimmed := bytes.TrimLeft(head, " \t\r\n\uFEFF")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}
