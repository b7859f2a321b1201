// Package export writes conversations out in shareable formats.
package export

import (
	"fmt"
	"io"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(sess *session.ChatSession, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, md, yaml)", format)
	}
}
