package export

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// YAMLExporter exports conversations in YAML format
type YAMLExporter struct{}

// Export writes the conversation as a YAML document
func (e *YAMLExporter) Export(sess *session.ChatSession, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(sess)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
