package export

import (
	"encoding/json"
	"io"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// JSONExporter exports conversations as pretty-printed JSON
type JSONExporter struct{}

// Export writes the conversation as a single JSON document
func (e *JSONExporter) Export(sess *session.ChatSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sess)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
