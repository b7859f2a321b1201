package export

import (
	"fmt"
	"io"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// speakerLabels maps stored roles onto transcript headings.
var speakerLabels = map[session.Role]string{
	session.RoleUser:    "You",
	session.RolePersona: "Jesus",
}

// MarkdownExporter exports conversations as a readable transcript
type MarkdownExporter struct{}

// Export writes the conversation in Markdown format
func (e *MarkdownExporter) Export(sess *session.ChatSession, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", sess.Title)
	_, _ = fmt.Fprintf(w, "**Mode:** %s  \n", sess.Type)
	if !sess.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Started:** %s  \n", sess.CreatedAt.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(sess.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range sess.Messages {
		label := speakerLabels[msg.Role]
		if label == "" {
			label = string(msg.Role)
		}
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format("15:04:05"))
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, msg.Text)
		if i < len(sess.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
