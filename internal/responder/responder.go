// Package responder provides the language-model collaborators that answer
// as the persona.
package responder

import (
	"context"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// Chunk is one fragment of a streamed reply. A non-nil Err terminates the
// stream; the channel is closed afterwards.
type Chunk struct {
	Text string
	Err  error
}

// Responder produces persona replies from the conversation history plus the
// latest user turn.
type Responder interface {
	// Complete returns the full reply text.
	Complete(ctx context.Context, history []session.Message, text string) (string, error)

	// CompleteStream returns the reply as a finite sequence of text
	// fragments. The stream is not restartable.
	CompleteStream(ctx context.Context, history []session.Message, text string) (<-chan Chunk, error)
}

// historyRole maps stored message roles onto the chat-completion role
// vocabulary: the user's turns stay "user", everything else is the
// assistant speaking.
func historyRole(r session.Role) string {
	if r == session.RoleUser {
		return "user"
	}
	return "assistant"
}
