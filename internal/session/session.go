// Package session provides the conversation session model and its storage.
package session

import (
	"sort"
	"strings"
	"time"
)

// Type identifies which surface a session belongs to.
type Type string

const (
	TypeText  Type = "text"
	TypeVoice Type = "voice"
	TypeVideo Type = "video"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message spoken or typed by the person.
	RoleUser Role = "user"
	// RolePersona is a reply from the companion persona.
	RolePersona Role = "jesus"
)

// DefaultTitle is used when a session is created without seed text.
const DefaultTitle = "New Conversation"

// maxTitleLen is how many characters of seed text make it into the title.
const maxTitleLen = 30

// Message is a single conversation turn. Messages are immutable once
// appended, except for the streaming case where the final message's text
// is patched until the reply is complete.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatSession is one conversation thread.
type ChatSession struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}

// TitleFromSeed derives a session title from the first words of seed text,
// truncated to 30 characters with an ellipsis marker. Empty seed text gets
// the default placeholder.
func TitleFromSeed(seed string) string {
	if strings.TrimSpace(seed) == "" {
		return DefaultTitle
	}
	runes := []rune(seed)
	if len(runes) <= maxTitleLen {
		return seed
	}
	return string(runes[:maxTitleLen]) + "..."
}

// sortByRecency orders sessions most recently updated first. A zero
// UpdatedAt falls back to CreatedAt; when both are zero the sort is stable,
// preserving insertion order.
func sortByRecency(sessions []ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return effectiveTime(&sessions[i]).After(effectiveTime(&sessions[j]))
	})
}

func effectiveTime(s *ChatSession) time.Time {
	if !s.UpdatedAt.IsZero() {
		return s.UpdatedAt
	}
	return s.CreatedAt
}
