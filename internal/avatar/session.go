package avatar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// EventKind labels avatar session notifications.
type EventKind string

const (
	// EventStreamReady fires when the video stream is up and the avatar
	// can accept speak tasks.
	EventStreamReady EventKind = "stream_ready"
	// EventStreamDisconnected fires when the service drops the session.
	EventStreamDisconnected EventKind = "stream_disconnected"
	// EventAvatarStartTalking fires when lip-synced playback begins.
	EventAvatarStartTalking EventKind = "avatar_start_talking"
	// EventAvatarStopTalking fires when lip-synced playback ends.
	EventAvatarStopTalking EventKind = "avatar_stop_talking"
)

// Event is one avatar session notification.
type Event struct {
	Kind   EventKind `json:"type"`
	TaskID string    `json:"task_id,omitempty"`
}

// speakTask is the outbound frame asking the avatar to voice text
// verbatim rather than generate its own reply.
type speakTask struct {
	Type     string `json:"type"`
	TaskType string `json:"task_type"`
	Text     string `json:"text"`
}

// Session is one live avatar streaming session over WebSocket. Events
// arrive on Events() until the connection drops or Close is called.
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan Event

	mu     sync.Mutex
	closed bool
}

// Dial opens an avatar session at url using the given session token.
func Dial(url string, token *Token, settings Settings, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to avatar stream: %w", err)
	}

	start := map[string]any{
		"type":        "start",
		"token":       token.Token,
		"session_id":  token.SessionID,
		"avatar_name": settings.AvatarName,
		"quality":     settings.Quality,
		"voice":       map[string]string{"voice_id": settings.VoiceID},
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start avatar session: %w", err)
	}

	s := &Session{
		conn:   conn,
		logger: logger,
		events: make(chan Event, 16),
	}
	go s.readLoop()

	logger.Info("avatar session started", "session_id", token.SessionID, "avatar", settings.AvatarName)
	return s, nil
}

// Events delivers session notifications. The channel is closed when the
// session ends, after a final EventStreamDisconnected.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Speak asks the avatar to voice text verbatim, lip-synced.
func (s *Session) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("session is closed")
	}
	task := speakTask{Type: "task", TaskType: "repeat", Text: text}
	if err := s.conn.WriteJSON(task); err != nil {
		return fmt.Errorf("failed to send speak task: %w", err)
	}
	return nil
}

// Interrupt cuts off the current utterance without ending the session.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("session is closed")
	}
	if err := s.conn.WriteJSON(map[string]string{"type": "interrupt"}); err != nil {
		return fmt.Errorf("failed to send interrupt: %w", err)
	}
	return nil
}

// Close ends the session and releases the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

// readLoop decodes inbound frames into events until the connection dies.
func (s *Session) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.Warn("avatar stream dropped", "error", err)
			}
			s.events <- Event{Kind: EventStreamDisconnected}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("skipping malformed avatar event", "error", err)
			continue
		}
		switch ev.Kind {
		case EventStreamReady, EventStreamDisconnected, EventAvatarStartTalking, EventAvatarStopTalking:
			s.events <- ev
		default:
			// Video payload and heartbeat frames are not surfaced.
		}
	}
}
