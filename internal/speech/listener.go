package speech

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// EventKind labels the listener lifecycle notifications.
type EventKind string

const (
	// EventListeningStarted marks the start of a recognition session.
	EventListeningStarted EventKind = "listening-started"
	// EventListeningEnded marks the end of a recognition session, whether
	// or not anything was heard.
	EventListeningEnded EventKind = "listening-ended"
	// EventTranscript carries a finalized, non-empty transcript.
	EventTranscript EventKind = "transcript"
)

// Event is one listener notification.
type Event struct {
	Kind       EventKind
	Transcript string
}

// Recognizer is a single-shot speech recognition capability: one
// invocation listens for one utterance and returns its transcript.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
	Stop()
}

// Listener wraps a Recognizer into restartable single-shot sessions with
// lifecycle events. A nil Recognizer degrades to a visible no-op: Start
// reports ErrNotSupported and nothing ever fires.
type Listener struct {
	rec    Recognizer
	logger *slog.Logger
	events chan Event

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewListener creates a listener around rec, which may be nil when the
// platform has no recognition capability.
func NewListener(rec Recognizer, logger *slog.Logger) *Listener {
	return &Listener{
		rec:    rec,
		logger: logger,
		events: make(chan Event, 16),
	}
}

// Supported reports whether recognition is available at all.
func (l *Listener) Supported() bool {
	return l.rec != nil
}

// Events delivers lifecycle and transcript notifications.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Start begins a new single-shot recognition session, defensively stopping
// any previous one first. An empty trimmed transcript is discarded
// silently.
func (l *Listener) Start(ctx context.Context) error {
	if l.rec == nil {
		return ErrNotSupported
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.rec.Stop()
	}
	sctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		l.emit(sctx, Event{Kind: EventListeningStarted})
		text, err := l.rec.Recognize(sctx)
		l.emit(sctx, Event{Kind: EventListeningEnded})

		if err != nil {
			if sctx.Err() == nil {
				l.logger.Warn("speech recognition failed", "error", err)
			}
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		l.emit(sctx, Event{Kind: EventTranscript, Transcript: text})
	}()
	return nil
}

// Stop cancels the current recognition session; safe when not listening.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if l.rec != nil {
		l.rec.Stop()
	}
}

func (l *Listener) emit(ctx context.Context, ev Event) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}

// ReaderRecognizer reads one line per recognition session from an input
// stream. It stands in for platform speech recognition in terminals and
// tests.
type ReaderRecognizer struct {
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// NewReaderRecognizer creates a recognizer reading transcripts from r.
func NewReaderRecognizer(r io.Reader) *ReaderRecognizer {
	return &ReaderRecognizer{scanner: bufio.NewScanner(r)}
}

// Recognize blocks until one line of input arrives or ctx is canceled.
func (r *ReaderRecognizer) Recognize(ctx context.Context) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.scanner.Scan() {
			ch <- result{text: r.scanner.Text()}
			return
		}
		if err := r.scanner.Err(); err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{err: io.EOF}
	}()

	select {
	case res := <-ch:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop is a no-op; cancellation happens through the session context.
func (r *ReaderRecognizer) Stop() {}
