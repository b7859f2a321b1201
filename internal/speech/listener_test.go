package speech

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRecognizer yields queued transcripts, one per Recognize call.
type fakeRecognizer struct {
	mu      sync.Mutex
	queue   []string
	err     error
	stopped bool
	block   chan struct{}
}

func (r *fakeRecognizer) Recognize(ctx context.Context) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	if len(r.queue) == 0 {
		return "", errors.New("no transcript queued")
	}
	text := r.queue[0]
	r.queue = r.queue[1:]
	return text, nil
}

func (r *fakeRecognizer) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

func (r *fakeRecognizer) wasStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func collectEvents(t *testing.T, events <-chan Event, n int) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events: %+v", len(got), n, got)
		}
	}
	return got
}

func TestListener_EmitsTranscript(t *testing.T) {
	rec := &fakeRecognizer{queue: []string{"guide me"}}
	l := NewListener(rec, testLogger())

	if !l.Supported() {
		t.Fatal("Supported() = false with a recognizer attached")
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got := collectEvents(t, l.Events(), 3)
	wantKinds := []EventKind{EventListeningStarted, EventListeningEnded, EventTranscript}
	for i, want := range wantKinds {
		if got[i].Kind != want {
			t.Errorf("event %d kind = %v, want %v", i, got[i].Kind, want)
		}
	}
	if got[2].Transcript != "guide me" {
		t.Errorf("transcript = %q, want %q", got[2].Transcript, "guide me")
	}
}

func TestListener_DiscardsEmptyTranscript(t *testing.T) {
	rec := &fakeRecognizer{queue: []string{"   \n"}}
	l := NewListener(rec, testLogger())

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got := collectEvents(t, l.Events(), 2)
	if got[0].Kind != EventListeningStarted || got[1].Kind != EventListeningEnded {
		t.Fatalf("unexpected lifecycle events: %+v", got)
	}
	select {
	case ev := <-l.Events():
		t.Errorf("whitespace transcript produced event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListener_NotSupported(t *testing.T) {
	l := NewListener(nil, testLogger())
	if l.Supported() {
		t.Error("Supported() = true with no recognizer")
	}
	if err := l.Start(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Start() error = %v, want ErrNotSupported", err)
	}
}

func TestListener_StopWhileIdleIsSafe(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, testLogger())
	l.Stop()
	l.Stop()
}

func TestListener_RestartCancelsPreviousSession(t *testing.T) {
	rec := &fakeRecognizer{queue: []string{"first", "second"}, block: make(chan struct{})}
	l := NewListener(rec, testLogger())
	ctx := context.Background()

	if err := l.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	// The first session is blocked inside Recognize. Restarting must cancel
	// it rather than leak a second concurrent capture.
	if err := l.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !rec.wasStopped() {
		t.Error("previous recognizer session was not stopped on restart")
	}

	close(rec.block)
	var transcripts []string
	deadline := time.After(2 * time.Second)
	for len(transcripts) == 0 {
		select {
		case ev := <-l.Events():
			if ev.Kind == EventTranscript {
				transcripts = append(transcripts, ev.Transcript)
			}
		case <-deadline:
			t.Fatal("no transcript from the restarted session")
		}
	}
	if transcripts[0] != "first" {
		t.Errorf("transcript = %q, want %q", transcripts[0], "first")
	}
}

func TestReaderRecognizer(t *testing.T) {
	rec := NewReaderRecognizer(strings.NewReader("hear my prayer\nsecond line\n"))

	got, err := rec.Recognize(context.Background())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "hear my prayer" {
		t.Errorf("Recognize() = %q, want first line only", got)
	}
}

func TestReaderRecognizer_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	rec := NewReaderRecognizer(pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.Recognize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Recognize() error = %v, want context.Canceled", err)
	}
}
