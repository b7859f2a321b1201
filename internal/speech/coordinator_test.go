package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakePlayback records whether it was stopped and lets tests end playback
// on demand.
type fakePlayback struct {
	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{done: make(chan struct{})}
}

func (p *fakePlayback) Done() <-chan struct{} { return p.done }

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.done)
}

func (p *fakePlayback) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.done)
	}
}

func (p *fakePlayback) wasStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// fakeSynth returns canned audio or a canned error and counts calls.
type fakeSynth struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader("audio:" + text)), nil
}

func (s *fakeSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// fakePlayer hands out fake playbacks and remembers them in order.
type fakePlayer struct {
	mu        sync.Mutex
	playbacks []*fakePlayback
}

func (p *fakePlayer) Play(ctx context.Context, audio io.ReadCloser) (Playback, error) {
	audio.Close()
	pb := newFakePlayback()
	p.mu.Lock()
	p.playbacks = append(p.playbacks, pb)
	p.mu.Unlock()
	return pb, nil
}

func (p *fakePlayer) playback(i int) *fakePlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playbacks[i]
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.playbacks)
}

// fakeEngine records utterances sent to the fallback voice.
type fakeEngine struct {
	mu         sync.Mutex
	voices     []Voice
	utterances []Utterance
	playbacks  []*fakePlayback
}

func (e *fakeEngine) Voices() []Voice { return e.voices }

func (e *fakeEngine) Speak(ctx context.Context, u Utterance) (Playback, error) {
	pb := newFakePlayback()
	e.mu.Lock()
	e.utterances = append(e.utterances, u)
	e.playbacks = append(e.playbacks, pb)
	e.mu.Unlock()
	return pb, nil
}

func (e *fakeEngine) lastUtterance(t *testing.T) Utterance {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.utterances) == 0 {
		t.Fatal("fallback engine was never used")
	}
	return e.utterances[len(e.utterances)-1]
}

func TestCoordinator_EmptyTextIsNoOp(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	c := NewCoordinator(synth, player, nil, testLogger())

	for _, text := range []string{"", "   ", "\n\t"} {
		done, err := c.Speak(context.Background(), text)
		if err != nil {
			t.Fatalf("Speak(%q) error = %v", text, err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Speak(%q) done channel not closed immediately", text)
		}
	}
	if synth.callCount() != 0 {
		t.Errorf("synthesizer called %d times for empty text, want 0", synth.callCount())
	}
}

func TestCoordinator_SecondSpeakStopsFirst(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	c := NewCoordinator(synth, player, nil, testLogger())
	ctx := context.Background()

	doneA, err := c.Speak(ctx, "utterance A")
	if err != nil {
		t.Fatalf("Speak(A) error = %v", err)
	}

	doneB, err := c.Speak(ctx, "utterance B")
	if err != nil {
		t.Fatalf("Speak(B) error = %v", err)
	}

	pbA := player.playback(0)
	if !pbA.wasStopped() {
		t.Error("first playback still active after second Speak")
	}
	select {
	case <-doneA:
	case <-time.After(time.Second):
		t.Error("first playback's done channel never closed; resource leaked")
	}

	pbB := player.playback(1)
	if pbB.wasStopped() {
		t.Error("second playback was stopped prematurely")
	}
	select {
	case <-doneB:
		t.Error("second playback reported done while still playing")
	default:
	}

	if player.count() != 2 {
		t.Errorf("player started %d playbacks, want 2", player.count())
	}
	pbB.finish()
}

func TestCoordinator_StopIsIdempotent(t *testing.T) {
	c := NewCoordinator(&fakeSynth{}, &fakePlayer{}, nil, testLogger())

	// Nothing is playing; Stop must be safe, repeatedly.
	c.Stop()
	c.Stop()

	done, err := c.Speak(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	c.Stop()
	c.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("done channel not closed after Stop")
	}
}

func TestCoordinator_QuotaFailureFallsBack(t *testing.T) {
	synth := &fakeSynth{err: ErrQuotaExceeded}
	player := &fakePlayer{}
	engine := &fakeEngine{voices: []Voice{
		{Name: "Daniel", Lang: "en-GB"},
		{Name: "US Matthew", Lang: "en-US"},
	}}
	c := NewCoordinator(synth, player, engine, testLogger())

	_, err := c.Speak(context.Background(), "fallback please")
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	u := engine.lastUtterance(t)
	if u.Text != "fallback please" {
		t.Errorf("fallback text = %q", u.Text)
	}
	if u.Pitch != PersonaPitch || u.Rate != PersonaRate {
		t.Errorf("utterance tuning = (%v, %v), want (%v, %v)", u.Pitch, u.Rate, PersonaPitch, PersonaRate)
	}
	if u.Voice.Name != "US Matthew" {
		t.Errorf("chosen voice = %q, want preferred-name match", u.Voice.Name)
	}
	if player.count() != 0 {
		t.Errorf("player used %d times despite vendor failure, want 0", player.count())
	}
}

func TestCoordinator_VendorErrorFallsBack(t *testing.T) {
	synth := &fakeSynth{err: errors.New("503 service unavailable")}
	engine := &fakeEngine{voices: []Voice{{Name: "Any", Lang: "fr-FR"}}}
	c := NewCoordinator(synth, &fakePlayer{}, engine, testLogger())

	if _, err := c.Speak(context.Background(), "still speak"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if got := engine.lastUtterance(t).Voice.Name; got != "Any" {
		t.Errorf("voice = %q, want the only available voice", got)
	}
}

func TestCoordinator_NoSynthGoesStraightToEngine(t *testing.T) {
	engine := &fakeEngine{voices: []Voice{{Name: "Brian HQ", Lang: "en-GB"}}}
	c := NewCoordinator(nil, nil, engine, testLogger())

	if _, err := c.Speak(context.Background(), "text mode voice"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if got := engine.lastUtterance(t).Voice.Name; got != "Brian HQ" {
		t.Errorf("voice = %q, want pattern match on Brian", got)
	}
}

func TestChooseVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		want   string
		wantOK bool
	}{
		{
			name:   "no voices",
			voices: nil,
			wantOK: false,
		},
		{
			name: "preferred name wins over locale",
			voices: []Voice{
				{Name: "Samantha", Lang: "en-US"},
				{Name: "Matthew Neural", Lang: "en-AU"},
			},
			want:   "Matthew Neural",
			wantOK: true,
		},
		{
			name: "pattern order decides",
			voices: []Voice{
				{Name: "Brian", Lang: "en-GB"},
				{Name: "Matthew", Lang: "en-US"},
			},
			want:   "Matthew",
			wantOK: true,
		},
		{
			name: "locale fallback",
			voices: []Voice{
				{Name: "Amelie", Lang: "fr-FR"},
				{Name: "Samantha", Lang: "en-US"},
			},
			want:   "Samantha",
			wantOK: true,
		},
		{
			name: "any voice as last resort",
			voices: []Voice{
				{Name: "Amelie", Lang: "fr-FR"},
			},
			want:   "Amelie",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChooseVoice(tt.voices)
			if ok != tt.wantOK {
				t.Fatalf("ChooseVoice() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Name != tt.want {
				t.Errorf("ChooseVoice() = %q, want %q", got.Name, tt.want)
			}
		})
	}
}
