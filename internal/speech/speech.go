// Package speech coordinates voice output and voice input for the
// companion. At most one audio or speech unit is ever audible at a time,
// and recognition runs as single-shot sessions.
package speech

import (
	"context"
	"errors"
	"io"
)

// ErrQuotaExceeded indicates the voice synthesis vendor rejected the call
// because the account quota is exhausted.
var ErrQuotaExceeded = errors.New("voice synthesis quota exceeded")

// ErrNotSupported indicates no speech recognition capability is available.
var ErrNotSupported = errors.New("speech recognition is not supported")

// Playback is one started audio or speech unit.
type Playback interface {
	// Done is closed when playback finishes or is stopped.
	Done() <-chan struct{}

	// Stop halts playback and releases its resources. Idempotent.
	Stop()
}

// Player starts playback of a synthesized audio payload. The player owns
// the payload and closes it when playback ends or is stopped.
type Player interface {
	Play(ctx context.Context, audio io.ReadCloser) (Playback, error)
}

// Synthesizer turns text into a playable audio payload.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// Voice describes one voice offered by the local speech engine.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single request to the local speech engine.
type Utterance struct {
	Text  string
	Voice Voice
	Pitch float64
	Rate  float64
}

// Engine is the platform speech synthesizer used when the vendor voice is
// unavailable.
type Engine interface {
	Voices() []Voice
	Speak(ctx context.Context, u Utterance) (Playback, error)
}
