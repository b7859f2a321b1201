package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Coordinator owns the single "currently playing" audio handle. Starting a
// new utterance first tears down whatever is playing, across both the
// vendor voice and the local fallback engine.
type Coordinator struct {
	synth  Synthesizer
	player Player
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	current Playback
}

// NewCoordinator creates a speech output coordinator. synth and player may
// be nil, in which case every utterance goes straight to the fallback
// engine.
func NewCoordinator(synth Synthesizer, player Player, engine Engine, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		synth:  synth,
		player: player,
		engine: engine,
		logger: logger,
	}
}

// Speak voices the given text and returns a channel that is closed when
// playback ends or is stopped. Empty or whitespace-only text is a no-op.
// Vendor failures degrade to the fallback engine; quota exhaustion is
// logged so the degradation is visible.
func (c *Coordinator) Speak(ctx context.Context, text string) (<-chan struct{}, error) {
	if strings.TrimSpace(text) == "" {
		done := make(chan struct{})
		close(done)
		return done, nil
	}

	c.Stop()

	if c.synth != nil && c.player != nil {
		done, err := c.speakSynthesized(ctx, text)
		if err == nil {
			return done, nil
		}
		if errors.Is(err, ErrQuotaExceeded) {
			c.logger.Warn("voice quota exhausted, using fallback voice", "error", err)
		} else {
			c.logger.Error("voice synthesis failed, using fallback voice", "error", err)
		}
	}

	return c.speakFallback(ctx, text)
}

// Stop halts any current playback. Idempotent and safe when nothing is
// playing.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()

	if current != nil {
		current.Stop()
	}
}

func (c *Coordinator) speakSynthesized(ctx context.Context, text string) (<-chan struct{}, error) {
	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	pb, err := c.player.Play(ctx, audio)
	if err != nil {
		return nil, err
	}
	c.adopt(pb)
	return pb.Done(), nil
}

func (c *Coordinator) speakFallback(ctx context.Context, text string) (<-chan struct{}, error) {
	if c.engine == nil {
		return nil, fmt.Errorf("no speech output available")
	}

	u := Utterance{
		Text:  text,
		Pitch: PersonaPitch,
		Rate:  PersonaRate,
	}
	if voice, ok := ChooseVoice(c.engine.Voices()); ok {
		u.Voice = voice
	}

	pb, err := c.engine.Speak(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fallback speech failed: %w", err)
	}
	c.adopt(pb)
	return pb.Done(), nil
}

// adopt records pb as the active playback and clears it once it finishes,
// so a long-idle coordinator does not hold a dead handle.
func (c *Coordinator) adopt(pb Playback) {
	c.mu.Lock()
	c.current = pb
	c.mu.Unlock()

	go func() {
		<-pb.Done()
		c.mu.Lock()
		if c.current == pb {
			c.current = nil
		}
		c.mu.Unlock()
	}()
}
