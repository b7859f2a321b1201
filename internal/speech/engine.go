package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
)

// Persona voice tuning for the fallback engine, matching the vendor voice
// as closely as a local synthesizer can.
const (
	PersonaPitch = 0.4
	PersonaRate  = 0.88
)

// PersonaLocale is the voice locale the persona speaks in.
const PersonaLocale = "en-US"

// PreferredVoicePatterns are name globs tried in order when picking a
// fallback voice.
var PreferredVoicePatterns = []string{"*Matthew*", "*Brian*"}

// ChooseVoice picks the fallback voice: the first voice whose name matches
// a preferred pattern, else the first voice in the persona locale, else the
// first voice at all. Returns false if no voices exist.
func ChooseVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, pattern := range PreferredVoicePatterns {
		for _, v := range voices {
			if ok, _ := doublestar.Match(pattern, v.Name); ok {
				return v, true
			}
		}
	}
	for _, v := range voices {
		if v.Lang == PersonaLocale {
			return v, true
		}
	}
	return voices[0], true
}

// CommandEngine drives an espeak-style command-line synthesizer as the
// local fallback voice.
type CommandEngine struct {
	binary string
	voices []Voice
	logger *slog.Logger
}

// NewCommandEngine creates an engine around the given binary and its
// available voices.
func NewCommandEngine(binary string, voices []Voice, logger *slog.Logger) *CommandEngine {
	return &CommandEngine{binary: binary, voices: voices, logger: logger}
}

// Voices lists the voices the engine offers.
func (e *CommandEngine) Voices() []Voice {
	return e.voices
}

// Speak runs the synthesizer process for one utterance. Pitch maps from
// 0..1 onto the tool's 0..99 scale and rate is a multiplier on the default
// speaking speed.
func (e *CommandEngine) Speak(ctx context.Context, u Utterance) (Playback, error) {
	args := []string{}
	if u.Voice.Name != "" {
		args = append(args, "-v", u.Voice.Name)
	}
	if u.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(int(u.Pitch*99)))
	}
	if u.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(int(u.Rate*175)))
	}
	args = append(args, u.Text)

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, e.binary, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start speech engine: %w", err)
	}

	pb := &processPlayback{done: make(chan struct{}), cancel: cancel}
	go func() {
		if err := cmd.Wait(); err != nil && cctx.Err() == nil {
			e.logger.Warn("speech engine exited with error", "error", err)
		}
		cancel()
		close(pb.done)
	}()
	return pb, nil
}

// processPlayback tracks one child process producing audio.
type processPlayback struct {
	done   chan struct{}
	cancel context.CancelFunc
}

// Done is closed when the process exits.
func (p *processPlayback) Done() <-chan struct{} {
	return p.done
}

// Stop kills the process; safe to call repeatedly.
func (p *processPlayback) Stop() {
	p.cancel()
}
