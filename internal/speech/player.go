package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// CommandPlayer plays an audio payload by piping it into an external
// player process (mpg123, ffplay, afplay and friends).
type CommandPlayer struct {
	command []string
	logger  *slog.Logger
}

// NewCommandPlayer creates a player around the given command line. The
// audio payload is written to the process's stdin.
func NewCommandPlayer(command []string, logger *slog.Logger) *CommandPlayer {
	return &CommandPlayer{command: command, logger: logger}
}

// Play starts the player process. The payload is closed when the process
// exits or the playback is stopped, releasing the transient resource.
func (p *CommandPlayer) Play(ctx context.Context, audio io.ReadCloser) (Playback, error) {
	if len(p.command) == 0 {
		audio.Close()
		return nil, fmt.Errorf("no audio player configured")
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, p.command[0], p.command[1:]...)
	cmd.Stdin = audio

	if err := cmd.Start(); err != nil {
		cancel()
		audio.Close()
		return nil, fmt.Errorf("failed to start audio player: %w", err)
	}

	pb := &processPlayback{done: make(chan struct{}), cancel: cancel}
	go func() {
		if err := cmd.Wait(); err != nil && cctx.Err() == nil {
			p.logger.Warn("audio player exited with error", "error", err)
		}
		cancel()
		audio.Close()
		close(pb.done)
	}()
	return pb, nil
}
