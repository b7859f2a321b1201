package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/castillo-ev/talk2jesus/internal/avatar"
	"github.com/castillo-ev/talk2jesus/internal/session"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Video call with the streaming avatar",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.cfg.ValidateVideo(); err != nil {
			return err
		}

		listener := a.newListener()
		if !listener.Supported() {
			return fmt.Errorf("speech input is not available; video mode needs it")
		}

		client := avatar.NewClient(a.cfg.HeyGenAPIKey, a.logger)
		token, err := client.CreateToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to create avatar session: %w", err)
		}

		settings := avatar.Settings{
			AvatarName: a.cfg.HeyGenAvatarName,
			VoiceID:    a.cfg.HeyGenVoiceID,
			Quality:    avatar.QualityHigh,
		}
		sess, err := avatar.Dial(avatar.DefaultStreamURL, token, settings, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect avatar stream: %w", err)
		}
		defer sess.Close()

		speaker := newAvatarSpeaker(sess)
		go speaker.run()
		speaker.waitReady(ctx)
		fmt.Println(faintStyle.Render("Avatar connected."))

		c := a.newController(session.TypeVideo, speaker, listener)
		if err := c.StartSession(ctx, sessionFlag, prefillFlag); err != nil {
			return fmt.Errorf("failed to start call: %w", err)
		}

		if prefillFlag != "" {
			if err := c.SubmitPrefill(ctx, prefillFlag); err != nil {
				a.logger.Warn("prefill turn failed", "error", err)
			}
		}

		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start listening: %w", err)
		}
		runCallLoop(cmd, c, listener, true)
		return nil
	},
}

// avatarStream is the slice of avatar.Session the speaker drives.
type avatarStream interface {
	Speak(text string) error
	Interrupt() error
	Events() <-chan avatar.Event
}

// avatarSpeaker adapts an avatar session to the controller's Speaker: a
// Speak resolves when the avatar stops talking, and Stop cuts the current
// utterance off.
type avatarSpeaker struct {
	sess avatarStream

	mu      sync.Mutex
	ready   chan struct{}
	current chan struct{}
	gone    bool
}

func newAvatarSpeaker(sess avatarStream) *avatarSpeaker {
	return &avatarSpeaker{
		sess:  sess,
		ready: make(chan struct{}),
	}
}

// run pumps session events until the stream ends.
func (s *avatarSpeaker) run() {
	readyOnce := sync.Once{}
	for ev := range s.sess.Events() {
		switch ev.Kind {
		case avatar.EventStreamReady:
			readyOnce.Do(func() { close(s.ready) })
		case avatar.EventAvatarStopTalking:
			s.finishCurrent()
		case avatar.EventStreamDisconnected:
			s.mu.Lock()
			s.gone = true
			s.mu.Unlock()
			s.finishCurrent()
			return
		}
	}
}

// waitReady blocks until the stream can accept speak tasks.
func (s *avatarSpeaker) waitReady(ctx context.Context) {
	select {
	case <-s.ready:
	case <-ctx.Done():
	}
}

func (s *avatarSpeaker) Speak(ctx context.Context, text string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.gone {
		s.mu.Unlock()
		return nil, fmt.Errorf("avatar stream is gone")
	}
	done := make(chan struct{})
	s.current = done
	s.mu.Unlock()

	if err := s.sess.Speak(text); err != nil {
		s.finishCurrent()
		return nil, err
	}
	return done, nil
}

func (s *avatarSpeaker) Stop() {
	// Release the waiter even when the interrupt cannot reach the stream.
	_ = s.sess.Interrupt()
	s.finishCurrent()
}

func (s *avatarSpeaker) finishCurrent() {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()
	if current != nil {
		close(current)
	}
}

func init() {
	rootCmd.AddCommand(videoCmd)
}
