package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/castillo-ev/talk2jesus/internal/controller"
	"github.com/castillo-ev/talk2jesus/internal/session"
	"github.com/castillo-ev/talk2jesus/internal/speech"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Voice call: speak, listen, interrupt",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		listener := a.newListener()
		if !listener.Supported() {
			fmt.Println(faintStyle.Render("Speech input is not available; use 'talk2jesus text' instead."))
			return nil
		}

		c := a.newController(session.TypeVoice, a.newSpeaker(), listener)
		if err := c.StartSession(ctx, sessionFlag, prefillFlag); err != nil {
			return fmt.Errorf("failed to start call: %w", err)
		}

		if prefillFlag != "" {
			if err := c.SubmitPrefill(ctx, prefillFlag); err != nil {
				a.logger.Warn("prefill turn failed", "error", err)
			}
		}

		fmt.Println(faintStyle.Render("Call connected. Each line you type is one spoken utterance; Ctrl+C hangs up."))
		connected := time.Now()
		defer func() {
			listener.Stop()
			fmt.Println(faintStyle.Render("Call ended after " + formatCallTime(time.Since(connected))))
		}()
		if err := listener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start listening: %w", err)
		}

		runCallLoop(cmd, c, listener, false)
		return nil
	},
}

// runCallLoop dispatches listener events into conversation turns until the
// context ends or input runs out. Speaking over an in-flight reply
// interrupts it and starts a fresh turn.
func runCallLoop(cmd *cobra.Command, c *controller.Controller, listener *speech.Listener, streaming bool) {
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-listener.Events():
			switch ev.Kind {
			case speech.EventListeningStarted:
				fmt.Println(faintStyle.Render("Listening..."))
			case speech.EventListeningEnded:
			case speech.EventTranscript:
				fmt.Println(userStyle.Render("You: ") + ev.Transcript)
				submit := c.SubmitUserText
				if streaming {
					submit = c.SubmitStreamingUserText
				}
				err := submit(ctx, ev.Transcript)
				if errors.Is(err, controller.ErrBusy) {
					c.Interrupt(ctx)
					err = submit(ctx, ev.Transcript)
				}
				if errors.Is(err, controller.ErrBusy) {
					fmt.Println(faintStyle.Render("Still answering; a moment, please."))
					continue
				}
				if err != nil {
					fmt.Println(faintStyle.Render("The connection faltered; try again."))
					continue
				}
				printLastReply(c.Session())
			}
		}
	}
}

// formatCallTime renders a call duration as mm:ss.
func formatCallTime(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func init() {
	rootCmd.AddCommand(callCmd)
}
