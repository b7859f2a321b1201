package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

var (
	sessionFlag string
	prefillFlag string
)

var (
	personaStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Typed conversation, replies spoken aloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		c := a.newController(session.TypeText, a.newSpeaker(), nil)
		if err := c.StartSession(ctx, sessionFlag, prefillFlag); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		printTranscript(c.Session())

		if prefillFlag != "" {
			if err := c.SubmitPrefill(ctx, prefillFlag); err != nil {
				a.logger.Warn("prefill turn failed", "error", err)
			}
			printLastExchange(c.Session())
		}

		fmt.Println(faintStyle.Render("Speak from your heart. Empty line to leave."))
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(userStyle.Render("You: "))
			if !scanner.Scan() {
				break
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}
			if err := c.SubmitUserText(ctx, text); err != nil {
				a.logger.Warn("turn failed", "error", err)
				continue
			}
			printLastReply(c.Session())
		}
		return scanner.Err()
	},
}

func printTranscript(sess *session.ChatSession) {
	if sess == nil {
		return
	}
	fmt.Println(faintStyle.Render("— " + sess.Title + " —"))
	for _, msg := range sess.Messages {
		printMessage(msg)
	}
}

func printLastExchange(sess *session.ChatSession) {
	if sess == nil || len(sess.Messages) < 2 {
		return
	}
	for _, msg := range sess.Messages[len(sess.Messages)-2:] {
		printMessage(msg)
	}
}

func printLastReply(sess *session.ChatSession) {
	if sess == nil || len(sess.Messages) == 0 {
		return
	}
	printMessage(sess.Messages[len(sess.Messages)-1])
}

func printMessage(msg session.Message) {
	switch msg.Role {
	case session.RoleUser:
		fmt.Println(userStyle.Render("You: ") + msg.Text)
	default:
		fmt.Println(personaStyle.Render("Jesus: ") + msg.Text)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{textCmd, callCmd, videoCmd} {
		cmd.Flags().StringVar(&sessionFlag, "session", "", "Resume the conversation with this id")
		cmd.Flags().StringVar(&prefillFlag, "prefill", "", "Start the conversation with this question")
	}
	rootCmd.AddCommand(textCmd)
}
