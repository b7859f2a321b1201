// Package cli wires the conversation modes into a command-line surface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	logLevelFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "talk2jesus",
	Short: "A conversational companion in the voice of Jesus",
	Long: `talk2jesus is a conversational companion: type or speak, and the
persona answers in text and voice.

Modes:
  talk2jesus text                 # typed chat, replies spoken aloud
  talk2jesus call                 # voice call: speak, listen, interrupt
  talk2jesus video                # streaming avatar call
  talk2jesus history              # list past conversations
  talk2jesus export <session-id>  # export a conversation`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command under the given context.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}
