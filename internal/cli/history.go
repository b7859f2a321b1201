package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	historyHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				Padding(0, 1)

	historyTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	historyIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	historyDateStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println(faintStyle.Render("No conversations yet."))
			return nil
		}

		fmt.Println(historyHeaderStyle.Render(fmt.Sprintf("%d conversation(s)", len(sessions))))
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, sess := range sessions {
			when := sess.UpdatedAt
			if when.IsZero() {
				when = sess.CreatedAt
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d msgs\n",
				historyTitleStyle.Render(sess.Title),
				string(sess.Type),
				historyDateStyle.Render(when.Format("2006-01-02 15:04")),
				historyIDStyle.Render(sess.ID),
				len(sess.Messages),
			)
		}
		return w.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a conversation permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
