package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/castillo-ev/talk2jesus/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a conversation to file",
	Long: `Export a conversation in a shareable format (json, md, yaml).

Use 'talk2jesus history' to see available session ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = fmt.Sprintf("%s.%s", sess.ID, exporter.Extension())
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		if err := exporter.Export(sess, f); err != nil {
			return fmt.Errorf("failed to export conversation: %w", err)
		}
		fmt.Printf("Exported %s to %s\n", sess.ID, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format: json, md, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (defaults to <session-id>.<ext>)")
	rootCmd.AddCommand(exportCmd)
}
