package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/msghelp/internal"
	"github.com/iksnae/msghelp/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputPath string
	sessionID  string
)

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export captured history to a file",
	Long: `Export captured messages to json, jsonl, md or yaml.

Writes to stdout unless --output is given. A directory output gets a
history.<ext> file inside it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		_, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		ctx := context.Background()
		var messages []internal.Message
		err = internal.ShowProgress(ctx, "Loading history", func() error {
			var loadErr error
			messages, loadErr = loadHistory(ctx, kv, sessionID)
			return loadErr
		})
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if sessionID != "" && len(messages) == 0 {
			return fmt.Errorf("session not found: %s (use 'msghelp history list' to see available sessions)", sessionID)
		}

		if outputPath == "" || outputPath == "-" {
			return exporter.Export(messages, cmd.OutOrStdout())
		}

		path, err := exportTarget(outputPath, exporter.Extension())
		if err != nil {
			return err
		}
		if err := writeExport(path, exporter, messages); err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Exported %d message(s) to %s", len(messages), path))
		return nil
	},
}

// exportTarget resolves --output to a file path, creating parent directories
func exportTarget(output, ext string) (string, error) {
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, "history."+ext), nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return output, nil
}

func writeExport(path string, exporter export.Exporter, messages []internal.Message) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := exporter.Export(messages, file); err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	return nil
}

func init() {
	historyCmd.AddCommand(historyExportCmd)
	historyExportCmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (json, jsonl, md, yaml)")
	historyExportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory (default stdout)")
	historyExportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a single conversation")
}
