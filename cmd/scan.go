package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var (
	pageURL     string
	scanSuggest bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <snapshot.html>",
	Short: "Seed history from a saved chat page",
	Long: `Parse a saved HTML page of an open conversation, store its newest
messages as that conversation's history and report what a live session
would signal next.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		page, _, err := readSnapshot(args[0], pageURL)
		if err != nil {
			return err
		}

		ctx := context.Background()
		res, err := scanPage(ctx, cfg, kv, page)
		if err != nil {
			return err
		}
		printScan(cmd.OutOrStdout(), res)

		if scanSuggest && res.Outcome == internal.OutcomeSuggest {
			return requestFor(ctx, cfg, kv, res.Session.SessionID, "", internal.NewTerminalNotifier(cmd.OutOrStdout()))
		}
		return nil
	},
}

// readSnapshot parses an HTML file as the page at rawURL
func readSnapshot(path, rawURL string) (*internal.Page, []internal.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	return internal.ParsePage(f, rawURL)
}

func scanPage(ctx context.Context, cfg *internal.Config, kv internal.KVStore, page *internal.Page) (*internal.ScanResult, error) {
	info := internal.NewSessionTracker(cfg.Profile).Current(page)
	scanner := internal.NewContextScanner(
		internal.NewBubbleClassifier(cfg.Profile),
		internal.NewMessageStore(kv, cfg.Capture.HistoryLimit),
	)

	res, err := scanner.Scan(ctx, page, info)
	if err != nil {
		if res != nil {
			internal.PrintWarning(fmt.Sprintf("history not stored: %v", err))
			return res, nil
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return res, nil
}

func printScan(w io.Writer, res *internal.ScanResult) {
	fmt.Fprintf(w, "Session: %s\n", res.Session.SessionID)
	fmt.Fprintf(w, "Bubbles: %d, stored: %d\n", res.Total, len(res.Window))
	fmt.Fprintf(w, "Outcome: %s\n", res.Outcome)

	if len(res.Window) == 0 {
		return
	}
	fmt.Fprintln(w)
	newestFirst := make([]internal.Message, len(res.Window))
	for i, m := range res.Window {
		newestFirst[len(res.Window)-1-i] = m
	}
	displayConversation(w, newestFirst)
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&pageURL, "url", "https://web.whatsapp.com/", "URL the snapshot was saved from")
	scanCmd.Flags().BoolVar(&scanSuggest, "suggest", false, "Request a suggestion when the newest message is incoming")
}
