package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var suggestMode string

var suggestCmd = &cobra.Command{
	Use:   "suggest <session-id>",
	Short: "Request a reply suggestion for a stored conversation",
	Long: `Send the stored conversation's newest message and its context window to
the suggestion service and print the suggestions. The endpoint follows the
stored mode unless --mode is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		notifier := internal.NewTerminalNotifier(cmd.OutOrStdout())
		return requestFor(ctx, cfg, kv, args[0], suggestMode, notifier)
	},
}

// requestFor asks for a suggestion for sessionID's stored window and reports
// it through notifier. An empty mode reads the stored mode flag.
func requestFor(ctx context.Context, cfg *internal.Config, kv internal.KVStore, sessionID, mode string, notifier internal.Notifier) error {
	store := internal.NewMessageStore(kv, cfg.Capture.HistoryLimit)
	history, err := store.SessionMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("session not found: %s (use 'msghelp history list' to see available sessions)", sessionID)
	}

	endpoint, err := resolveEndpoint(ctx, cfg, kv, mode)
	if err != nil {
		return err
	}

	current, contextWindow := internal.SplitWindow(history, store.Limit())
	if !current.IsIncoming() {
		notifier.ShowWaiting()
	}

	notifier.ShowLoading()
	var s internal.Suggestion
	err = internal.ShowProgress(ctx, "Requesting suggestion", func() error {
		var reqErr error
		s, reqErr = newCoordinator(cfg).RequestSuggestion(ctx, current, contextWindow, internal.WithEndpoint(endpoint))
		return reqErr
	})
	if err != nil {
		notifier.ShowError(err)
		return err
	}

	notifier.ShowSuggestions(internal.SplitSuggestions(s.Suggestion))
	return nil
}

func resolveEndpoint(ctx context.Context, cfg *internal.Config, kv internal.KVStore, mode string) (string, error) {
	switch mode {
	case "reply":
		return cfg.Suggest.ReplyEndpoint, nil
	case "general":
		return cfg.Suggest.GeneralEndpoint, nil
	case "":
		reply, err := internal.ReadFlag(ctx, kv, internal.KeyMode)
		if err != nil {
			return "", err
		}
		if reply {
			return cfg.Suggest.ReplyEndpoint, nil
		}
		return cfg.Suggest.GeneralEndpoint, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use reply or general)", mode)
	}
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringVar(&suggestMode, "mode", "", "Endpoint to use (reply, general); defaults to the stored mode")
}
