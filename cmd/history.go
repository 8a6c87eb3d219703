package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var historyYes bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage captured message history",
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all captured messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyYes {
			return fmt.Errorf("refusing to clear history without --yes")
		}

		_, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		store := internal.NewMessageStore(kv, 0)
		if err := store.Clear(context.Background()); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	},
}

// loadHistory returns stored messages, newest first, optionally limited to one session
func loadHistory(ctx context.Context, kv internal.KVStore, sessionID string) ([]internal.Message, error) {
	store := internal.NewMessageStore(kv, 0)
	if sessionID != "" {
		return store.SessionMessages(ctx, sessionID)
	}
	return store.All(ctx)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Confirm deleting the history")
}
