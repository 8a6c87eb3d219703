package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var selftestRequest bool

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Seed a sample conversation and optionally request a suggestion for it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		ctx := context.Background()
		store := internal.NewMessageStore(kv, cfg.Capture.HistoryLimit)
		msgs, err := internal.SeedSelfTest(ctx, store, time.Now())
		if err != nil {
			return fmt.Errorf("failed to seed self test: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d message(s) into %s\n", len(msgs), internal.SelfTestSessionID)

		if !selftestRequest {
			return nil
		}
		return requestFor(ctx, cfg, kv, internal.SelfTestSessionID, "", internal.NewTerminalNotifier(cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
	selftestCmd.Flags().BoolVar(&selftestRequest, "request", false, "Also request a suggestion for the seeded conversation")
}
