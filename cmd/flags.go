package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Allow suggestion requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFlag(cmd, internal.KeyEnabled, true, "Suggestions enabled")
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop suggestion requests; capture keeps running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFlag(cmd, internal.KeyEnabled, false, "Suggestions disabled")
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode [reply|general]",
	Short: "Show or select the suggestion endpoint",
	Long: `Without an argument, print the stored flags. 'reply' uses the
suggest-reply endpoint, 'general' the general suggestion endpoint.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"reply", "general"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return printFlags(cmd)
		}

		switch strings.ToLower(args[0]) {
		case "reply", "on":
			return setFlag(cmd, internal.KeyMode, true, "Mode: reply")
		case "general", "off":
			return setFlag(cmd, internal.KeyMode, false, "Mode: general")
		default:
			return fmt.Errorf("unknown mode %q (use reply or general)", args[0])
		}
	},
}

func setFlag(cmd *cobra.Command, key string, value bool, msg string) error {
	_, kv, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	if err := internal.WriteFlag(context.Background(), kv, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func printFlags(cmd *cobra.Command) error {
	_, kv, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	ctx := context.Background()
	enabled, err := internal.ReadFlag(ctx, kv, internal.KeyEnabled)
	if err != nil {
		return err
	}
	reply, err := internal.ReadFlag(ctx, kv, internal.KeyMode)
	if err != nil {
		return err
	}

	mode := "general"
	if reply {
		mode = "reply"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enabled: %t\nmode: %s\n", enabled, mode)
	return nil
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(modeCmd)
}
