package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch <snapshot.html>",
	Short: "Run the capture engine over a page snapshot that keeps changing",
	Long: `Feed a saved chat page to the capture engine and re-feed it every time
the file changes. Suggestions and waiting signals are printed to stdout.

Mark newly rendered bubbles with data-msghelp-added to have them
treated as live messages.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := internal.NewEngine(cfg.EngineConfig(), kv, newCoordinator(cfg), internal.NewTerminalNotifier(cmd.OutOrStdout()))
		return runWithEngine(ctx, engine, func(ctx context.Context) error {
			return internal.WatchSnapshot(ctx, args[0], pageURL, engine)
		})
	},
}

// runWithEngine runs the engine loop next to fn and stops both when either ends
func runWithEngine(ctx context.Context, engine *internal.Engine, fn func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return fn(ctx)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&pageURL, "url", "https://web.whatsapp.com/", "URL the snapshot was saved from")
}
