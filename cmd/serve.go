package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/msghelp/internal"
	"github.com/iksnae/msghelp/internal/bridge"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	quiet      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the websocket bridge for the page relay",
	Long: `Start the capture engine behind a websocket bridge. The page relay
connects to ws://<listen><path>, sends PAGE_UPDATE envelopes and receives
SHOW_SUGGESTIONS, SHOW_WAITING and SHOW_LOADING back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		addr := cfg.Bridge.Listen
		if listenAddr != "" {
			addr = listenAddr
		}

		server := bridge.NewServer(nil, cfg.Bridge.Path)
		notifier := internal.MultiNotifier{server.Notifier()}
		if !quiet {
			notifier = append(notifier, internal.NewTerminalNotifier(cmd.OutOrStdout()))
		}

		engine := internal.NewEngine(cfg.EngineConfig(), kv, newCoordinator(cfg), notifier)
		server.Attach(engine)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		internal.PrintInfo("Relay bridge on ws://" + addr + cfg.Bridge.Path)
		return runWithEngine(ctx, engine, func(ctx context.Context) error {
			return server.ListenAndServe(ctx, addr)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print suggestions to the terminal")
}
