package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	storeType  string
	storePath  string
	redisAddr  string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "msghelp",
	Short: "Capture chat messages from a web page and suggest replies",
	Long: `msghelp watches a chat web page, keeps a short per-conversation history
of the messages it renders, and asks a suggestion service for replies.

Features:
  • Live capture over a websocket bridge from the page relay
  • One-shot scans and file watching of saved HTML snapshots
  • Per-conversation history in sqlite, redis or memory
  • Cached and coalesced suggestion requests with retry
  • History export (JSON, JSONL, Markdown, YAML)

Quick Start:
  msghelp serve                          # Start the bridge for the page relay
  msghelp scan page.html --url URL       # Scan a saved page
  msghelp history list                   # Show captured conversations
  msghelp suggest <session-id>           # Ask for a reply to a stored conversation`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetupLogging(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+internal.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&storeType, "store", "", "Store type (sqlite, redis, memory)")
	rootCmd.PersistentFlags().StringVar(&storePath, "db", "", "Path to the sqlite database")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the redis store")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig reads the config file and applies the persistent flag overrides
func loadConfig() (*internal.Config, error) {
	path := configPath
	if path == "" {
		path = internal.DefaultConfigPath()
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if storeType != "" {
		cfg.Store.Type = internal.StoreType(storeType)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
		if storeType == "" {
			cfg.Store.Type = internal.StoreTypeSQLite
		}
	}
	if redisAddr != "" {
		cfg.Store.RedisAddr = redisAddr
		if storeType == "" {
			cfg.Store.Type = internal.StoreTypeRedis
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore loads the config and opens its store. Callers close the store.
func openStore() (*internal.Config, internal.KVStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	kv, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, kv, nil
}

// newCoordinator builds the suggestion client and cache from cfg
func newCoordinator(cfg *internal.Config) *internal.SuggestionCoordinator {
	client := internal.NewSuggestionClient(cfg.Suggest.Retry, &http.Client{})
	return internal.NewSuggestionCoordinator(client, cfg.CoordinatorConfig())
}
