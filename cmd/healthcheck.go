package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var healthcheckDetails bool

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that msghelp can load its config and reach its store",
	Long: `Check the health of msghelp by verifying:
  • Configuration loads and validates
  • The configured store opens
  • Stored history and flags decode
  • Suggestion endpoints are well-formed URLs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(cmd.OutOrStdout())
	},
}

func runHealthcheck(w io.Writer) error {
	fmt.Fprintln(w, sectionStyle.Render("🔍 msghelp Health Check"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Step 1: Loading configuration..."))
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Configuration invalid:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintln(w, successStyle.Render("✅ Configuration loaded"))
	if healthcheckDetails {
		fmt.Fprintf(w, "   Store: %s\n", cfg.Store.Type)
		if cfg.Store.Type == internal.StoreTypeSQLite {
			fmt.Fprintf(w, "   Database: %s\n", cfg.Store.Path)
		}
		fmt.Fprintf(w, "   Bridge: %s%s\n", cfg.Bridge.Listen, cfg.Bridge.Path)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Step 2: Opening store..."))
	kv, err := cfg.OpenStore()
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to open store:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = kv.Close() }()
	fmt.Fprintln(w, successStyle.Render("✅ Store opened"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Step 3: Reading history and flags..."))
	ctx := context.Background()
	messages, err := internal.NewMessageStore(kv, cfg.Capture.HistoryLimit).All(ctx)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to read history:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	enabled, err := internal.ReadFlag(ctx, kv, internal.KeyEnabled)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to read flags:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	sessions := summarizeSessions(messages)
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ %d message(s) in %d conversation(s)", len(messages), len(sessions))))
	if !enabled {
		fmt.Fprintln(w, warningStyle.Render("⚠️  Suggestions are disabled (run `msghelp enable`)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Step 4: Checking suggestion endpoints..."))
	bad := 0
	for _, ep := range []string{cfg.Suggest.ReplyEndpoint, cfg.Suggest.GeneralEndpoint} {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fmt.Fprintln(w, errorStyle.Render("❌ Invalid endpoint:"), ep)
			bad++
			continue
		}
		if healthcheckDetails {
			fmt.Fprintf(w, "   %s\n", ep)
		}
	}
	if bad > 0 {
		return fmt.Errorf("health check failed: %d invalid endpoint(s)", bad)
	}
	fmt.Fprintln(w, successStyle.Render("✅ Endpoints look valid"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, sectionStyle.Render("📊 Summary"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("✅ Health check passed!"))
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
