package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// sessionSummary is one row of `history list`
type sessionSummary struct {
	SessionID string
	ChatTitle string
	Platform  string
	Count     int
	Incoming  int
	Last      int64
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations with captured messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		messages, err := loadHistory(context.Background(), kv, "")
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		displaySessions(cmd.OutOrStdout(), summarizeSessions(messages), time.Now())
		return nil
	},
}

// summarizeSessions folds newest-first history into per-session rows, most
// recently active first
func summarizeSessions(messages []internal.Message) []sessionSummary {
	index := make(map[string]int)
	var out []sessionSummary
	for _, m := range messages {
		i, ok := index[m.SessionID]
		if !ok {
			i = len(out)
			index[m.SessionID] = i
			out = append(out, sessionSummary{
				SessionID: m.SessionID,
				ChatTitle: m.ChatTitle,
				Platform:  m.Platform,
				Last:      m.Timestamp,
			})
		}
		out[i].Count++
		if m.IsIncoming() {
			out[i].Incoming++
		}
	}
	return out
}

func displaySessions(w io.Writer, sessions []sessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("📋 No conversations captured yet"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Found %d conversation(s)", len(sessions))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("Session")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Last")+"\t")
	_, _ = fmt.Fprintln(tw, strings.Repeat("─", 80))

	for _, s := range sessions {
		title := s.ChatTitle
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 40 {
			title = title[:37] + "..."
		}

		count := countStyle.Render(strconv.Itoa(s.Count)) + dateStyle.Render(fmt.Sprintf(" (%d in)", s.Incoming))

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", idStyle.Render(s.SessionID), title, count, dateStyle.Render(formatWhen(s.Last, now)))
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, idStyle.Render("💡 Tip: use `msghelp history show "+sessions[0].SessionID+"` to read a conversation"))
}

// formatWhen renders an epoch-ms time relative to now
func formatWhen(ts int64, now time.Time) string {
	if ts <= 0 {
		return "—"
	}
	t := time.UnixMilli(ts)
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return "undated"
	case diff < 24*time.Hour && t.Day() == now.Day():
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	historyCmd.AddCommand(historyListCmd)
}
