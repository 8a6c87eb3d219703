package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/msghelp/internal"
	"github.com/spf13/cobra"
)

var (
	incomingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	outgoingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	quoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			PaddingLeft(2)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the stored messages of one conversation",
	Long: `Display the captured messages of a conversation, oldest first.
Use 'msghelp history list' to see available session IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = kv.Close() }()

		messages, err := loadHistory(context.Background(), kv, args[0])
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		if len(messages) == 0 {
			return fmt.Errorf("session not found: %s (use 'msghelp history list' to see available sessions)", args[0])
		}

		displayConversation(cmd.OutOrStdout(), messages)
		return nil
	},
}

// displayConversation prints newest-first messages in reading order
func displayConversation(w io.Writer, newestFirst []internal.Message) {
	title := newestFirst[0].ChatTitle
	if title == "" {
		title = newestFirst[0].SessionID
	}
	fmt.Fprintln(w, headerStyle.Render("💬 "+title))
	fmt.Fprintln(w)

	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]

		label := "?"
		style := timestampStyle
		switch m.Direction {
		case internal.DirectionIncoming:
			label, style = "Them", incomingStyle
		case internal.DirectionOutgoing:
			label, style = "Me", outgoingStyle
		}

		line := style.Render(label)
		if ts := internal.FormatTimestamp(m.Timestamp); ts != "" {
			line += " " + timestampStyle.Render(ts)
		}
		fmt.Fprintln(w, line)

		if m.ReplyTo != nil {
			fmt.Fprintln(w, quoteStyle.Render("↪ "+m.ReplyTo.Sender+": "+m.ReplyTo.Text))
		}
		fmt.Fprintln(w, messageContentStyle.Render(m.Text))
		fmt.Fprintln(w)
	}
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
}
