package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/msghelp/internal"
)

// MarkdownExporter exports messages in Markdown format, one section per conversation
type MarkdownExporter struct{}

// Export exports messages to Markdown format
func (e *MarkdownExporter) Export(messages []internal.Message, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Message history\n\n")
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(messages))

	for _, g := range groupBySession(messages) {
		_, _ = fmt.Fprintf(w, "---\n\n")

		title := g.ChatTitle
		if title == "" {
			title = g.SessionID
		}
		_, _ = fmt.Fprintf(w, "## %s\n\n", escapeMarkdown(title))
		_, _ = fmt.Fprintf(w, "**Session:** `%s`  \n", g.SessionID)
		if len(g.Messages) > 0 && g.Messages[0].Platform != "" {
			_, _ = fmt.Fprintf(w, "**Platform:** %s  \n", g.Messages[0].Platform)
		}
		_, _ = fmt.Fprintf(w, "\n")

		for _, msg := range g.Messages {
			timestamp := ""
			if ts := internal.FormatTimestamp(msg.Timestamp); ts != "" {
				timestamp = fmt.Sprintf(" (%s)", ts)
			}

			_, _ = fmt.Fprintf(w, "**%s:**%s\n\n", speaker(msg.Direction), timestamp)
			if msg.ReplyTo != nil {
				quote := escapeMarkdown(msg.ReplyTo.Text)
				if msg.ReplyTo.Sender != "" {
					quote = msg.ReplyTo.Sender + ": " + quote
				}
				_, _ = fmt.Fprintf(w, "> %s\n\n", quote)
			}
			_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(msg.Text))
		}
	}

	return nil
}

func speaker(d internal.Direction) string {
	switch d {
	case internal.DirectionIncoming:
		return "Them"
	case internal.DirectionOutgoing:
		return "Me"
	default:
		return "Unknown"
	}
}

// escapeMarkdown escapes the emphasis markers chat text commonly contains
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	text = strings.ReplaceAll(text, "__", "\\_\\_")
	return text
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
