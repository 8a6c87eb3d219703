package export

import (
	"fmt"
	"io"

	"github.com/iksnae/msghelp/internal"
)

// Exporter writes captured message history in one format. Messages arrive
// newest first, as stored.
type Exporter interface {
	Export(messages []internal.Message, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, jsonl, md, yaml)", format)
	}
}

// sessionGroup is one conversation's messages in chronological order
type sessionGroup struct {
	SessionID string
	ChatTitle string
	Messages  []internal.Message
}

// groupBySession splits newest-first history into conversations, ordered by
// their most recent message, each listed oldest first.
func groupBySession(messages []internal.Message) []sessionGroup {
	index := make(map[string]int)
	var groups []sessionGroup
	for _, m := range messages {
		i, ok := index[m.SessionID]
		if !ok {
			i = len(groups)
			index[m.SessionID] = i
			groups = append(groups, sessionGroup{SessionID: m.SessionID, ChatTitle: m.ChatTitle})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	for i := range groups {
		msgs := groups[i].Messages
		for l, r := 0, len(msgs)-1; l < r; l, r = l+1, r-1 {
			msgs[l], msgs[r] = msgs[r], msgs[l]
		}
	}
	return groups
}
