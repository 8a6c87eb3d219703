package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/msghelp/internal"
)

// JSONLExporter exports messages in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports messages to JSONL format
func (e *JSONLExporter) Export(messages []internal.Message, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range messages {
		obj := map[string]any{
			"session":   msg.SessionID,
			"direction": msg.Direction,
			"text":      msg.Text,
		}

		if ts := internal.FormatTimestamp(msg.Timestamp); ts != "" {
			obj["timestamp"] = ts
		}
		if msg.ReplyTo != nil {
			obj["reply_to"] = msg.ReplyTo.Text
		}

		// Encode to single line
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
