package export

import (
	"io"

	"github.com/iksnae/msghelp/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports messages in YAML format, grouped by conversation
type YAMLExporter struct{}

type yamlSession struct {
	SessionID string             `yaml:"session_id"`
	ChatTitle string             `yaml:"chat_title,omitempty"`
	Messages  []internal.Message `yaml:"messages"`
}

// Export exports messages to YAML format
func (e *YAMLExporter) Export(messages []internal.Message, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	groups := groupBySession(messages)
	out := make([]yamlSession, 0, len(groups))
	for _, g := range groups {
		out = append(out, yamlSession{SessionID: g.SessionID, ChatTitle: g.ChatTitle, Messages: g.Messages})
	}
	return enc.Encode(out)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
