package internal

import (
	"strings"
)

// Notifier is the presentation sink for suggestion state. Calls come from the
// engine's loop goroutine and should return quickly.
type Notifier interface {
	ShowLoading()
	ShowSuggestions(suggestions []string)
	ShowWaiting()
	ShowError(err error)
}

// MultiNotifier fans every call out to each notifier in order
type MultiNotifier []Notifier

func (m MultiNotifier) ShowLoading() {
	for _, n := range m {
		n.ShowLoading()
	}
}

func (m MultiNotifier) ShowSuggestions(suggestions []string) {
	for _, n := range m {
		n.ShowSuggestions(suggestions)
	}
}

func (m MultiNotifier) ShowWaiting() {
	for _, n := range m {
		n.ShowWaiting()
	}
}

func (m MultiNotifier) ShowError(err error) {
	for _, n := range m {
		n.ShowError(err)
	}
}

// NopNotifier discards everything
type NopNotifier struct{}

func (NopNotifier) ShowLoading() {}
func (NopNotifier) ShowSuggestions(_ []string) {}
func (NopNotifier) ShowWaiting() {}
func (NopNotifier) ShowError(_ error) {}

// SplitSuggestions turns the service's answer into display lines. Blank lines
// and list bullets are dropped.
func SplitSuggestions(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
