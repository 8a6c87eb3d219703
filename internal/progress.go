package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	suggestionBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("35")).
				Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ShowProgress runs fn while a spinner with message turns on stderr
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		log.Info().Msg(message)
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-done:
			if err != nil {
				fmt.Fprintf(os.Stderr, "\r%s %s\n", errorStyle.Render("✗"), message)
				return err
			}
			fmt.Fprintf(os.Stderr, "\r%s %s\n", successStyle.Render("✓"), message)
			return nil
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r%s %s", progressStyle.Render(spinnerChars[i%len(spinnerChars)]), message)
		}
	}
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}

// TerminalNotifier renders suggestion state as styled lines on a writer
type TerminalNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	style bool
}

// NewTerminalNotifier writes to out, styling only when out is a terminal
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out, style: isTerminal(out)}
}

func (t *TerminalNotifier) ShowLoading() {
	t.println(progressStyle, "…", "Generating reply...")
}

func (t *TerminalNotifier) ShowWaiting() {
	t.println(mutedStyle, "⏳", "Waiting for an incoming message")
}

func (t *TerminalNotifier) ShowError(err error) {
	t.println(errorStyle, "✗", err.Error())
}

func (t *TerminalNotifier) ShowSuggestions(suggestions []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(suggestions) == 0 {
		fmt.Fprintln(t.out, t.render(mutedStyle, "No suggestions available"))
		return
	}

	lines := make([]string, len(suggestions))
	for i, s := range suggestions {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	body := strings.Join(lines, "\n")
	if t.style {
		body = suggestionBoxStyle.Render(body)
	}
	fmt.Fprintln(t.out, body)
}

func (t *TerminalNotifier) println(style lipgloss.Style, icon, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", t.render(style, icon), msg)
}

func (t *TerminalNotifier) render(style lipgloss.Style, s string) string {
	if !t.style {
		return s
	}
	return style.Render(s)
}
