package internal

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// Rects used by test pages: a 1000px tall conversation box, with "fresh"
// bubbles in its bottom fifth and "old" ones near the top.
const (
	TestContainerRect = "0,0,400,1000"
	TestFreshRect     = "900,0,300,40"
	TestOldRect       = "100,0,300,40"
)

// TestBubble describes one rendered message of a test page
type TestBubble struct {
	Text       string
	Direction  Direction
	Annotation string
	// Added marks the bubble as inserted by the latest mutation
	Added bool
	Rect  string
	Quote *ReplyTo
	Media bool
	// Row wraps the bubble in a div[role=row] the way WhatsApp lists messages
	Row bool
}

// TestChat describes a WhatsApp-like page for tests
type TestChat struct {
	Title string
	// NoContainer omits the #main pane entirely
	NoContainer bool
	Bubbles     []TestBubble
	SideBubbles []string
}

// Annotation formats a "[HH:MM, DD/MM/YYYY] sender: " prefix for t
func Annotation(t time.Time, sender string) string {
	return fmt.Sprintf("[%02d:%02d, %02d/%02d/%04d] %s: ", t.Hour(), t.Minute(), t.Day(), int(t.Month()), t.Year(), sender)
}

// HTML renders the chat as a serialized page
func (c TestChat) HTML() string {
	var b strings.Builder
	b.WriteString("<html><head><title>WhatsApp</title></head><body><div id=\"app\">")

	b.WriteString(`<div id="pane-side">`)
	for _, s := range c.SideBubbles {
		fmt.Fprintf(&b, `<div role="row"><span class="selectable-text">%s</span></div>`, html.EscapeString(s))
	}
	b.WriteString(`</div>`)

	if !c.NoContainer {
		b.WriteString(`<div id="main">`)
		if c.Title != "" {
			t := html.EscapeString(c.Title)
			fmt.Fprintf(&b, `<header><div><span dir="auto" title="%s">%s</span></div></header>`, t, t)
		}
		fmt.Fprintf(&b, `<div data-tab="1" class="copyable-area" data-msghelp-rect="%s">`, TestContainerRect)
		b.WriteString(`<div aria-label="Message list">`)
		for _, bubble := range c.Bubbles {
			bubble.render(&b)
		}
		b.WriteString(`</div></div></div>`)
	}

	b.WriteString("</div></body></html>")
	return b.String()
}

func (tb TestBubble) render(b *strings.Builder) {
	class := "focusable-list-item"
	switch tb.Direction {
	case DirectionIncoming:
		class = "message-in " + class
	case DirectionOutgoing:
		class = "message-out " + class
	}

	added := ""
	if tb.Added {
		added = ` data-msghelp-added=""`
	}
	rect := ""
	if tb.Rect != "" {
		rect = fmt.Sprintf(` data-msghelp-rect="%s"`, tb.Rect)
	}
	if tb.Row {
		fmt.Fprintf(b, `<div role="row"%s%s>`, added, rect)
		added = ""
	}
	fmt.Fprintf(b, `<div class="%s"%s%s>`, class, added, rect)

	inner := `class="copyable-text"`
	if tb.Annotation != "" {
		inner += fmt.Sprintf(` data-pre-plain-text="%s"`, html.EscapeString(tb.Annotation))
	}
	inner += rect
	fmt.Fprintf(b, `<div %s>`, inner)

	if tb.Quote != nil {
		fmt.Fprintf(b, `<div class="quoted-mention"><span dir="auto">%s</span><span class="selectable-text">%s</span></div>`,
			html.EscapeString(tb.Quote.Sender), html.EscapeString(tb.Quote.Text))
	}
	if tb.Media {
		b.WriteString(`<img src="blob:x">`)
	}
	fmt.Fprintf(b, `<span class="selectable-text copyable-text"><span>%s</span></span>`, html.EscapeString(tb.Text))
	b.WriteString(`</div></div>`)
	if tb.Row {
		b.WriteString(`</div>`)
	}
}

// Page parses the chat at rawURL, returning the page and its added subtrees
func (c TestChat) Page(rawURL string) (*Page, []Node, error) {
	return ParsePage(strings.NewReader(c.HTML()), rawURL)
}

// NotifierEvent is one call recorded by RecordingNotifier
type NotifierEvent struct {
	Kind        string
	Suggestions []string
	Err         error
}

const (
	EventLoading     = "loading"
	EventSuggestions = "suggestions"
	EventWaiting     = "waiting"
	EventError       = "error"
)

// RecordingNotifier records every notifier call, safe for concurrent use
type RecordingNotifier struct {
	mu     sync.Mutex
	events []NotifierEvent
}

func (r *RecordingNotifier) ShowLoading() { r.record(NotifierEvent{Kind: EventLoading}) }
func (r *RecordingNotifier) ShowWaiting() { r.record(NotifierEvent{Kind: EventWaiting}) }
func (r *RecordingNotifier) ShowError(err error) {
	r.record(NotifierEvent{Kind: EventError, Err: err})
}
func (r *RecordingNotifier) ShowSuggestions(s []string) {
	r.record(NotifierEvent{Kind: EventSuggestions, Suggestions: append([]string(nil), s...)})
}

func (r *RecordingNotifier) record(ev NotifierEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded calls
func (r *RecordingNotifier) Events() []NotifierEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NotifierEvent(nil), r.events...)
}

// Count returns how many calls of kind were recorded
func (r *RecordingNotifier) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent call of kind
func (r *RecordingNotifier) Last(kind string) (NotifierEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return NotifierEvent{}, false
}
