package internal

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	directionDepth = 6
	containerDepth = 8
)

var (
	durationPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	iconPattern     = regexp.MustCompile(`(?i)^ic[-_][\w-]+$`)
	uiLabelPattern  = regexp.MustCompile(`(?i)^(play|pause|download|reply|delete|media|sticker|audio|video|image|mic|mute|close|open|send|save)s?$`)
	noWordPattern   = regexp.MustCompile(`^[^\p{L}\p{N}]+$`)
	asciiAlnum      = regexp.MustCompile(`[A-Za-z0-9]`)

	mediaMatcher = Or(
		ByTag("img", "video", "audio", "svg", "picture", "canvas", "iframe"),
		AttrContains("data-testid", "sticker"),
		AttrContains("data-testid", "media"),
		AttrContains("data-testid", "video"),
		AttrContains("data-testid", "image"),
		AttrEquals("role", "img"),
	)
)

// Classification is the verdict on one DOM node
type Classification struct {
	IsBubble  bool
	Text      string
	Direction Direction
}

// Classifier decides which nodes are chat bubbles
type Classifier interface {
	Classify(n Node) Classification
	ExtractText(n Node) string
	Direction(n Node) Direction
}

// BubbleClassifier classifies nodes using a platform Profile
type BubbleClassifier struct {
	profile Profile
}

// NewBubbleClassifier creates a classifier for the given profile
func NewBubbleClassifier(p Profile) *BubbleClassifier {
	return &BubbleClassifier{profile: p.withDefaults()}
}

// Profile returns the profile the classifier was built with
func (c *BubbleClassifier) Profile() Profile {
	return c.profile
}

// Classify reports whether n is a message bubble and, if so, its text and direction
func (c *BubbleClassifier) Classify(n Node) Classification {
	if n == nil || !c.IsBubble(n) {
		return Classification{}
	}

	text := c.ExtractText(n)
	if text == "" || IsLikelyNonMessage(text) {
		return Classification{}
	}

	return Classification{
		IsBubble:  true,
		Text:      text,
		Direction: c.Direction(n),
	}
}

// IsBubble applies the structural checks: main pane, selectable text, no media
func (c *BubbleClassifier) IsBubble(n Node) bool {
	if Closest(n, ByID(c.profile.MainPaneID)) == nil {
		return false
	}
	if Closest(n, ByID(c.profile.SidePaneID)) != nil {
		return false
	}

	textNode := QueryFirst(n, c.profile.selectableText())
	if textNode == nil {
		return false
	}
	txt := strings.TrimSpace(textNode.InnerText())
	if txt == "" || IsLikelyNonMessage(txt) {
		return false
	}

	return !ContainsMedia(n)
}

// ExtractText returns the first non-empty of rendered text, raw text content and
// the joined text of descendant span/p/div elements, normalized.
func (c *BubbleClassifier) ExtractText(n Node) string {
	if n == nil {
		return ""
	}
	if t := NormalizeText(n.InnerText()); t != "" {
		return t
	}
	if t := NormalizeText(n.TextContent()); t != "" {
		return t
	}

	var parts []string
	for _, d := range QueryAll(n, ByTag("span", "p", "div")) {
		t := strings.TrimSpace(d.InnerText())
		if t == "" {
			t = strings.TrimSpace(d.TextContent())
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return NormalizeText(strings.Join(parts, " "))
}

// Direction walks up to six levels looking for the profile's direction markers.
// A node with none above it, such as a list row, takes the direction of the
// first marked element inside it.
func (c *BubbleClassifier) Direction(n Node) Direction {
	cur := n
	for i := 0; i < directionDepth && cur != nil; i++ {
		if d := c.markedDirection(cur); d != DirectionUnknown {
			return d
		}
		cur = cur.Parent()
	}
	if n == nil {
		return DirectionUnknown
	}
	inner := QueryFirst(n, func(d Node) bool { return c.markedDirection(d) != DirectionUnknown })
	if inner == nil {
		return DirectionUnknown
	}
	return c.markedDirection(inner)
}

func (c *BubbleClassifier) markedDirection(n Node) Direction {
	cls := lowerClassName(n)
	for _, m := range c.profile.OutgoingMarkers {
		if strings.Contains(cls, m) {
			return DirectionOutgoing
		}
	}
	for _, m := range c.profile.IncomingMarkers {
		if strings.Contains(cls, m) {
			return DirectionIncoming
		}
	}
	return DirectionUnknown
}

// FindMessageContainer returns the nearest ancestor (up to eight levels, n
// included) that looks like a message: an annotated div, a class mentioning
// "message", or copyable/selectable text.
func (c *BubbleClassifier) FindMessageContainer(n Node) Node {
	annotated := And(ByTag("div"), AttrPresent(c.profile.AnnotationAttr))
	textual := Or(HasClass(c.profile.CopyableTextClass), HasClass(c.profile.SelectableTextClass))

	cur := n
	for i := 0; i < containerDepth && cur != nil; i++ {
		if annotated(cur) {
			return cur
		}
		if strings.Contains(lowerClassName(cur), "message") {
			return cur
		}
		if textual(cur) {
			return cur
		}
		cur = cur.Parent()
	}
	return nil
}

// ExtractReplyTo finds the quoted message inside a bubble, if any
func (c *BubbleClassifier) ExtractReplyTo(container Node) *ReplyTo {
	if container == nil {
		return nil
	}

	quoteMatchers := []Matcher{AttrEquals("data-testid", "msg-meta")}
	var classes []Matcher
	for _, cls := range c.profile.QuoteClasses {
		classes = append(classes, HasClass(cls))
	}
	if len(classes) > 0 {
		quoteMatchers = append(quoteMatchers, Or(classes...))
	}

	quote := QueryChain(container, quoteMatchers...)
	if quote == nil {
		return nil
	}

	reply := &ReplyTo{}
	if sender := QueryFirst(quote, And(ByTag("span"), AttrEquals("dir", "auto"))); sender != nil {
		reply.Sender = NormalizeText(sender.InnerText())
	}
	if textEl := QueryFirst(quote, c.profile.selectableText()); textEl != nil {
		reply.Text = NormalizeText(textEl.InnerText())
	} else {
		reply.Text = NormalizeText(quote.InnerText())
	}

	if reply.Text == "" {
		return nil
	}
	return reply
}

// ContainsMedia reports whether any descendant of n is media or a media placeholder
func ContainsMedia(n Node) bool {
	return Contains(n, mediaMatcher)
}

// IsLikelyNonMessage reports whether text looks like UI chrome rather than a message
func IsLikelyNonMessage(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}

	switch {
	case durationPattern.MatchString(t):
		return true
	case iconPattern.MatchString(t):
		return true
	case uiLabelPattern.MatchString(t):
		return true
	case noWordPattern.MatchString(t):
		return true
	case utf8.RuneCountInString(t) <= 2 && !asciiAlnum.MatchString(t):
		return true
	}

	return false
}
