package internal

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// fallbackTimestampBase orders undated messages after every real timestamp
const fallbackTimestampBase int64 = 10_000_000_000_000

// ScanOutcome is the signal a context scan raises once history is seeded
type ScanOutcome int

const (
	OutcomeNone ScanOutcome = iota
	// OutcomeSuggest means the newest message is incoming
	OutcomeSuggest
	// OutcomeWaiting means the window holds no incoming message
	OutcomeWaiting
)

func (o ScanOutcome) String() string {
	switch o {
	case OutcomeSuggest:
		return "suggest"
	case OutcomeWaiting:
		return "waiting"
	default:
		return "none"
	}
}

// ScanResult is what a context scan learned about the rendered conversation
type ScanResult struct {
	Session SessionInfo
	// Existing holds ExistingKey for every bubble already on screen
	Existing map[string]struct{}
	// RecentKeys are the scan's dedupe keys, oldest first
	RecentKeys []string
	// Window is the seeded history, oldest first
	Window  []Message
	Total   int
	Outcome ScanOutcome
}

// ContextScanner seeds a session's history from the messages already rendered
type ContextScanner struct {
	classifier *BubbleClassifier
	store      *MessageStore
	now        func() time.Time
}

// NewContextScanner creates a scanner writing into store
func NewContextScanner(classifier *BubbleClassifier, store *MessageStore) *ContextScanner {
	return &ContextScanner{classifier: classifier, store: store, now: time.Now}
}

type scannedMessage struct {
	msg      Message
	domIndex int
}

// Scan collects every bubble in the conversation, keeps the newest window in
// chronological order and seeds it into the store. A missing container returns
// ErrContainerNotFound. A seeding failure is returned with the result intact.
func (s *ContextScanner) Scan(ctx context.Context, page *Page, info SessionInfo) (*ScanResult, error) {
	profile := s.classifier.Profile()

	var root Node
	if page != nil {
		root = page.Root
	}
	container := FindChatContainer(root, profile)
	if container == nil {
		return nil, ErrContainerNotFound
	}

	result := &ScanResult{
		Session:  info,
		Existing: make(map[string]struct{}),
	}

	// Every bubble on screen is history, not new traffic.
	for _, n := range profile.markersIn(container) {
		c := s.classifier.Classify(n)
		if !c.IsBubble {
			continue
		}
		result.Existing[ExistingKey(info.SessionID, c.Text)] = struct{}{}
	}

	pane := QueryChain(container,
		AttrEquals("aria-label", "Message list"),
		AttrEquals("data-testid", "conversation-panel-messages"),
	)
	if pane == nil {
		pane = container
	}
	nodes := uniqueInDocumentOrder(profile.markersIn(pane))

	now := s.now()
	seen := make(map[string]struct{})
	var scanned []scannedMessage
	for idx, n := range nodes {
		c := s.classifier.Classify(n)
		if !c.IsBubble {
			continue
		}

		ts, ok := ParseTimestampAttr(n, profile.AnnotationAttr, now)
		if !ok || ts <= 0 {
			ts = fallbackTimestampBase + int64(idx)
		}

		key := dedupeKey(info.SessionID, ts, c.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.RecentKeys = append(result.RecentKeys, key)

		scanned = append(scanned, scannedMessage{
			domIndex: idx,
			msg: Message{
				Text:      c.Text,
				Timestamp: ts,
				Direction: c.Direction,
				Platform:  profile.Platform,
				SessionID: info.SessionID,
				ChatTitle: info.ChatTitle,
				ReplyTo:   s.classifier.ExtractReplyTo(n),
			},
		})
	}

	sort.SliceStable(scanned, func(i, j int) bool {
		if scanned[i].msg.Timestamp == scanned[j].msg.Timestamp {
			return scanned[i].domIndex < scanned[j].domIndex
		}
		return scanned[i].msg.Timestamp < scanned[j].msg.Timestamp
	})
	result.Total = len(scanned)

	limit := s.store.Limit()
	start := 0
	if len(scanned) > limit {
		start = len(scanned) - limit
	}
	for _, sm := range scanned[start:] {
		result.Window = append(result.Window, sm.msg)
	}

	log.Debug().
		Str("session", info.SessionID).
		Int("existing", len(result.Existing)).
		Int("window", len(result.Window)).
		Msg("context scan complete")

	if len(result.Window) == 0 {
		return result, nil
	}

	newestFirst := make([]Message, len(result.Window))
	for i, m := range result.Window {
		newestFirst[len(result.Window)-1-i] = m
	}
	if err := s.store.BulkSeed(ctx, info.SessionID, newestFirst); err != nil {
		return result, err
	}

	result.Outcome = windowOutcome(result.Window)
	return result, nil
}

// windowOutcome decides what to signal for a chronological window
func windowOutcome(window []Message) ScanOutcome {
	if len(window) == 0 {
		return OutcomeNone
	}
	if !HasIncoming(window) {
		return OutcomeWaiting
	}
	if window[len(window)-1].IsIncoming() {
		return OutcomeSuggest
	}
	return OutcomeNone
}

// FindChatContainer returns the scrollable conversation area, falling back to the main pane
func FindChatContainer(root Node, p Profile) Node {
	if root == nil {
		return nil
	}
	p = p.withDefaults()

	main := Closest(root, ByID(p.MainPaneID))
	if main == nil {
		main = QueryFirst(root, ByID(p.MainPaneID))
	}
	if main == nil {
		return nil
	}

	if c := QueryChain(main,
		And(ByTag("div"), AttrEquals("data-tab", "1")),
		HasClass("copyable-area"),
	); c != nil {
		return c
	}
	return main
}

// ExistingKey identifies a message text within a session
func ExistingKey(sessionID, text string) string {
	return sessionID + "::" + text
}

func dedupeKey(sessionID string, ts int64, text string) string {
	return sessionID + "::" + strconv.FormatInt(ts, 10) + "::" + text
}

// uniqueInDocumentOrder drops repeated nodes and sorts the rest top to bottom
func uniqueInDocumentOrder(nodes []Node) []Node {
	seen := make(map[Node]struct{}, len(nodes))
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return DocumentOrder(out[i], out[j]) < 0
	})
	return out
}
