package internal

// Profile describes where a chat platform puts things in its DOM
type Profile struct {
	Platform            string   `yaml:"platform"`
	MainPaneID          string   `yaml:"main_pane_id"`
	SidePaneID          string   `yaml:"side_pane_id"`
	SelectableTextClass string   `yaml:"selectable_text_class"`
	CopyableTextClass   string   `yaml:"copyable_text_class"`
	AnnotationAttr      string   `yaml:"annotation_attr"`
	OutgoingMarkers     []string `yaml:"outgoing_markers"`
	IncomingMarkers     []string `yaml:"incoming_markers"`
	QuoteClasses        []string `yaml:"quote_classes"`
}

// DefaultAnnotationAttr carries the "[time, date] sender:" prefix of a bubble
const DefaultAnnotationAttr = "data-pre-plain-text"

// WhatsAppProfile returns the profile for WhatsApp Web
func WhatsAppProfile() Profile {
	return Profile{
		Platform:            "whatsapp",
		MainPaneID:          "main",
		SidePaneID:          "pane-side",
		SelectableTextClass: "selectable-text",
		CopyableTextClass:   "copyable-text",
		AnnotationAttr:      DefaultAnnotationAttr,
		OutgoingMarkers:     []string{"message-out"},
		IncomingMarkers:     []string{"message-in"},
		QuoteClasses:        []string{"quoted-mention", "quoted-message", "_1Gy50"},
	}
}

// withDefaults fills any empty field from the WhatsApp profile
func (p Profile) withDefaults() Profile {
	def := WhatsAppProfile()
	if p.Platform == "" {
		p.Platform = def.Platform
	}
	if p.MainPaneID == "" {
		p.MainPaneID = def.MainPaneID
	}
	if p.SidePaneID == "" {
		p.SidePaneID = def.SidePaneID
	}
	if p.SelectableTextClass == "" {
		p.SelectableTextClass = def.SelectableTextClass
	}
	if p.CopyableTextClass == "" {
		p.CopyableTextClass = def.CopyableTextClass
	}
	if p.AnnotationAttr == "" {
		p.AnnotationAttr = def.AnnotationAttr
	}
	if len(p.OutgoingMarkers) == 0 {
		p.OutgoingMarkers = def.OutgoingMarkers
	}
	if len(p.IncomingMarkers) == 0 {
		p.IncomingMarkers = def.IncomingMarkers
	}
	if len(p.QuoteClasses) == 0 {
		p.QuoteClasses = def.QuoteClasses
	}
	return p
}

// markerMatcher matches the message marker nodes the watcher and scanner look
// for. A row usually wraps an annotated div, so callers reduce matches with
// markersIn.
func (p Profile) markerMatcher() Matcher {
	return Or(
		And(ByTag("div"), AttrPresent(p.AnnotationAttr)),
		And(ByTag("div"), AttrEquals("role", "row")),
	)
}

// markersIn returns one marker per bubble under root, in document order
func (p Profile) markersIn(root Node) []Node {
	return Innermost(QueryAll(root, p.markerMatcher()))
}

// selectableText matches span.selectable-text
func (p Profile) selectableText() Matcher {
	return And(ByTag("span"), HasClass(p.SelectableTextClass))
}
