package internal

// SessionInfo identifies the conversation currently shown on the page
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	ChatTitle string `json:"chatTitle"`
	HrefHash  string `json:"hrefHash"`
}

// IsZero reports whether no session has been derived
func (s SessionInfo) IsZero() bool {
	return s.SessionID == ""
}

// SessionTracker derives session identity from page state and remembers the last one seen
type SessionTracker struct {
	profile Profile
	last    SessionInfo
	known   bool
}

// NewSessionTracker creates a tracker for the given profile
func NewSessionTracker(p Profile) *SessionTracker {
	return &SessionTracker{profile: p.withDefaults()}
}

// Current derives the session shown on page without recording it
func (t *SessionTracker) Current(page *Page) SessionInfo {
	var root Node
	if page != nil {
		root = page.Root
	}

	title := ChatTitle(root, t.profile)
	hash := page.Fragment()

	info := SessionInfo{ChatTitle: title, HrefHash: hash}
	switch {
	case title != "" && hash != "":
		info.SessionID = title + "::" + hash
	case title != "":
		info.SessionID = title + "::local"
	case hash != "":
		info.SessionID = hash
	default:
		info.SessionID = "unknown::" + page.Path()
	}
	return info
}

// Observe derives the current session and reports whether it differs from the last one observed
func (t *SessionTracker) Observe(page *Page) (SessionInfo, bool) {
	info := t.Current(page)
	changed := !t.known || info.SessionID != t.last.SessionID
	t.last = info
	t.known = true
	return info, changed
}

// Last returns the last observed session
func (t *SessionTracker) Last() (SessionInfo, bool) {
	return t.last, t.known
}

// Reset forgets the last observed session
func (t *SessionTracker) Reset() {
	t.last = SessionInfo{}
	t.known = false
}

// ChatTitle finds the conversation title in the main pane header: the first
// span[title] under a header, then the header's span[dir=auto], whose title
// attribute or rendered text is the title.
func ChatTitle(root Node, p Profile) string {
	if root == nil {
		return ""
	}

	main := Closest(root, ByID(p.MainPaneID))
	if main == nil {
		main = QueryFirst(root, ByID(p.MainPaneID))
	}
	if main == nil {
		return ""
	}

	inHeader := func(n Node) bool {
		h := Closest(n, ByTag("header"))
		return h != nil && IsInside(h, main)
	}
	preview := QueryFirst(main, And(ByTag("span"), AttrPresent("title"), inHeader))
	if preview == nil {
		return ""
	}

	header := Closest(preview, ByTag("header"))
	if header == nil {
		header = preview.Parent()
	}
	if header == nil {
		return ""
	}

	titleEl := QueryFirst(header, And(ByTag("span"), AttrEquals("dir", "auto")))
	if titleEl == nil {
		return ""
	}
	if v, ok := titleEl.Attr("title"); ok && v != "" {
		return NormalizeText(v)
	}
	return NormalizeText(titleEl.InnerText())
}
