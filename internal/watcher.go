package internal

// bottomFraction is the share of the conversation box where new messages land
const bottomFraction = 0.2

// MutationWatcher picks the added nodes that can be freshly arrived messages
type MutationWatcher struct {
	profile Profile
}

// NewMutationWatcher creates a watcher for the given profile
func NewMutationWatcher(p Profile) *MutationWatcher {
	return &MutationWatcher{profile: p.withDefaults()}
}

// Candidates returns, for every added subtree, its innermost message marker
// nodes (or the subtree root when it holds none), keeping only nodes whose top
// edge lies in the bottom fifth of the conversation container. History attached
// above the fold by virtualized scrolling is filtered out this way.
func (w *MutationWatcher) Candidates(page *Page, added []Node) []Node {
	if page == nil || len(added) == 0 {
		return nil
	}

	container := FindChatContainer(page.Root, w.profile)
	if container == nil {
		return nil
	}

	seen := make(map[Node]struct{})
	var out []Node
	consider := func(n Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if IsAtBottom(n, container) {
			out = append(out, n)
		}
	}

	for _, node := range added {
		if node == nil {
			continue
		}
		markers := w.profile.markersIn(node)
		for _, m := range markers {
			consider(m)
		}
		// a subtree root wrapping a marker is the same bubble again
		if len(markers) == 0 {
			consider(node)
		}
	}
	return out
}

// IsAtBottom reports whether n's top edge is within the bottom fifth of container
func IsAtBottom(n, container Node) bool {
	if n == nil || container == nil {
		return false
	}
	rect, ok := n.Rect()
	if !ok {
		return false
	}
	box, ok := container.Rect()
	if !ok {
		return false
	}
	threshold := box.Bottom() - box.Height*bottomFraction
	return rect.Top >= threshold
}
