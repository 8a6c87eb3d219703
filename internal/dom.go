package internal

import (
	"net/url"
	"strings"
)

// Node is the read-only view of a DOM element the capture engine inspects.
// Implementations must return the same Node value for the same element so that
// nodes can be compared and used as map keys.
type Node interface {
	// Tag returns the lower-case element name
	Tag() string
	ID() string
	// ClassName returns the raw class attribute
	ClassName() string
	Attr(name string) (string, bool)
	// Parent returns nil at the document root
	Parent() Node
	// Children returns element children only, in document order
	Children() []Node
	// InnerText returns the rendered (visible) text
	InnerText() string
	// TextContent returns the text of every descendant text node
	TextContent() string
	// Rect returns the element's bounding box when the page provided one
	Rect() (Rect, bool)
}

// Rect is an element's bounding box in viewport coordinates
type Rect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Bottom returns the bottom edge of the box
func (r Rect) Bottom() float64 {
	return r.Top + r.Height
}

// Page is one observation of the chat page: its document and location
type Page struct {
	Root Node
	URL  *url.URL
}

// Fragment returns the URL fragment without the leading '#'
func (p *Page) Fragment() string {
	if p == nil || p.URL == nil {
		return ""
	}
	return strings.TrimPrefix(p.URL.Fragment, "#")
}

// Path returns the URL path
func (p *Page) Path() string {
	if p == nil || p.URL == nil {
		return "/"
	}
	if p.URL.Path == "" {
		return "/"
	}
	return p.URL.Path
}

// Matcher selects nodes
type Matcher func(Node) bool

// ByTag matches elements with the given tag name
func ByTag(tags ...string) Matcher {
	return func(n Node) bool {
		tag := n.Tag()
		for _, t := range tags {
			if tag == t {
				return true
			}
		}
		return false
	}
}

// ByID matches the element with the given id
func ByID(id string) Matcher {
	return func(n Node) bool {
		return n.ID() == id
	}
}

// HasClass matches elements carrying the class token
func HasClass(class string) Matcher {
	return func(n Node) bool {
		for _, c := range strings.Fields(n.ClassName()) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// HasAttr matches elements carrying the attribute with a non-empty value
func HasAttr(name string) Matcher {
	return func(n Node) bool {
		v, ok := n.Attr(name)
		return ok && v != ""
	}
}

// AttrPresent matches elements carrying the attribute, even when empty
func AttrPresent(name string) Matcher {
	return func(n Node) bool {
		_, ok := n.Attr(name)
		return ok
	}
}

// AttrEquals matches elements whose attribute equals value
func AttrEquals(name, value string) Matcher {
	return func(n Node) bool {
		v, ok := n.Attr(name)
		return ok && v == value
	}
}

// AttrContains matches elements whose attribute contains sub
func AttrContains(name, sub string) Matcher {
	return func(n Node) bool {
		v, ok := n.Attr(name)
		return ok && strings.Contains(v, sub)
	}
}

// And matches when every matcher does
func And(ms ...Matcher) Matcher {
	return func(n Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// Or matches when any matcher does
func Or(ms ...Matcher) Matcher {
	return func(n Node) bool {
		for _, m := range ms {
			if m(n) {
				return true
			}
		}
		return false
	}
}

// Closest returns n or its nearest ancestor matching m
func Closest(n Node, m Matcher) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if m(cur) {
			return cur
		}
	}
	return nil
}

// QueryAll returns the descendants of root matching m in document order
func QueryAll(root Node, m Matcher) []Node {
	if root == nil {
		return nil
	}
	var out []Node
	var walk func(Node)
	walk = func(n Node) {
		for _, c := range n.Children() {
			if m(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// QueryFirst returns the first descendant of root matching m
func QueryFirst(root Node, m Matcher) Node {
	if root == nil {
		return nil
	}
	for _, c := range root.Children() {
		if m(c) {
			return c
		}
		if found := QueryFirst(c, m); found != nil {
			return found
		}
	}
	return nil
}

// QueryChain tries each matcher in turn and returns the first hit under root
func QueryChain(root Node, ms ...Matcher) Node {
	for _, m := range ms {
		if found := QueryFirst(root, m); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether any descendant of root matches m
func Contains(root Node, m Matcher) bool {
	return QueryFirst(root, m) != nil
}

// IsInside reports whether n is root or one of its descendants
func IsInside(n, root Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur == root {
			return true
		}
	}
	return false
}

// Innermost drops every node that has another of nodes as a descendant, so a
// wrapper and the element it wraps collapse to the inner one. Order is kept.
func Innermost(nodes []Node) []Node {
	set := make(map[Node]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	wrappers := make(map[Node]struct{})
	for _, n := range nodes {
		for cur := n.Parent(); cur != nil; cur = cur.Parent() {
			if _, ok := set[cur]; ok {
				wrappers[cur] = struct{}{}
			}
		}
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := wrappers[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// DocumentOrder compares the positions of a and b in their document:
// negative when a comes first, positive when b does, zero for the same node.
func DocumentOrder(a, b Node) int {
	if a == b {
		return 0
	}
	pa, pb := nodePath(a), nodePath(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	// An ancestor precedes its descendants.
	return len(pa) - len(pb)
}

// nodePath returns the child indexes leading from the root to n
func nodePath(n Node) []int {
	var rev []int
	for cur := n; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		idx := 0
		for i, c := range parent.Children() {
			if c == cur {
				idx = i
				break
			}
		}
		rev = append(rev, idx)
	}
	path := make([]int, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}

// lowerClassName reads a node's class attribute lower-cased, tolerating nil
func lowerClassName(n Node) string {
	if n == nil {
		return ""
	}
	return strings.ToLower(n.ClassName())
}
