package internal

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes written by the browser relay when it serializes a page update
const (
	AddedAttr = "data-msghelp-added"
	RectAttr  = "data-msghelp-rect"
)

// htmlDocument hands out one wrapper per parsed node so identity comparisons hold.
// It is not safe for concurrent use; a parsed page belongs to one goroutine.
type htmlDocument struct {
	nodes map[*html.Node]*htmlNode
}

func (d *htmlDocument) wrap(n *html.Node) *htmlNode {
	if n == nil {
		return nil
	}
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &htmlNode{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// htmlNode adapts an x/net/html element to Node
type htmlNode struct {
	doc *htmlDocument
	n   *html.Node
}

func (h *htmlNode) Tag() string {
	return strings.ToLower(h.n.Data)
}

func (h *htmlNode) ID() string {
	v, _ := h.Attr("id")
	return v
}

func (h *htmlNode) ClassName() string {
	v, _ := h.Attr("class")
	return v
}

func (h *htmlNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (h *htmlNode) Parent() Node {
	for p := h.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return h.doc.wrap(p)
		}
	}
	return nil
}

func (h *htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, h.doc.wrap(c))
		}
	}
	return out
}

func (h *htmlNode) InnerText() string {
	var b strings.Builder
	renderedText(h.n, &b)
	return b.String()
}

func (h *htmlNode) TextContent() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.n)
	return b.String()
}

func (h *htmlNode) Rect() (Rect, bool) {
	raw, ok := h.Attr(RectAttr)
	if !ok {
		return Rect{}, false
	}
	return parseRect(raw)
}

// renderedText approximates innerText: hidden subtrees and non-rendered
// elements contribute nothing, block elements are separated by newlines.
func renderedText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if !isRendered(n) {
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block && b.Len() > 0 {
		b.WriteByte('\n')
	}
	if n.DataAtom == atom.Br {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderedText(c, b)
	}
	if block {
		b.WriteByte('\n')
	}
}

func isRendered(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return false
	}
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return false
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return false
			}
		case "style":
			compact := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
				return false
			}
		}
	}
	return true
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.P, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table,
		atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

// parseRect reads "top,left,width,height"
func parseRect(raw string) (Rect, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		vals[i] = v
	}
	return Rect{Top: vals[0], Left: vals[1], Width: vals[2], Height: vals[3]}, true
}

// ParseDocument parses an HTML document and returns its root element
func ParseDocument(r io.Reader) (Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &ParseError{Source: "html", Err: err}
	}

	d := &htmlDocument{nodes: make(map[*html.Node]*htmlNode)}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c), nil
		}
	}

	return nil, &ParseError{Source: "html", Err: errors.New("document has no root element")}
}

// ParsePage parses a serialized page and returns it with the subtrees the
// relay marked as newly added. Nested markers are folded into their outermost
// marked ancestor.
func ParsePage(r io.Reader, rawURL string) (*Page, []Node, error) {
	root, err := ParseDocument(r)
	if err != nil {
		return nil, nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, &ParseError{Source: "html", Key: rawURL, Err: errors.Wrap(err, "invalid page url")}
	}

	marked := AttrPresent(AddedAttr)

	var added []Node
	for _, n := range QueryAll(root, marked) {
		if p := n.Parent(); p != nil && Closest(p, marked) != nil {
			continue
		}
		added = append(added, n)
	}

	return &Page{Root: root, URL: u}, added, nil
}
