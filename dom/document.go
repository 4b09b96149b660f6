package dom

import (
	"errors"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/blocker/matcher"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoHead is returned if a document lacks a <head> element.
var ErrNoHead = errors.New("document has no head element")

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return Wrap(root), nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Wrap takes over an existing parse tree.
func Wrap(root *html.Node) *Document {
	return &Document{root: root}
}

// Root returns the document node.
func (doc *Document) Root() *html.Node {
	return doc.root
}

// Render writes the document as HTML.
func (doc *Document) Render(w io.Writer) error {
	return html.Render(w, doc.root)
}

// Head returns the <head> element, or nil.
func (doc *Document) Head() *html.Node {
	return findElement(atom.Head, doc.root)
}

// QueryAll returns all elements matching a compiled selector, in document order.
func (doc *Document) QueryAll(sel cascadia.Sel) []*Element {
	nodes := cascadia.QueryAll(doc.root, sel)
	elems := make([]*Element, len(nodes))
	for i, n := range nodes {
		elems[i] = &Element{node: n}
	}
	return elems
}

// Select returns all elements a selector spec applies to.
// An invalid spec selects nothing.
func (doc *Document) Select(spec string) []*Element {
	sel, err := matcher.Compile(spec)
	if err != nil {
		tracer().Debugf("dom: cannot select %q: %v", spec, err)
		return nil
	}
	return doc.QueryAll(sel)
}

// WithAttribute returns all elements carrying a given attribute.
func (doc *Document) WithAttribute(key string) []*Element {
	var elems []*Element
	walk(doc.root, func(n *html.Node) {
		if n.Type == html.ElementNode && hasAttr(n, key) {
			elems = append(elems, &Element{node: n})
		}
	})
	return elems
}

// ElementByID returns the first element with the given ID, or nil.
func (doc *Document) ElementByID(id string) *Element {
	var found *Element
	walk(doc.root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode {
			if v, ok := getAttr(n, "id"); ok && v == id {
				found = &Element{node: n}
			}
		}
	})
	return found
}

// StyleElement returns the <style> element with the given ID, creating it
// at the end of <head> if it does not exist.
func (doc *Document) StyleElement(id string) (*Element, error) {
	if el := doc.ElementByID(id); el != nil {
		return el, nil
	}
	head := doc.Head()
	if head == nil {
		return nil, ErrNoHead
	}
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	head.AppendChild(n)
	tracer().Debugf("dom: created <style id=%q>", id)
	return &Element{node: n}, nil
}

// SetStyleText replaces the content of an injected <style> element.
func (doc *Document) SetStyleText(id, css string) error {
	el, err := doc.StyleElement(id)
	if err != nil {
		return err
	}
	el.SetText(css)
	return nil
}

// RemoveElement detaches an element from the tree.
func (doc *Document) RemoveElement(el *Element) {
	if el == nil || el.node.Parent == nil {
		return
	}
	el.node.Parent.RemoveChild(el.node)
}

func walk(n *html.Node, f func(*html.Node)) {
	if n == nil {
		return
	}
	f(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, f)
	}
}

func findElement(a atom.Atom, h *html.Node) *html.Node {
	if h == nil {
		return nil
	}
	if h.DataAtom == a {
		return h
	}
	for ch := h.FirstChild; ch != nil; ch = ch.NextSibling {
		if r := findElement(a, ch); r != nil {
			return r
		}
	}
	return nil
}
