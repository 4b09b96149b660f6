package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element wraps an element node of the HTML parse tree.
type Element struct {
	node *html.Node
}

// NewElement wraps an HTML node. n must be an element node.
func NewElement(n *html.Node) *Element {
	return &Element{node: n}
}

// HTMLNode returns the underlying parse-tree node.
func (el *Element) HTMLNode() *html.Node {
	return el.node
}

// Tag returns the element name, e.g. "div".
func (el *Element) Tag() string {
	return el.node.Data
}

// Classes returns the class list. Part of interface matcher.Element.
func (el *Element) Classes() []string {
	v, _ := getAttr(el.node, "class")
	return strings.Fields(v)
}

// ID returns the element ID. Part of interface matcher.Element.
func (el *Element) ID() string {
	v, _ := getAttr(el.node, "id")
	return v
}

// Attr returns an attribute value and whether it is present.
func (el *Element) Attr(key string) (string, bool) {
	return getAttr(el.node, key)
}

// HasAttr checks for the presence of an attribute.
func (el *Element) HasAttr(key string) bool {
	return hasAttr(el.node, key)
}

// SetAttr sets or replaces an attribute.
func (el *Element) SetAttr(key, val string) {
	for i := range el.node.Attr {
		if el.node.Attr[i].Key == key {
			el.node.Attr[i].Val = val
			return
		}
	}
	el.node.Attr = append(el.node.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute, if present.
func (el *Element) RemoveAttr(key string) {
	attrs := el.node.Attr[:0]
	for _, a := range el.node.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	el.node.Attr = attrs
}

// Text returns the concatenated text content of the element.
func (el *Element) Text() string {
	var b strings.Builder
	walk(el.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

// SetText replaces all children by a single text node.
func (el *Element) SetText(s string) {
	for c := el.node.FirstChild; c != nil; c = el.node.FirstChild {
		el.node.RemoveChild(c)
	}
	if s != "" {
		el.node.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key && a.Namespace == "" {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := getAttr(n, key)
	return ok
}
