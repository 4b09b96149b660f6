/*
Package douceuradapter is a concrete implementation of interface cssom.StyleSheet.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package douceuradapter

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/blocker/dom/style"
	"github.com/npillmayer/blocker/dom/style/cssom"
	"golang.org/x/net/html"
)

// CSSStyles is an adapter for interface cssom.StyleSheet.
type CSSStyles struct {
	css css.Stylesheet
}

// Wrap a douceur.css.Stylesheet into CssStyles.
// The stylesheet is now managed by the wrapper.
func Wrap(css *css.Stylesheet) *CSSStyles {
	sheet := &CSSStyles{*css}
	return sheet
}

// Parse parses stylesheet text.
func Parse(text string) (*CSSStyles, error) {
	c, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return Wrap(c), nil
}

// Declarations parses a declaration list, e.g. the body of a styling rule,
// into key-value pairs. A trailing "!important" is stripped from values and
// reported separately. The last declaration need not be terminated by ';'.
func Declarations(text string) ([]style.KeyValue, []bool, error) {
	text = strings.TrimSpace(text)
	if text != "" && !strings.HasSuffix(text, ";") {
		text += ";"
	}
	decls, err := parser.ParseDeclarations(text)
	if err != nil {
		return nil, nil, err
	}
	kvs := make([]style.KeyValue, len(decls))
	important := make([]bool, len(decls))
	for i, d := range decls {
		kvs[i] = style.KeyValue{Key: d.Property, Value: style.Property(d.Value)}
		important[i] = d.Important
	}
	return kvs, important, nil
}

// Empty checks if this stylesheet contains any rules.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) Empty() bool {
	return len(sheet.css.Rules) == 0
}

// AppendRules appends rules from another stylesheet.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) AppendRules(other cssom.StyleSheet) {
	othercss, ok := other.(*CSSStyles)
	if !ok || othercss == nil {
		return
	}
	sheet.css.Rules = append(sheet.css.Rules, othercss.css.Rules...)
}

// Rules returns all the rules of a stylesheet.
//
// Interface style.StyleSheet
func (sheet *CSSStyles) Rules() []cssom.Rule {
	rules := make([]cssom.Rule, len(sheet.css.Rules))
	for i := range sheet.css.Rules {
		r := sheet.css.Rules[i]
		rules[i] = Rule(*r)
	}
	return rules
}

var _ cssom.StyleSheet = &CSSStyles{}

// Rule is an adapter for interface cssom.Rule.
type Rule css.Rule

// Selector returns the prelude / selectors of the rule.
func (r Rule) Selector() string {
	return r.Prelude
}

// Properties returns the property keys of a rule,
// e.g. "margin-top"
func (r Rule) Properties() []string {
	decl := r.Declarations
	props := make([]string, 0, len(decl))
	for _, d := range decl {
		props = append(props, d.Property)
	}
	return props
}

// Value returns the property values for given key with this rule, e.g. "15px"
func (r Rule) Value(key string) style.Property {
	for _, d := range r.Declarations {
		if d.Property == key {
			return style.Property(d.Value)
		}
	}
	return style.NullStyle
}

// IsImportant returns true if a style key is marked as important ("!").
func (r Rule) IsImportant(key string) bool {
	for _, d := range r.Declarations {
		if d.Property == key {
			return d.Important
		}
	}
	return false
}

var _ cssom.Rule = &Rule{}

// StyleElement parses the content of the <style> element with the given ID.
// A missing or empty element yields an empty stylesheet.
func StyleElement(htmldoc *html.Node, id string) (*CSSStyles, error) {
	n := findByID(htmldoc, id)
	if n == nil || n.FirstChild == nil {
		return &CSSStyles{}, nil
	}
	return Parse(n.FirstChild.Data)
}

func findByID(h *html.Node, id string) *html.Node {
	if h == nil {
		return nil
	}
	if h.Type == html.ElementNode {
		for _, a := range h.Attr {
			if a.Key == "id" && a.Val == id {
				return h
			}
		}
	}
	for ch := h.FirstChild; ch != nil; ch = ch.NextSibling {
		if r := findByID(ch, id); r != nil {
			return r
		}
	}
	return nil
}
