package cssom

import (
	"strings"

	"github.com/npillmayer/blocker/dom/style"
)

// StyleSheet is an interface to abstract away a stylesheet-implementation.
//
// See interface Rule.
type StyleSheet interface {
	AppendRules(StyleSheet) // append rules from another stylesheet
	Empty() bool            // does this stylesheet contain any rules?
	Rules() []Rule          // all the rules of a stylesheet
}

// Rule is the type stylesheets consists of.
//
// See interface StyleSheet.
type Rule interface {
	Selector() string            // the prelude / selectors of the rule
	Properties() []string        // property keys, e.g. "margin-top"
	Value(string) style.Property // property value for key, e.g. "15px"
	IsImportant(string) bool     // is property key marked as important?
}

// Selectors splits the prelude of a rule into its comma-separated selectors.
func Selectors(r Rule) []string {
	var sels []string
	for _, s := range strings.Split(r.Selector(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			sels = append(sels, s)
		}
	}
	return sels
}

// FindBySelector returns the first rule of a stylesheet whose selector list
// contains sel, or nil.
func FindBySelector(sheet StyleSheet, sel string) Rule {
	if sheet == nil {
		return nil
	}
	for _, r := range sheet.Rules() {
		for _, s := range Selectors(r) {
			if s == sel {
				return r
			}
		}
	}
	tracer().Debugf("cssom: no rule for selector %q", sel)
	return nil
}
