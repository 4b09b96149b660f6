package stylesheet

import (
	"strings"

	"github.com/npillmayer/blocker/dom"
	"github.com/npillmayer/blocker/dom/style"
	"github.com/npillmayer/blocker/rule"
)

// BackupAttr holds an element's style attribute as it was before the first
// styling rule touched it.
const BackupAttr = "data-original-style"

// Inliner removes inline declarations from live elements which would
// conflict with styling rules, and restores them later.
type Inliner struct {
	doc *dom.Document
}

// NewInliner creates an inliner operating on doc.
func NewInliner(doc *dom.Document) *Inliner {
	return &Inliner{doc: doc}
}

// Apply strips, for every active styling rule with declarations, exactly the
// properties the rule declares from the inline style of matching elements.
// The original style attribute is backed up once per element; an existing
// backup is never overwritten. Apply returns the number of elements touched.
func (in *Inliner) Apply(rs []rule.Rule, domain string) int {
	touched := 0
	for _, r := range Active(rs, domain) {
		if r.Kind != rule.Styling || strings.TrimSpace(r.CSSRules) == "" {
			continue
		}
		keys := style.PropertyNames(r.CSSRules)
		for _, el := range in.doc.Select(r.Spec) {
			if !el.HasAttr(BackupAttr) {
				orig, _ := el.Attr("style")
				el.SetAttr(BackupAttr, orig)
			}
			attr, ok := el.Attr("style")
			if !ok {
				continue
			}
			inline := style.ParseInline(attr).Without(keys)
			if inline.Empty() {
				el.RemoveAttr("style")
			} else {
				el.SetAttr("style", inline.String())
			}
			touched++
		}
	}
	tracer().Debugf("stylesheet: stripped inline styles of %d element(s)", touched)
	return touched
}

// Restore puts back every backed-up style attribute and removes the backups.
// An empty backup means the element had no style attribute.
func (in *Inliner) Restore() int {
	elems := in.doc.WithAttribute(BackupAttr)
	for _, el := range elems {
		orig, _ := el.Attr(BackupAttr)
		if orig != "" {
			el.SetAttr("style", orig)
		} else {
			el.RemoveAttr("style")
		}
		el.RemoveAttr(BackupAttr)
	}
	if len(elems) > 0 {
		tracer().Infof("stylesheet: restored inline styles of %d element(s)", len(elems))
	}
	return len(elems)
}
