package matcher

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
)

// Parsed is the decomposition of a selector spec.
type Parsed struct {
	ID      maybe.Maybe[string]
	Classes []string // order-preserving, duplicates are inert
}

// Empty is true if neither an ID nor a class token is present.
func (p Parsed) Empty() bool {
	return !p.ID.IsJust() && len(p.Classes) == 0
}

// ParseSelectorSpec splits a spec on whitespace. A token starting with '#'
// sets the ID (the last one wins), all other tokens are class fragments.
func ParseSelectorSpec(spec string) Parsed {
	p := Parsed{ID: maybe.Nothing[string]()}
	for _, tok := range strings.Fields(spec) {
		if strings.HasPrefix(tok, "#") {
			if id := tok[1:]; id != "" {
				p.ID = maybe.Just(id)
			}
			continue
		}
		p.Classes = append(p.Classes, tok)
	}
	return p
}

// isBareToken is true for a spec consisting of one class fragment without
// any whitespace.
func isBareToken(spec string) bool {
	return spec != "" && !strings.ContainsFunc(spec, unicode.IsSpace) && !strings.HasPrefix(spec, "#")
}

// GenerateSelector returns the CSS selector equivalent to spec.
// An empty spec yields the empty string; callers must reject it beforehand.
func GenerateSelector(spec string) string {
	p := ParseSelectorSpec(spec)
	if p.Empty() {
		return ""
	}
	var b strings.Builder
	var id string
	switch m := p.ID.Match(); m {
	case m.Just(&id):
		b.WriteByte('#')
		b.WriteString(EscapeIdent(id))
		writeWholeWord(&b, p.Classes)
	case m.Nothing():
		if len(p.Classes) == 1 && isBareToken(spec) {
			b.WriteString(`[class*="`)
			b.WriteString(quoteAttr(p.Classes[0]))
			b.WriteString(`"]`)
		} else {
			writeWholeWord(&b, p.Classes)
		}
	}
	return b.String()
}

func writeWholeWord(b *strings.Builder, classes []string) {
	for _, c := range classes {
		b.WriteString(`[class~="`)
		b.WriteString(quoteAttr(c))
		b.WriteString(`"]`)
	}
}

// Compile parses the selector generated for spec into a cascadia selector.
func Compile(spec string) (cascadia.Sel, error) {
	sel := GenerateSelector(spec)
	if sel == "" {
		return nil, &rule.InvalidSpecError{Spec: spec}
	}
	s, err := cascadia.Parse(sel)
	if err != nil {
		tracer().Errorf("matcher: generated selector %q does not parse: %v", sel, err)
		return nil, fmt.Errorf("compile %q: %w", spec, err)
	}
	return s, nil
}

// Element is the DOM-less view of an element: its class list and ID.
type Element interface {
	Classes() []string
	ID() string
}

// Matches decides whether spec applies to el, with the same semantics as
// the selector produced by GenerateSelector.
func Matches(spec string, el Element) bool {
	p := ParseSelectorSpec(spec)
	if p.Empty() {
		return false
	}
	classes := el.Classes()
	if id, ok := p.ID.Get(); ok {
		return el.ID() == id && hasAll(classes, p.Classes)
	}
	if len(p.Classes) == 1 && isBareToken(spec) {
		return strings.Contains(strings.Join(classes, " "), p.Classes[0])
	}
	return hasAll(classes, p.Classes)
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsDuplicate is true if a rule in existing has the same domain and either
// the identical spec or, if both specs are single bare fragments, one spec
// is a substring of the other. The containment check is symmetric.
//
// Callers restrict existing to rules of one kind.
func IsDuplicate(existing []rule.Rule, spec, domain string) bool {
	for _, ex := range existing {
		if ex.Domain != domain {
			continue
		}
		if ex.Spec == spec {
			return true
		}
		if isBareToken(spec) && isBareToken(ex.Spec) &&
			(strings.Contains(ex.Spec, spec) || strings.Contains(spec, ex.Spec)) {
			tracer().Debugf("matcher: %q overlaps with existing %q on %q", spec, ex.Spec, domain)
			return true
		}
	}
	return false
}

// --- Escaping --------------------------------------------------------------

// quoteAttr escapes a value for use inside a double-quoted attribute selector.
func quoteAttr(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeIdent escapes s to be used as a CSS identifier, following the
// algorithm of CSSOM's CSS.escape().
func EscapeIdent(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('�')
		case (r >= 0x01 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
