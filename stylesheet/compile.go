package stylesheet

import (
	"strings"

	"github.com/npillmayer/blocker/dom/style/cssom/douceuradapter"
	"github.com/npillmayer/blocker/matcher"
	"github.com/npillmayer/blocker/rule"
)

// HideDeclaration is the declaration block of compiled blocking rules.
const HideDeclaration = "{ display: none !important; }"

// Active returns the rules of rs which are enabled and apply to domain,
// in list order.
func Active(rs []rule.Rule, domain string) []rule.Rule {
	var active []rule.Rule
	for _, r := range rs {
		if r.AppliesTo(domain) {
			active = append(active, r)
		}
	}
	return active
}

// Compile produces the stylesheet body for the rules active on domain.
// With globalEnabled unset, or with no active rule, the result is the empty
// string, meaning "remove every effect".
//
// Blocking rules end up in a single block, followed by one block per styling
// rule. Output is deterministic: rule order is list order.
func Compile(rs []rule.Rule, domain string, globalEnabled bool) string {
	if !globalEnabled {
		return ""
	}
	var sels []string
	var blocks []string
	for _, r := range Active(rs, domain) {
		switch r.Kind {
		case rule.Blocking:
			if sel := selector(r); sel != "" {
				sels = append(sels, sel)
			}
		case rule.Styling:
			if b := styleBlock(r); b != "" {
				blocks = append(blocks, b)
			}
		}
	}
	if len(sels) > 0 {
		blocks = append([]string{strings.Join(sels, ", ") + " " + HideDeclaration}, blocks...)
	}
	return strings.Join(blocks, "\n")
}

func selector(r rule.Rule) string {
	sel := matcher.GenerateSelector(r.Spec)
	if sel == "" {
		tracer().Errorf("stylesheet: skipping rule with empty spec: %v", r)
	}
	return sel
}

// styleBlock renders one styling rule. Rules without declarations are inert.
func styleBlock(r rule.Rule) string {
	if strings.TrimSpace(r.CSSRules) == "" {
		return ""
	}
	sel := selector(r)
	if sel == "" {
		return ""
	}
	kvs, _, err := douceuradapter.Declarations(r.CSSRules)
	if err != nil {
		tracer().Errorf("stylesheet: skipping %v: %v", r, err)
		return ""
	}
	var b strings.Builder
	for _, kv := range kvs {
		if kv.Key == "" || kv.Value.IsEmpty() {
			continue
		}
		b.WriteString(" ")
		b.WriteString(kv.Key)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(kv.Value.String()))
		b.WriteString(" !important;")
	}
	if b.Len() == 0 {
		tracer().Debugf("stylesheet: %v has no usable declarations", r)
		return ""
	}
	return sel + " {" + b.String() + " }"
}
