package rule

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind distinguishes blocking rules from styling rules.
type Kind uint8

const (
	Blocking Kind = iota // hide matching elements
	Styling              // attach custom declarations to matching elements
)

func (k Kind) String() string {
	switch k {
	case Blocking:
		return "blocking"
	case Styling:
		return "styling"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Storage keys of the primary store.
const (
	KeyBlockedClasses = "blockedClasses"
	KeyCustomStyles   = "customStyles"
	KeyIsEnabled      = "isEnabled"
	KeyIsStyleEnabled = "isStyleEnabled"
	KeyTheme          = "theme"
)

// StorageKey returns the primary-store key holding the rule list of kind k.
func (k Kind) StorageKey() string {
	if k == Styling {
		return KeyCustomStyles
	}
	return KeyBlockedClasses
}

// SwitchKey returns the primary-store key of the global switch for kind k.
func (k Kind) SwitchKey() string {
	if k == Styling {
		return KeyIsStyleEnabled
	}
	return KeyIsEnabled
}

// ParseKind accepts "blocking" and "styling" (and the storage keys).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocking", "block", KeyBlockedClasses:
		return Blocking, nil
	case "styling", "style", KeyCustomStyles:
		return Styling, nil
	}
	return Blocking, fmt.Errorf("unknown rule kind %q", s)
}

// Global is the domain value of rules applying on every site.
const Global = ""

// GlobalGroup is the group key used for global rules in grouped views.
const GlobalGroup = "global"

// Rule is one blocking or styling directive.
//
// Spec holds whitespace-separated tokens: class-name fragments, or an ID
// token prefixed with '#'. Domain is Global or an exact host name.
// Kind is not serialized; it is implied by the storage key a rule list
// is kept under.
type Rule struct {
	Spec     string
	Enabled  bool
	Domain   string
	Kind     Kind
	CSSRules string // styling rules only: "prop: value; prop: value"
	Label    string // free-text annotation, never used for matching
}

// New creates an enabled rule.
func New(spec, domain string, kind Kind) Rule {
	return Rule{Spec: spec, Enabled: true, Domain: domain, Kind: kind}
}

// IsGlobal is true for rules applying on every domain.
func (r Rule) IsGlobal() bool {
	return r.Domain == Global
}

// AppliesTo is true if r is enabled and scoped to either every site or
// exactly the given host name.
func (r Rule) AppliesTo(domain string) bool {
	return r.Enabled && (r.Domain == Global || r.Domain == domain)
}

// Scoped is true if r is global or belongs to domain, regardless of
// its enable flag.
func (r Rule) Scoped(domain string) bool {
	return r.Domain == Global || r.Domain == domain
}

// GroupKey returns the domain name, or "global" for global rules.
func (r Rule) GroupKey() string {
	if r.Domain == Global {
		return GlobalGroup
	}
	return r.Domain
}

// Key returns the identity of a rule within a rule list of one kind.
func (r Rule) Key() Key {
	return Key{Spec: r.Spec, Domain: r.Domain}
}

func (r Rule) String() string {
	return fmt.Sprintf("%s[%q@%s on=%v]", r.Kind, r.Spec, r.GroupKey(), r.Enabled)
}

// Key identifies a rule by (spec, domain). Within one kind, keys are unique.
type Key struct {
	Spec   string
	Domain string
}

// Matches compares two keys.
func (k Key) Matches(other Key) bool {
	return k.Spec == other.Spec && k.Domain == other.Domain
}

// --- JSON ------------------------------------------------------------------

type wireRule struct {
	ClassName string  `json:"className"`
	Enabled   bool    `json:"enabled"`
	Domain    *string `json:"domain"`
	Label     string  `json:"label,omitempty"`
	CSSRules  string  `json:"cssRules,omitempty"`
}

// MarshalJSON writes the canonical shape; the global domain is written as null.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := wireRule{
		ClassName: r.Spec,
		Enabled:   r.Enabled,
		Label:     r.Label,
		CSSRules:  r.CSSRules,
	}
	if r.Domain != Global {
		d := r.Domain
		w.Domain = &d
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts the canonical shape as well as every legacy shape.
// Kind is left untouched.
func (r *Rule) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("rule: invalid JSON")
	}
	decoded, ok := decode(gjson.ParseBytes(data), r.Kind)
	if !ok {
		return fmt.Errorf("rule: unrecognized rule shape: %s", abbrev(string(data)))
	}
	*r = decoded
	return nil
}

func abbrev(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}

// --- Spec cleaning ---------------------------------------------------------

// CleanSpec prepares user input: leading dots are removed, runs of
// whitespace collapse into a single blank. An empty result is an
// InvalidSpecError.
func CleanSpec(input string) (string, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimLeft(s, ".")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || strings.Trim(s, "#. ") == "" {
		return "", &InvalidSpecError{Spec: input}
	}
	return s, nil
}

// DomainFromURL extracts the host name of a page URL, or "unknown".
func DomainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
