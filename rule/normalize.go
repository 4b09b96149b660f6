package rule

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// shape tags the representations a stored rule entry may come in.
type shape uint8

const (
	shapeMalformed    shape = iota
	shapeLegacyString       // "ad-banner"
	shapeLegacyObject       // {"className": "ad-banner", "enabled": true}
	shapeCanonical          // {"className": …, "enabled": …, "domain": null|"host"}
)

func (s shape) String() string {
	return [...]string{"malformed", "legacy-string", "legacy-object", "canonical"}[s]
}

func classify(v gjson.Result) shape {
	switch {
	case v.Type == gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return shapeMalformed
		}
		return shapeLegacyString
	case v.IsObject():
		cn := v.Get("className")
		if cn.Type != gjson.String || strings.TrimSpace(cn.Str) == "" {
			return shapeMalformed
		}
		dom := v.Get("domain")
		if !dom.Exists() {
			if en := v.Get("enabled"); en.Exists() && !en.IsBool() {
				return shapeMalformed
			}
			return shapeLegacyObject
		}
		if dom.Type != gjson.String && dom.Type != gjson.Null {
			return shapeMalformed
		}
		if !v.Get("enabled").IsBool() {
			return shapeMalformed
		}
		return shapeCanonical
	}
	return shapeMalformed
}

// decode maps one tagged entry to a Rule of the given kind.
func decode(v gjson.Result, kind Kind) (Rule, bool) {
	s := classify(v)
	switch s {
	case shapeLegacyString:
		return Rule{Spec: v.Str, Enabled: true, Domain: Global, Kind: kind}, true
	case shapeLegacyObject, shapeCanonical:
		r := Rule{
			Spec:    v.Get("className").Str,
			Enabled: true,
			Domain:  Global,
			Kind:    kind,
		}
		if en := v.Get("enabled"); en.Exists() {
			r.Enabled = en.Bool()
		}
		if dom := v.Get("domain"); dom.Type == gjson.String {
			r.Domain = dom.Str
		}
		if l := v.Get("label"); l.Type == gjson.String {
			r.Label = l.Str
		}
		if c := v.Get("cssRules"); c.Type == gjson.String {
			r.CSSRules = c.Str
		}
		return r, true
	}
	tracer().Debugf("rule: dropping %s entry %s", s, abbrev(v.Raw))
	return Rule{}, false
}

// Normalize decodes a stored rule list (a JSON array) into canonical rules of
// the given kind. Legacy shapes are upgraded, malformed entries dropped.
// Input which is not a JSON array yields an empty list.
//
// Normalize is pure and idempotent: re-normalizing the marshalled output
// yields the same rules.
func Normalize(raw []byte, kind Kind) []Rule {
	rules := []Rule{}
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return rules
	}
	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return rules
	}
	arr.ForEach(func(_, v gjson.Result) bool {
		if r, ok := decode(v, kind); ok {
			rules = append(rules, r)
		}
		return true
	})
	return rules
}

// NormalizeValues does the same as Normalize for already decoded values,
// e.g. a []interface{} produced by encoding/json.
func NormalizeValues(values []interface{}, kind Kind) []Rule {
	raw, err := json.Marshal(values)
	if err != nil {
		tracer().Errorf("rule: cannot re-encode values for normalization: %v", err)
		return []Rule{}
	}
	return Normalize(raw, kind)
}

// Marshal encodes a rule list in canonical shape. A nil list is written as [].
func Marshal(rules []Rule) ([]byte, error) {
	if rules == nil {
		rules = []Rule{}
	}
	return json.Marshal(rules)
}

// Clone copies a rule list.
func Clone(rules []Rule) []Rule {
	c := make([]Rule, len(rules))
	copy(c, rules)
	return c
}
