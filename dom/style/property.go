/*
Package style handles CSS declaration text: inline style attributes and the
declaration lists of styling rules.

Both are handled as plain "property: value" lists separated by semicolons.
Inline styles are manipulated textually, leaving formatting of untouched
declarations as the page authored it.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package style

import (
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer will return a tracer. We are tracing to 'blocker.dom'
func tracer() tracing.Trace {
	return tracing.Select("blocker.dom")
}

// Property is a raw value for a CSS property. For example, with
//
//	color: black
//
// a property value of "black" is set.
type Property string

// NullStyle is an empty property value.
const NullStyle Property = ""

func (p Property) String() string {
	return string(p)
}

// IsEmpty checks wether a property is empty, i.e. the null-string.
func (p Property) IsEmpty() bool {
	return strings.TrimSpace(string(p)) == ""
}

// IsImportant checks for a trailing "!important".
func (p Property) IsImportant() bool {
	return strings.HasSuffix(strings.TrimSpace(string(p)), "!important")
}

// KeyValue is a container for a style property.
type KeyValue struct {
	Key   string
	Value Property
}

// PropertyNames extracts the property keys of a declaration list, e.g.
//
//	PropertyNames("color: red; margin-top:0")  =>  ["color", "margin-top"]
//
// Declarations are split at ';', then at the first ':'. Fragments without
// a key are skipped.
func PropertyNames(decls string) []string {
	var names []string
	for _, d := range strings.Split(decls, ";") {
		colon := strings.Index(d, ":")
		if colon <= 0 {
			continue
		}
		if key := strings.TrimSpace(d[:colon]); key != "" {
			names = append(names, key)
		}
	}
	return names
}

// InlineStyle is the content of an element's style attribute, kept as the
// sequence of raw declaration fragments.
type InlineStyle struct {
	decls []string
}

// ParseInline splits a style attribute into declarations. Blank fragments
// are dropped.
func ParseInline(attr string) InlineStyle {
	var s InlineStyle
	for _, d := range strings.Split(attr, ";") {
		if strings.TrimSpace(d) != "" {
			s.decls = append(s.decls, d)
		}
	}
	return s
}

// Properties returns the declarations as key-value pairs, in order.
func (s InlineStyle) Properties() []KeyValue {
	kvs := make([]KeyValue, 0, len(s.decls))
	for _, d := range s.decls {
		colon := strings.Index(d, ":")
		if colon <= 0 {
			continue
		}
		kvs = append(kvs, KeyValue{
			Key:   strings.TrimSpace(d[:colon]),
			Value: Property(strings.TrimSpace(d[colon+1:])),
		})
	}
	return kvs
}

// Without returns a copy of s with all declarations for the given property
// keys removed. Property names are case-insensitive. Fragments which are
// not key-value pairs are kept.
func (s InlineStyle) Without(keys []string) InlineStyle {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[strings.ToLower(strings.TrimSpace(k))] = true
	}
	var r InlineStyle
	for _, d := range s.decls {
		colon := strings.Index(d, ":")
		if colon > 0 && drop[strings.ToLower(strings.TrimSpace(d[:colon]))] {
			tracer().Debugf("style: stripping inline declaration %q", strings.TrimSpace(d))
			continue
		}
		r.decls = append(r.decls, d)
	}
	return r
}

// Empty is true if no declaration is left.
func (s InlineStyle) Empty() bool {
	return strings.TrimSpace(s.String()) == ""
}

// String re-joins the declarations with ';'.
func (s InlineStyle) String() string {
	return strings.Join(s.decls, ";")
}
