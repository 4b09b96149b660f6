package maybe_test

import (
	"strings"
	"testing"

	. "github.com/npillmayer/blocker/maybe"
)

func TestMaybeSimple(t *testing.T) {
	x := Just("ad-banner")
	y := Nothing[string]()

	var v string
	switch m := x.Match(); m {
	case m.Just(&v):
		t.Logf("Just(%s)", v)
	case m.Nothing():
		t.Logf("Nothing")
	}
	if v != "ad-banner" {
		t.Errorf("expected v to be ad-banner, is %#v", v)
	}

	var w string
	switch m := y.Match(); m {
	case m.Just(&w):
		t.Logf("Just(%s)", w)
	case m.Nothing():
		w = "none"
	}
	if w != "none" {
		t.Errorf("expected w to be none, is %#v", w)
	}
}

func TestMaybeWithDefault(t *testing.T) {
	if Just(false).WithDefault(true) != false {
		t.Error("expected Just(false) to have value false, hasn't")
	}
	if Nothing[bool]().WithDefault(true) != true {
		t.Error("expected Nothing to default to true, doesn't")
	}
}

func TestMaybeMap(t *testing.T) {
	x := Just(" Label ").Map(strings.TrimSpace)
	if v, ok := x.Get(); !ok || v != "Label" {
		t.Errorf("expected Just(Label), have %v/%v", v, ok)
	}
	n := Map(func(s string) int { return len(s) }, Just("abc"))
	if n.WithDefault(0) != 3 {
		t.Errorf("expected length 3, have %d", n.WithDefault(0))
	}
	if Map(func(s string) int { return len(s) }, Nothing[string]()).IsJust() {
		t.Error("expected Map over Nothing to be Nothing")
	}
}

func TestMaybeFromPointer(t *testing.T) {
	var p *bool
	if FromPointer(p).IsJust() {
		t.Error("expected nil pointer to map to Nothing")
	}
	b := false
	if v, ok := FromPointer(&b).Get(); !ok || v {
		t.Error("expected pointer to false to map to Just(false)")
	}
	if Of(1, false).IsJust() || !Of(1, true).IsJust() {
		t.Error("comma-ok conversion broken")
	}
}
