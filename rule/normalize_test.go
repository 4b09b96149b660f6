package rule

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixed = `[
	"ad",
	{"className": "banner", "enabled": false},
	{"className": "promo box", "enabled": true, "domain": "news.example", "label": "sidebar"},
	{"className": "sticky", "enabled": true, "domain": null, "cssRules": "color: red"},
	42,
	null,
	{"enabled": true, "domain": null},
	{"className": "x", "enabled": "yes", "domain": null},
	{"className": "y", "enabled": true, "domain": 7},
	"   "
]`

func TestNormalizeShapes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.rule")
	defer teardown()
	//
	rules := Normalize([]byte(mixed), Blocking)
	require.Len(t, rules, 4)
	assert.Equal(t, Rule{Spec: "ad", Enabled: true, Domain: Global}, rules[0])
	assert.Equal(t, Rule{Spec: "banner", Enabled: false, Domain: Global}, rules[1])
	assert.Equal(t, Rule{Spec: "promo box", Enabled: true, Domain: "news.example", Label: "sidebar"}, rules[2])
	assert.Equal(t, "color: red", rules[3].CSSRules)
}

func TestNormalizeIdempotent(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.rule")
	defer teardown()
	//
	inputs := []string{mixed, `[]`, `{}`, `"ad"`, `not json`, ``, `[{"className":"a","domain":"b.com"}]`}
	for _, in := range inputs {
		once := Normalize([]byte(in), Styling)
		raw, err := Marshal(once)
		require.NoError(t, err)
		twice := Normalize(raw, Styling)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalizeValues(t *testing.T) {
	var values []interface{}
	require.NoError(t, json.Unmarshal([]byte(mixed), &values))
	assert.Equal(t, Normalize([]byte(mixed), Blocking), NormalizeValues(values, Blocking))
}

func TestRuleJSON(t *testing.T) {
	r := New("ad", Global, Blocking)
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"className":"ad","enabled":true,"domain":null}`, string(raw))

	var back []Rule
	require.NoError(t, json.Unmarshal([]byte(`["ad", {"className":"b","enabled":false,"domain":"x.com"}]`), &back))
	require.Len(t, back, 2)
	assert.Equal(t, r, back[0])
	assert.Equal(t, "x.com", back[1].Domain)

	var bad Rule
	assert.Error(t, json.Unmarshal([]byte(`17`), &bad))
}

func TestCleanSpec(t *testing.T) {
	s, err := CleanSpec("  ..ad   banner ")
	require.NoError(t, err)
	assert.Equal(t, "ad banner", s)
	_, err = CleanSpec(" ... ")
	assert.True(t, errors.Is(err, ErrInvalidSpec))
	_, err = CleanSpec("#")
	assert.True(t, errors.Is(err, ErrInvalidSpec))
}

func TestDomainFromURL(t *testing.T) {
	assert.Equal(t, "news.example", DomainFromURL("https://news.example:8443/a?b=c"))
	assert.Equal(t, "unknown", DomainFromURL("::not a url"))
	assert.Equal(t, "unknown", DomainFromURL("about:blank"))
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &DuplicateError{Spec: "ad", Domain: Global, Kind: Blocking}
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Contains(t, err.Error(), "global")
	cause := errors.New("quota exceeded")
	err = Persistence("set", cause)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Same(t, err, Persistence("again", err))
	assert.Nil(t, Persistence("noop", nil))
}
