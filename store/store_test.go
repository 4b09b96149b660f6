package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage/memstore"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backupSpy struct {
	domains []string
	sizes   []int
}

func (b *backupSpy) WriteBackup(ctx context.Context, domain string, rs []rule.Rule) {
	b.domains = append(b.domains, domain)
	b.sizes = append(b.sizes, len(rs))
}

func newStore(t *testing.T, opts ...Option) (*Store, *memstore.Store) {
	mem := memstore.New()
	s := New(mem, opts...)
	require.NoError(t, s.Load(context.Background()))
	return s, mem
}

var noLabel = maybe.Nothing[string]()

func TestDuplicateRejection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Add(ctx, "ad", "example.com", rule.Blocking, noLabel))
	err := s.Add(ctx, "ad", "example.com", rule.Blocking, noLabel)
	assert.ErrorIs(t, err, rule.ErrDuplicate)
	var dup *rule.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ad", dup.Spec)
	assert.ErrorIs(t, s.Add(ctx, "ads", "example.com", rule.Blocking, noLabel), rule.ErrDuplicate)
	assert.NoError(t, s.Add(ctx, "ad banner", "example.com", rule.Blocking, noLabel))
	assert.NoError(t, s.Add(ctx, "ads", "other.com", rule.Blocking, noLabel))
	assert.NoError(t, s.Add(ctx, "ad", "example.com", rule.Styling, noLabel), "kinds are separate")
	assert.ErrorIs(t, s.Add(ctx, " .. ", "example.com", rule.Blocking, noLabel), rule.ErrInvalidSpec)
	assert.Len(t, s.Rules(rule.Blocking), 3)
}

func TestAddCleansSpecAndPersists(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	s, mem := newStore(t)
	require.NoError(t, s.Add(ctx, "  .promo   box ", rule.Global, rule.Blocking, maybe.Just("sidebar")))
	rs := s.Rules(rule.Blocking)
	require.Len(t, rs, 1)
	assert.Equal(t, "promo box", rs[0].Spec)
	assert.Equal(t, "sidebar", rs[0].Label)
	assert.True(t, rs[0].Enabled)
	//
	v, err := mem.Get(ctx, rule.KeyBlockedClasses).Get()
	require.NoError(t, err)
	raw, ok := v.Get()
	require.True(t, ok)
	assert.JSONEq(t, `[{"className":"promo box","enabled":true,"domain":null,"label":"sidebar"}]`, string(raw))
	//
	reloaded := New(mem)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Rules(rule.Blocking), reloaded.Rules(rule.Blocking))
}

func TestToggleDomain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	s, _ := newStore(t)
	for _, spec := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(ctx, spec, "x.com", rule.Blocking, noLabel))
	}
	require.NoError(t, s.Add(ctx, "other", "y.com", rule.Blocking, noLabel))
	require.NoError(t, s.Toggle(ctx, "c", "x.com", rule.Blocking))
	//
	state, err := s.ToggleDomain(ctx, "x.com", rule.Blocking)
	require.NoError(t, err)
	assert.False(t, state)
	for _, r := range s.Query(Filter{Domain: maybe.Just("x.com")}) {
		assert.False(t, r.Enabled, r.String())
	}
	state, err = s.ToggleDomain(ctx, "x.com", rule.Blocking)
	require.NoError(t, err)
	assert.True(t, state)
	assert.Len(t, s.Query(Filter{Domain: maybe.Just("x.com"), OnlyActive: true}), 3)
	// rules of other domains stay untouched
	y := s.Find("other", "y.com", rule.Blocking)
	r, ok := y.Get()
	require.True(t, ok)
	assert.True(t, r.Enabled)
	//
	_, err = s.ToggleDomain(ctx, "x.com", rule.Styling)
	assert.ErrorIs(t, err, ErrNothingToToggle)
}

func TestToggleDomainIncludesGlobal(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Add(ctx, "g", rule.Global, rule.Blocking, noLabel))
	state, err := s.ToggleDomain(ctx, "z.com", rule.Blocking)
	require.NoError(t, err)
	assert.False(t, state)
	assert.False(t, s.Rules(rule.Blocking)[0].Enabled)
}

func TestRemoveToggleUpdate(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Add(ctx, "one", "x.com", rule.Blocking, noLabel))
	require.NoError(t, s.Add(ctx, "two words", "x.com", rule.Blocking, noLabel))
	assert.NoError(t, s.Remove(ctx, "missing", "x.com", rule.Blocking))
	assert.ErrorIs(t, s.Toggle(ctx, "missing", "x.com", rule.Blocking), rule.ErrNotFound)
	//
	err := s.Update(ctx, "two words", "x.com", rule.Blocking, Patch{Spec: maybe.Just("one")})
	assert.ErrorIs(t, err, rule.ErrDuplicate)
	err = s.Update(ctx, "two words", "x.com", rule.Blocking, Patch{Spec: maybe.Just("three words"), Label: maybe.Just("hdr")})
	require.NoError(t, err)
	r, ok := s.Find("three words", "x.com", rule.Blocking).Get()
	require.True(t, ok)
	assert.Equal(t, "hdr", r.Label)
	// relabel only; renaming to itself is not a duplicate
	require.NoError(t, s.Update(ctx, "one", "x.com", rule.Blocking, Patch{Spec: maybe.Just("one"), Label: maybe.Just("x")}))
	//
	require.NoError(t, s.Remove(ctx, "one", "x.com", rule.Blocking))
	assert.Len(t, s.Rules(rule.Blocking), 1)
	require.NoError(t, s.ClearAll(ctx, rule.Blocking))
	assert.Empty(t, s.Rules(rule.Blocking))
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	s, mem := newStore(t)
	mem.Fail = func(op, key string) error { return errors.New("quota") }
	err := s.Add(ctx, "ad", "x.com", rule.Blocking, noLabel)
	assert.ErrorIs(t, err, rule.ErrPersistence)
	assert.Len(t, s.Rules(rule.Blocking), 1)
	assert.ErrorIs(t, s.Load(ctx), rule.ErrPersistence)
}

func TestBackupAndListeners(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	spy := &backupSpy{}
	s, _ := newStore(t, WithBackup(spy), WithPageDomain("page.com"))
	var events []string
	cancel := s.OnChange(func(e Event) { events = append(events, e.Key) })
	defer cancel()
	require.NoError(t, s.Add(ctx, "ad", "x.com", rule.Blocking, noLabel))
	require.NoError(t, s.Add(ctx, "g", rule.Global, rule.Blocking, noLabel))
	require.NoError(t, s.AddStyling(ctx, "box", "x.com", "color: red", noLabel))
	require.NoError(t, s.SetEnabled(ctx, rule.Styling, false))
	assert.Equal(t, []string{"x.com", "page.com"}, spy.domains)
	assert.Equal(t, []int{1, 2}, spy.sizes)
	assert.Equal(t, []string{rule.KeyBlockedClasses, rule.KeyBlockedClasses,
		rule.KeyCustomStyles, rule.KeyIsStyleEnabled}, events)
	r, _ := s.Find("box", "x.com", rule.Styling).Get()
	assert.Equal(t, "color: red", r.CSSRules)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	mem.Set(ctx, rule.KeyIsEnabled, []byte(`"yes"`))
	mem.Set(ctx, rule.KeyIsStyleEnabled, []byte(`false`))
	mem.Set(ctx, rule.KeyTheme, []byte(`"dark"`))
	s := New(mem)
	require.NoError(t, s.Load(ctx))
	st := s.Settings()
	assert.True(t, st.Enabled, "non-boolean switch defaults to on")
	assert.False(t, st.StyleEnabled)
	assert.Equal(t, ThemeDark, st.Theme)
	on, err := s.ToggleEnabled(ctx, rule.Blocking)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Error(t, s.SetTheme(ctx, "purple"))
	require.NoError(t, s.SetTheme(ctx, ThemeLight))
	raw, _ := mem.Get(ctx, rule.KeyTheme).Get()
	b, _ := raw.Get()
	assert.Equal(t, `"light"`, string(b))
}

func TestFollowExternalChanges(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	mem := memstore.New()
	a, b := New(mem), New(mem)
	require.NoError(t, b.Load(ctx))
	cancel := b.Follow()
	defer cancel()
	var events int
	b.OnChange(func(Event) { events++ })
	require.NoError(t, a.Add(ctx, "ad", "x.com", rule.Blocking, noLabel))
	assert.Len(t, b.Rules(rule.Blocking), 1)
	assert.Equal(t, 1, events)
	// re-writing the same state does not notify
	b.Apply(storageChange(rule.KeyBlockedClasses, a))
	assert.Equal(t, 1, events)
	require.NoError(t, a.SetEnabled(ctx, rule.Blocking, false))
	assert.False(t, b.Enabled(rule.Blocking))
	assert.Equal(t, 2, events)
}

func TestQueryAndGrouping(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Add(ctx, "g", rule.Global, rule.Blocking, noLabel))
	require.NoError(t, s.Add(ctx, "b", "b.com", rule.Blocking, noLabel))
	require.NoError(t, s.Add(ctx, "a", "a.com", rule.Blocking, maybe.Just("lbl")))
	require.NoError(t, s.AddStyling(ctx, "s", "a.com", "color: red", noLabel))
	require.NoError(t, s.Toggle(ctx, "b", "b.com", rule.Blocking))
	//
	active := s.Query(Filter{Domain: maybe.Just("a.com"), OnlyActive: true, Kind: maybe.Just(rule.Blocking)})
	assert.Len(t, active, 2)
	assert.Len(t, s.Query(Filter{Domain: maybe.Just("b.com"), OnlyActive: true}), 1)
	assert.Len(t, s.Query(Filter{Domain: maybe.Just(rule.Global)}), 1)
	assert.Len(t, s.Query(Filter{}), 4)
	assert.Len(t, s.Query(Filter{OnlyActive: true}), 3)
	//
	g := s.GroupByDomain(rule.Blocking)
	assert.Equal(t, []string{"global", "a.com", "b.com"}, g.Keys)
	assert.Equal(t, 3, g.Len())
	assert.Len(t, s.Rules(rule.Blocking), 3, "grouping must not mutate")
	tree := g.Tree()
	assert.True(t, strings.Contains(tree, "[x] a  (lbl)"), tree)
	assert.True(t, strings.Contains(tree, "[ ] b"), tree)
	assert.ElementsMatch(t, []string{"a.com", "b.com"}, s.Domains())
}
