package transfer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage/memstore"
	"github.com/npillmayer/blocker/store"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(t *testing.T) *store.Store {
	ctx := context.Background()
	st := store.New(memstore.New())
	require.NoError(t, st.Load(ctx))
	require.NoError(t, st.Add(ctx, "ad", rule.Global, rule.Blocking, maybe.Nothing[string]()))
	require.NoError(t, st.Add(ctx, "promo box", "a.com", rule.Blocking, maybe.Just("side")))
	require.NoError(t, st.Toggle(ctx, "ad", rule.Global, rule.Blocking))
	require.NoError(t, st.AddStyling(ctx, "hdr", "a.com", "color: red", maybe.Nothing[string]()))
	require.NoError(t, st.SetEnabled(ctx, rule.Styling, false))
	return st
}

func TestRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	src := filled(t)
	var buf bytes.Buffer
	require.NoError(t, Export(src, time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)).Write(&buf))
	assert.Contains(t, buf.String(), `"exportDate": "2022-05-01T10:00:00.000Z"`)
	assert.Contains(t, buf.String(), `"version": "2.0"`)
	//
	dst := store.New(memstore.New())
	require.NoError(t, dst.Load(ctx))
	require.NoError(t, dst.Add(ctx, "stale", rule.Global, rule.Blocking, maybe.Nothing[string]()))
	sum, err := Import(ctx, dst, buf.Bytes(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Added)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, src.Rules(rule.Blocking), dst.Rules(rule.Blocking))
	assert.Equal(t, src.Rules(rule.Styling), dst.Rules(rule.Styling))
	assert.False(t, dst.Enabled(rule.Styling))
	assert.True(t, dst.Enabled(rule.Blocking))
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	dst := store.New(memstore.New())
	require.NoError(t, dst.Load(ctx))
	require.NoError(t, dst.Add(ctx, "ad", rule.Global, rule.Blocking, maybe.Nothing[string]()))
	require.NoError(t, dst.SetEnabled(ctx, rule.Blocking, false))
	file := `{"version":"2.0","config":{"blockedClasses":["ad",{"className":"ad","enabled":true,"domain":"b.com"}],"isEnabled":true}}`
	sum, err := Import(ctx, dst, []byte(file), false)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 2, sum.Total)
	assert.False(t, dst.Enabled(rule.Blocking), "merge leaves switches alone")
}

func TestMalformedImport(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.store")
	defer teardown()
	//
	ctx := context.Background()
	dst := filled(t)
	before := dst.Rules(rule.Blocking)
	for _, bad := range []string{`{not json`, `[]`, `{"version":"2.0"}`, `{"config":"x"}`} {
		_, err := Import(ctx, dst, []byte(bad), true)
		assert.ErrorIs(t, err, rule.ErrImportFormat, bad)
	}
	assert.Equal(t, before, dst.Rules(rule.Blocking))
	//
	f, err := Parse([]byte(`{"config":{"blockedClasses":"oops","isEnabled":"no"}}`))
	require.NoError(t, err)
	assert.Empty(t, f.Config.BlockedClasses)
	assert.True(t, f.Config.IsEnabled)
	assert.False(t, f.Config.CustomStyles.IsJust())
	assert.False(t, f.Config.IsStyleEnabled.IsJust())
}
