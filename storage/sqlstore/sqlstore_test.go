package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocker.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestSQLStore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.storage")
	defer teardown()
	//
	ctx := context.Background()
	s, path := openTemp(t)
	var changes []storage.Change
	s.Watch(func(c storage.Change) { changes = append(changes, c) })
	//
	v, err := s.Get(ctx, "blockedClasses").Get()
	require.NoError(t, err)
	assert.False(t, v.IsJust())
	require.True(t, s.Set(ctx, "blockedClasses", []byte(`["ad"]`)).IsOk())
	require.True(t, s.Set(ctx, "blockedClasses", []byte(`["ad","promo"]`)).IsOk())
	require.True(t, s.Set(ctx, "element-blocker-x.com", []byte(`{}`)).IsOk())
	v, _ = s.Get(ctx, "blockedClasses").Get()
	b, ok := v.Get()
	require.True(t, ok)
	assert.Equal(t, `["ad","promo"]`, string(b))
	keys, err := s.Keys(ctx, "element-blocker-").Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"element-blocker-x.com"}, keys)
	//
	require.True(t, s.Remove(ctx, "blockedClasses").IsOk())
	require.True(t, s.Remove(ctx, "blockedClasses").IsOk())
	assert.Len(t, changes, 4)
	require.NoError(t, s.Close())
	//
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, _ = reopened.Get(ctx, "element-blocker-x.com").Get()
	assert.True(t, v.IsJust())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
