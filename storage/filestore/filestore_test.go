package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.storage")
	defer teardown()
	//
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, "isEnabled").Get()
	require.NoError(t, err)
	assert.False(t, v.IsJust())
	require.True(t, s.Set(ctx, "isEnabled", []byte("false")).IsOk())
	require.True(t, s.Set(ctx, "element-blocker-a.com", []byte("{}")).IsOk())
	v, _ = s.Get(ctx, "isEnabled").Get()
	b, _ := v.Get()
	assert.Equal(t, "false", string(b))
	keys, _ := s.Keys(ctx, "element-blocker-").Get()
	assert.Equal(t, []string{"element-blocker-a.com"}, keys)
	all, _ := s.Keys(ctx, "").Get()
	assert.Len(t, all, 2)
	require.True(t, s.Remove(ctx, "isEnabled").IsOk())
	require.True(t, s.Remove(ctx, "isEnabled").IsOk())
	v, _ = s.Get(ctx, "isEnabled").Get()
	assert.False(t, v.IsJust())
}

func TestExternalChangesAreWatched(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.storage")
	defer teardown()
	//
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
	changes := make(chan storage.Change, 16)
	s.Watch(func(c storage.Change) { changes <- c })
	//
	path := filepath.Join(dir, "theme.json")
	require.NoError(t, os.WriteFile(path, []byte(`"dark"`), 0o644))
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Key == "theme" && string(c.Value) == `"dark"` {
				return
			}
		case <-timeout:
			t.Fatal("no change event for external write")
		}
	}
}

func TestKeyEscaping(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.True(t, s.Set(ctx, "a/b c", []byte("1")).IsOk())
	keys, _ := s.Keys(ctx, "").Get()
	assert.Equal(t, []string{"a/b c"}, keys)
	key, ok := keyOf(s.path("a/b c"))
	assert.True(t, ok)
	assert.Equal(t, "a/b c", key)
	_, ok = keyOf(filepath.Join(dir, ".tmp-123"))
	assert.False(t, ok)
}
