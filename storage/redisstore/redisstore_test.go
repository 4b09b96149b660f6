package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set BLOCKER_TEST_REDIS to the address of a scratch Redis server to run
// these tests, e.g. BLOCKER_TEST_REDIS=localhost:6379.
func testConfig(t *testing.T) Config {
	addr := os.Getenv("BLOCKER_TEST_REDIS")
	if addr == "" {
		t.Skip("BLOCKER_TEST_REDIS not set")
	}
	return Config{Addr: addr, Namespace: fmt.Sprintf("blocker-test-%d:", time.Now().UnixNano())}
}

func TestRedisStore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "blocker.storage")
	defer teardown()
	//
	cfg := testConfig(t)
	ctx := context.Background()
	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	//
	changes := make(chan storage.Change, 16)
	b.Watch(func(c storage.Change) { changes <- c })
	require.True(t, a.Set(ctx, "blockedClasses", []byte(`["ad"]`)).IsOk())
	select {
	case c := <-changes:
		assert.Equal(t, "blockedClasses", c.Key)
		assert.Equal(t, `["ad"]`, string(c.Value))
	case <-time.After(5 * time.Second):
		t.Fatal("no change announced")
	}
	v, err := b.Get(ctx, "blockedClasses").Get()
	require.NoError(t, err)
	assert.True(t, v.IsJust())
	keys, err := a.Keys(ctx, "blocked").Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"blockedClasses"}, keys)
	require.True(t, a.Remove(ctx, "blockedClasses").IsOk())
	v, _ = a.Get(ctx, "blockedClasses").Get()
	assert.False(t, v.IsJust())
}
