package page

import (
	"context"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/blocker/storage/memstore"
	"github.com/npillmayer/blocker/store"
	"github.com/stretchr/testify/require"
)

// memstoreWriter is a second writer on a shared primary store, e.g. the
// options page.
func memstoreWriter(primary *memstore.Store) *store.Store {
	s := store.New(primary)
	_ = s.Load(context.Background())
	return s
}

func mustSel(t *testing.T, sel string) cascadia.Sel {
	s, err := cascadia.Parse(sel)
	require.NoError(t, err)
	return s
}
