/*
Package storage defines the port to key-value persistence channels.

Both the primary store (the rule lists and settings) and the backup store
(per-domain snapshots) are key-value channels holding JSON values. Concrete
channels live in sub-packages:

    memstore      in-memory, for tests and single-process use
    filestore     one JSON file per key in a directory, watched with fsnotify
    sqlstore      a key-value table in SQLite, through gorm
    redisstore    Redis keys, with change fan-out over pub/sub

All channel calls return result.Result values. A missing key is not an
error, but a maybe.Nothing.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package storage

import (
	"context"
	"sync"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.storage'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.storage")
}

// Store is a key-value persistence channel.
type Store interface {
	Get(ctx context.Context, key string) result.Result[maybe.Maybe[[]byte]]
	Set(ctx context.Context, key string, value []byte) result.Result[result.Unit]
	Remove(ctx context.Context, key string) result.Result[result.Unit]
	Keys(ctx context.Context, prefix string) result.Result[[]string]
	// Watch registers fn for changes of any key, including changes made
	// through this instance. The returned function unregisters fn.
	Watch(fn func(Change)) (cancel func())
	Close() error
}

// Change describes a modified key. For removed keys Value is nil.
type Change struct {
	Key     string
	Value   []byte
	Removed bool
}

// Watchers is a registry of change callbacks, to be embedded by channel
// implementations.
type Watchers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

// Watch registers fn and returns a function to unregister it. Part of
// interface Store for types embedding Watchers.
func (w *Watchers) Watch(fn func(Change)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fns == nil {
		w.fns = make(map[int]func(Change))
	}
	id := w.next
	w.next++
	w.fns[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.fns, id)
	}
}

// Fire calls every registered callback, in registration order. Callbacks
// run on the caller's goroutine and must not be fired while holding a lock
// the callbacks might need.
func (w *Watchers) Fire(c Change) {
	w.mu.Lock()
	fns := make([]func(Change), 0, len(w.fns))
	for id := 0; id < w.next; id++ {
		if fn, ok := w.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	w.mu.Unlock()
	tracer().Debugf("storage: change of %q to %d watcher(s)", c.Key, len(fns))
	for _, fn := range fns {
		fn(c)
	}
}

// Len returns the number of registered callbacks.
func (w *Watchers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fns)
}
