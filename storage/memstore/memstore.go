/*
Package memstore is an in-memory storage.Store.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/storage"
)

// ErrClosed is returned by calls to a closed store.
var ErrClosed = errors.New("memstore: store is closed")

// Store keeps values in a map. Values are copied in and out.
type Store struct {
	storage.Watchers
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
	// Fail, if set, is consulted before every call and may inject an error.
	Fail func(op, key string) error
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) check(op, key string) error {
	if s.closed {
		return ErrClosed
	}
	if s.Fail != nil {
		return s.Fail(op, key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) result.Result[maybe.Maybe[[]byte]] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get", key); err != nil {
		return result.Err[maybe.Maybe[[]byte]](err)
	}
	v, ok := s.data[key]
	if !ok {
		return result.Ok(maybe.Nothing[[]byte]())
	}
	return result.Ok(maybe.Just(clone(v)))
}

func (s *Store) Set(ctx context.Context, key string, value []byte) result.Result[result.Unit] {
	s.mu.Lock()
	if err := s.check("set", key); err != nil {
		s.mu.Unlock()
		return result.Err[result.Unit](err)
	}
	s.data[key] = clone(value)
	s.mu.Unlock()
	s.Fire(storage.Change{Key: key, Value: clone(value)})
	return result.Done()
}

func (s *Store) Remove(ctx context.Context, key string) result.Result[result.Unit] {
	s.mu.Lock()
	if err := s.check("remove", key); err != nil {
		s.mu.Unlock()
		return result.Err[result.Unit](err)
	}
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()
	if existed {
		s.Fire(storage.Change{Key: key, Removed: true})
	}
	return result.Done()
}

func (s *Store) Keys(ctx context.Context, prefix string) result.Result[[]string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("keys", prefix); err != nil {
		return result.Err[[]string](err)
	}
	keys := []string{}
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return result.Ok(keys)
}

// Close makes every subsequent call fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
