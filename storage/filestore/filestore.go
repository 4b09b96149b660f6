/*
Package filestore is a storage.Store keeping one JSON file per key in a
directory. The directory is watched with fsnotify, so changes made by other
processes (another blocker instance, an editor) reach the watchers, too.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.storage'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.storage")
}

const suffix = ".json"

// Store is a directory of JSON files.
type Store struct {
	storage.Watchers
	dir     string
	mu      sync.Mutex
	known   map[string][]byte // last content seen per key
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ storage.Store = (*Store)(nil)

// Open uses dir, creating it if necessary, and starts watching it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	s := &Store{
		dir:     dir,
		known:   make(map[string][]byte),
		watcher: w,
		done:    make(chan struct{}),
	}
	go s.watch()
	tracer().Debugf("filestore: watching %s", dir)
	return s, nil
}

// Dir returns the directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+suffix)
}

func keyOf(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, suffix) || strings.HasPrefix(name, ".") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, suffix))
	return key, err == nil
}

func (s *Store) Get(ctx context.Context, key string) result.Result[maybe.Maybe[[]byte]] {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return result.Ok(maybe.Nothing[[]byte]())
	}
	if err != nil {
		return result.Err[maybe.Maybe[[]byte]](err)
	}
	return result.Ok(maybe.Just(b))
}

// Set writes the value to a temporary file and renames it into place.
func (s *Store) Set(ctx context.Context, key string, value []byte) result.Result[result.Unit] {
	if err := ctx.Err(); err != nil {
		return result.Err[result.Unit](err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return result.Err[result.Unit](err)
	}
	_, err = tmp.Write(value)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), s.path(key))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return result.Err[result.Unit](err)
	}
	if s.remember(key, value) {
		s.Fire(storage.Change{Key: key, Value: value})
	}
	return result.Done()
}

func (s *Store) Remove(ctx context.Context, key string) result.Result[result.Unit] {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return result.Done()
	}
	if err == nil {
		s.forget(key)
		s.Fire(storage.Change{Key: key, Removed: true})
	}
	return result.Check(err)
}

func (s *Store) Keys(ctx context.Context, prefix string) result.Result[[]string] {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return result.Err[[]string](err)
	}
	keys := []string{}
	for _, e := range entries {
		if key, ok := keyOf(e.Name()); ok && !e.IsDir() && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return result.Ok(keys)
}

// Close stops watching the directory.
func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	return s.watcher.Close()
}

// remember records value as the latest content of key and reports whether
// it differs from what was known.
func (s *Store) remember(key string, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.known[key]; ok && bytes.Equal(old, value) {
		return false
	}
	s.known[key] = append([]byte(nil), value...)
	return true
}

func (s *Store) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.known, key)
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			tracer().Errorf("filestore: watcher: %v", err)
		}
	}
}

func (s *Store) handle(event fsnotify.Event) {
	key, ok := keyOf(event.Name)
	if !ok {
		return
	}
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if _, err := os.Stat(event.Name); errors.Is(err, fs.ErrNotExist) {
			s.mu.Lock()
			_, known := s.known[key]
			delete(s.known, key)
			s.mu.Unlock()
			if known {
				s.Fire(storage.Change{Key: key, Removed: true})
			}
		}
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		b, err := os.ReadFile(event.Name)
		if err != nil {
			tracer().Debugf("filestore: reading %s: %v", event.Name, err)
			return
		}
		if s.remember(key, b) {
			tracer().Debugf("filestore: external change of %q", key)
			s.Fire(storage.Change{Key: key, Value: b})
		}
	}
}
