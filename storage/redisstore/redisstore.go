/*
Package redisstore is a storage.Store on Redis. Every write is announced on
a pub/sub channel, so that all instances sharing a Redis database see each
other's changes.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package redisstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'blocker.storage'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.storage")
}

// Config selects the Redis database.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string // key prefix, default "blocker:"
}

// Store is a Redis key-value channel.
type Store struct {
	storage.Watchers
	client  *redis.Client
	ns      string
	pubsub  *redis.PubSub
	mu      sync.Mutex
	known   map[string][]byte
	done    chan struct{}
	stopped sync.WaitGroup
}

var _ storage.Store = (*Store)(nil)

type notice struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed,omitempty"`
}

// Open connects to Redis and subscribes to the change channel.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "blocker:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	s := &Store{
		client: client,
		ns:     cfg.Namespace,
		known:  make(map[string][]byte),
		done:   make(chan struct{}),
	}
	s.pubsub = client.Subscribe(ctx, s.channel())
	if _, err := s.pubsub.Receive(ctx); err != nil {
		s.pubsub.Close()
		client.Close()
		return nil, err
	}
	s.stopped.Add(1)
	go s.listen()
	tracer().Debugf("redisstore: connected to %s, namespace %q", cfg.Addr, cfg.Namespace)
	return s, nil
}

func (s *Store) channel() string {
	return s.ns + "changes"
}

func (s *Store) Get(ctx context.Context, key string) result.Result[maybe.Maybe[[]byte]] {
	b, err := s.client.Get(ctx, s.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result.Ok(maybe.Nothing[[]byte]())
	}
	if err != nil {
		return result.Err[maybe.Maybe[[]byte]](err)
	}
	return result.Ok(maybe.Just(b))
}

func (s *Store) Set(ctx context.Context, key string, value []byte) result.Result[result.Unit] {
	if err := s.client.Set(ctx, s.ns+key, value, 0).Err(); err != nil {
		return result.Err[result.Unit](err)
	}
	if s.remember(key, value) {
		s.Fire(storage.Change{Key: key, Value: value})
	}
	s.announce(ctx, notice{Key: key})
	return result.Done()
}

func (s *Store) Remove(ctx context.Context, key string) result.Result[result.Unit] {
	n, err := s.client.Del(ctx, s.ns+key).Result()
	if err != nil {
		return result.Err[result.Unit](err)
	}
	if n > 0 {
		s.forget(key)
		s.Fire(storage.Change{Key: key, Removed: true})
		s.announce(ctx, notice{Key: key, Removed: true})
	}
	return result.Done()
}

func (s *Store) Keys(ctx context.Context, prefix string) result.Result[[]string] {
	keys := []string{}
	iter := s.client.Scan(ctx, 0, s.ns+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.ns))
	}
	if err := iter.Err(); err != nil {
		return result.Err[[]string](err)
	}
	sort.Strings(keys)
	return result.Ok(keys)
}

// announce publishes a change. A failure only delays other instances until
// their next read, so it is traced and ignored.
func (s *Store) announce(ctx context.Context, n notice) {
	b, _ := json.Marshal(n)
	if err := s.client.Publish(ctx, s.channel(), b).Err(); err != nil {
		tracer().Errorf("redisstore: cannot announce change of %q: %v", n.Key, err)
	}
}

func (s *Store) listen() {
	defer s.stopped.Done()
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var n notice
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				tracer().Errorf("redisstore: malformed notice %q", msg.Payload)
				continue
			}
			s.received(n)
		}
	}
}

func (s *Store) received(n notice) {
	if n.Removed {
		s.mu.Lock()
		_, known := s.known[n.Key]
		delete(s.known, n.Key)
		s.mu.Unlock()
		if known {
			s.Fire(storage.Change{Key: n.Key, Removed: true})
		}
		return
	}
	ctx := context.Background()
	b, err := s.client.Get(ctx, s.ns+n.Key).Bytes()
	if err != nil {
		tracer().Debugf("redisstore: re-reading %q: %v", n.Key, err)
		return
	}
	if s.remember(n.Key, b) {
		s.Fire(storage.Change{Key: n.Key, Value: b})
	}
}

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

// Close unsubscribes and closes the connection.
func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	err := s.pubsub.Close()
	s.stopped.Wait()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
