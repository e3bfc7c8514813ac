package memory

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

// Store is a sharded, TTL-aware key/value container. Each shard has its own
// lock so unrelated keys never contend on a single mutex. Values are replaced
// whole on Put; callers must treat stored values as immutable.
type Store[V any] struct {
	shards []*shard[V]
	now    func() time.Time
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value     V
	touchedAt time.Time
}

type Option func(*options)

type options struct {
	shards int
	now    func() time.Time
}

// WithShards sets the shard count. Values below 1 fall back to the default.
func WithShards(n int) Option {
	return func(o *options) { o.shards = n }
}

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewStore[V any](opts ...Option) *Store[V] {
	o := options{shards: defaultShards, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards < 1 {
		o.shards = defaultShards
	}

	s := &Store[V]{
		shards: make([]*shard[V], o.shards),
		now:    o.now,
	}
	for i := range s.shards {
		s.shards[i] = &shard[V]{entries: make(map[string]entry[V])}
	}
	return s
}

func (s *Store[V]) shardFor(key string) *shard[V] {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

func (s *Store[V]) Get(key string) (V, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	return e.value, ok
}

// Put overwrites the value for key and resets its last-touch time.
func (s *Store[V]) Put(key string, value V) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = entry[V]{value: value, touchedAt: s.now()}
	sh.mu.Unlock()
}

// Touch refreshes the last-touch time without changing the value. It reports
// whether the key existed.
func (s *Store[V]) Touch(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[key]
	if !ok {
		return false
	}
	e.touchedAt = s.now()
	sh.entries[key] = e
	return true
}

// TouchedAt returns the last-touch time of key.
func (s *Store[V]) TouchedAt(key string) (time.Time, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	return e.touchedAt, ok
}

func (s *Store[V]) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

func (s *Store[V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

func (s *Store[V]) Keys() []string {
	var keys []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k := range sh.entries {
			keys = append(keys, k)
		}
		sh.mu.RUnlock()
	}
	return keys
}

// Sweep removes every entry idle for longer than ttl and returns the removed keys.
func (s *Store[V]) Sweep(now time.Time, ttl time.Duration) []string {
	return s.SweepFunc(now, func(_ string, _ V, touchedAt time.Time) bool {
		return now.Sub(touchedAt) > ttl
	})
}

// SweepFunc removes the entries for which expired returns true. Shards are
// visited one at a time and the decision for a key is taken under its shard
// lock, so a concurrent Put either lands before the check or after the removal.
// expired must not call back into the store.
func (s *Store[V]) SweepFunc(now time.Time, expired func(key string, value V, touchedAt time.Time) bool) []string {
	var removed []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if expired(k, e.value, e.touchedAt) {
				delete(sh.entries, k)
				removed = append(removed, k)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
