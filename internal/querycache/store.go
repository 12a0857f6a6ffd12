// Package querycache provides the read-through query cache that sits between
// dashboard reads and the backing tables and edge functions.
//
// A Store holds entries keyed by string, each with its own TTL. Expiry is
// lazy: a stale entry is dropped by the Get that finds it, never by a
// background sweep. Cache wraps a Store with key building, single-flight
// de-duplication of concurrent misses, metrics and tracing.
package querycache

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
)

const (
	// DefaultTTL applies when an entry is stored without an explicit TTL.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxSize bounds the number of entries held by a Store.
	DefaultMaxSize = 10_000
)

// Entry is a cached value with its insertion time and lifetime.
// Entries are replaced wholesale, never updated in place.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
	Tags      []string
}

// fresh reports whether the entry is still valid at now.
// An entry is valid while now - Timestamp <= TTL.
func (e Entry) fresh(now time.Time) bool {
	return now.Sub(e.Timestamp) <= e.TTL
}

// Options configures a Store.
type Options struct {
	MaxSize    int              // maximum entries; 0 = DefaultMaxSize
	DefaultTTL time.Duration    // 0 = DefaultTTL
	Clock      func() time.Time // nil = time.Now
}

// Stats is a diagnostic snapshot of a Store.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Store is an in-memory key -> Entry map backed by a bounded otter cache.
// Per-entry expiry is enforced here rather than by otter so that every entry
// can carry its own TTL and expiry stays lazy.
type Store struct {
	cache      *otter.Cache[string, Entry]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates an empty Store.
func NewStore(opts Options) (*Store, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	c, err := otter.New(&otter.Options[string, Entry]{
		MaximumSize: opts.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Store{cache: c, defaultTTL: opts.DefaultTTL, now: opts.Clock}, nil
}

// DefaultTTL returns the TTL applied to entries stored without one.
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Get returns the stored data for key. A stale entry is removed and reported
// as a miss; stale data is never returned.
func (s *Store) Get(key string) (any, bool) {
	e, ok := s.cache.GetIfPresent(key)
	if !ok {
		return nil, false
	}
	if !e.fresh(s.now()) {
		s.cache.Invalidate(key)
		return nil, false
	}
	return e.Data, true
}

// Set stores data under key, overwriting any existing entry.
// A ttl <= 0 selects the store's default TTL.
func (s *Store) Set(key string, data any, ttl time.Duration) {
	s.SetTagged(key, data, ttl)
}

// SetTagged is Set with resource tags recorded on the entry for ClearTags.
func (s *Store) SetTagged(key string, data any, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.cache.Set(key, Entry{
		Data:      data,
		Timestamp: s.now(),
		TTL:       ttl,
		Tags:      slices.Clone(tags),
	})
}

// Delete removes the entry stored under exactly key.
func (s *Store) Delete(key string) {
	s.cache.Invalidate(key)
}

// Clear removes every entry whose key contains pattern as a plain substring,
// or every entry when pattern is empty. It returns the number removed.
func (s *Store) Clear(pattern string) int {
	return s.removeWhere(func(key string, _ Entry) bool {
		return pattern == "" || strings.Contains(key, pattern)
	})
}

// ClearTags removes every entry carrying at least one of tags.
// It returns the number removed.
func (s *Store) ClearTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	return s.removeWhere(func(_ string, e Entry) bool {
		return slices.ContainsFunc(e.Tags, func(t string) bool {
			return slices.Contains(tags, t)
		})
	})
}

func (s *Store) removeWhere(match func(key string, e Entry) bool) int {
	var keys []string
	for k, e := range s.cache.All() {
		if match(k, e) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		s.cache.Invalidate(k)
	}
	return len(keys)
}

// Len returns the number of stored entries, stale ones included, without
// building the key list.
func (s *Store) Len() int { return s.cache.EstimatedSize() }

// Stats returns the entry count and the sorted list of keys. Stale entries
// that have not been read since expiring are still listed.
func (s *Store) Stats() Stats {
	keys := make([]string, 0)
	for k := range s.cache.All() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return Stats{Size: len(keys), Keys: keys}
}
