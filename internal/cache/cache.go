// Package cache implements the read-through query cache used in front of the
// memory store.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBytes is the default capacity, measured as the sum of the
	// serialized sizes of all entries.
	DefaultMaxBytes = 8 << 20

	// DefaultTTL is the default lifetime of an entry.
	DefaultTTL = 5 * time.Minute
)

// Options configures a Cache.
type Options struct {
	MaxBytes int
	TTL      time.Duration
}

// Option is a functional option for configuring a Cache.
type Option func(*Cache)

// WithMaxBytes sets the capacity in bytes.
func WithMaxBytes(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.options.MaxBytes = n
		}
	}
}

// WithTTL sets the lifetime of entries.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.options.TTL = d
		}
	}
}

// WithLogger sets the logger used to report swallowed cache failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

type entry struct {
	key     string
	data    []byte
	tags    []string
	expires time.Time
	elem    *list.Element
}

// Cache is an in-process, size bounded LRU cache with per-entry TTL and tag
// based invalidation. Values are stored serialized, so every hit returns an
// independent copy.
//
// Safe for concurrent use. Concurrent misses on one key share a single load.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	tags    map[string]map[string]struct{}
	size    int
	// generation is bumped by every invalidation. A load that started in an
	// older generation is not stored.
	generation uint64

	flight  singleflight.Group
	options Options
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		lru:     list.New(),
		tags:    make(map[string]map[string]struct{}),
		options: Options{MaxBytes: DefaultMaxBytes, TTL: DefaultTTL},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// Fetch returns the cached result for key or runs load and caches its
// result under the given tags.
//
// Errors returned by load are passed through and never cached. Failures of
// the cache itself (key encoding, serialization, decoding) are logged and
// fall back to calling load directly. A nil cache always calls load.
func Fetch[T any](ctx context.Context, c *Cache, key Key, tags []string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	digest, err := key.Digest()
	if err != nil {
		c.fail("key", key.Op, err)
		return load(ctx)
	}

	if data, ok := c.get(digest); ok {
		var v T
		err := json.Unmarshal(data, &v)
		if err == nil {
			c.metrics.hits.Inc()
			return v, nil
		}
		c.fail("decode", key.Op, err)
		c.remove(digest)
	}
	c.metrics.misses.Inc()

	// Loads are only shared within one generation, so a read issued after an
	// invalidation never joins a load that started before it.
	gen := c.currentGeneration()
	flightKey := digest + "@" + strconv.FormatUint(gen, 10)
	res, err, shared := c.flight.Do(flightKey, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			c.fail("encode", key.Op, err)
			return loaded{value: v}, nil
		}
		c.put(digest, data, tags, gen)
		return loaded{value: v, data: data}, nil
	})
	if err != nil {
		// The shared load ran under the first caller's context. A joined
		// caller that was not cancelled itself runs its own query.
		if shared && isContextErr(err) && ctx.Err() == nil {
			return load(ctx)
		}
		var zero T
		return zero, err
	}

	l := res.(loaded)
	if shared && l.data != nil {
		var v T
		if err := json.Unmarshal(l.data, &v); err == nil {
			return v, nil
		}
	}
	return l.value.(T), nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type loaded struct {
	value any
	data  []byte
}

// Invalidate removes every entry carrying any of the tags and returns how
// many were removed.
func (c *Cache) Invalidate(tags ...string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	removed := 0
	for _, tag := range tags {
		for key := range c.tags[tag] {
			if e, ok := c.entries[key]; ok {
				c.removeLocked(e)
				removed++
			}
		}
		delete(c.tags, tag)
	}
	c.metrics.invalidations.Add(float64(removed))
	return removed
}

// Purge removes every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.entries = make(map[string]*entry)
	c.tags = make(map[string]map[string]struct{})
	c.lru.Init()
	c.size = 0
	c.metrics.bytes.Set(0)
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the approximate size of all entries in bytes.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		c.removeLocked(e)
		c.metrics.evictions.WithLabelValues("expired").Inc()
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	return e.data, true
}

func (c *Cache) put(key string, data []byte, tags []string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// invalidated while loading
		return
	}
	if len(data) > c.options.MaxBytes {
		return
	}
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}

	e := &entry{
		key:     key,
		data:    data,
		tags:    append([]string(nil), tags...),
		expires: c.now().Add(c.options.TTL),
	}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	for _, tag := range e.tags {
		set, ok := c.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			c.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	c.size += len(data)

	if c.size > c.options.MaxBytes {
		c.evictLocked()
	}
	c.metrics.bytes.Set(float64(c.size))
}

// evictLocked drops expired entries first and then least recently used ones
// until the cache is within capacity (must hold lock).
func (c *Cache) evictLocked() {
	now := c.now()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if e := elem.Value.(*entry); !now.Before(e.expires) {
			c.removeLocked(e)
			c.metrics.evictions.WithLabelValues("expired").Inc()
		}
		elem = prev
	}
	for c.size > c.options.MaxBytes {
		elem := c.lru.Back()
		if elem == nil {
			return
		}
		c.removeLocked(elem.Value.(*entry))
		c.metrics.evictions.WithLabelValues("capacity").Inc()
	}
}

func (c *Cache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
	for _, tag := range e.tags {
		if set, ok := c.tags[tag]; ok {
			delete(set, e.key)
			if len(set) == 0 {
				delete(c.tags, tag)
			}
		}
	}
	c.size -= len(e.data)
	c.metrics.bytes.Set(float64(c.size))
}

func (c *Cache) fail(stage, op string, err error) {
	c.metrics.errors.Inc()
	c.logger.Warn("query cache failure, running query directly",
		zap.String("stage", stage),
		zap.String("op", op),
		zap.Error(err),
	)
}
