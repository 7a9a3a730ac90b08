package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, opts ...Option) (*Cache, *Metrics, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMetrics(prometheus.NewRegistry())
	base := []Option{WithLogger(zaptest.NewLogger(t)), WithMetrics(m), WithClock(clock.now)}
	return New(append(base, opts...)...), m, clock
}

// counter returns a loader that counts its calls.
func counter[T any](calls *int32, v T) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		atomic.AddInt32(calls, 1)
		return v, nil
	}
}

func TestKeyDigest(t *testing.T) {
	t.Run("Keyword order does not matter", func(t *testing.T) {
		a := Key{Op: "list", Args: []any{1}, Kwargs: map[string]any{"type": "server", "page": 2}}
		b := NewKey("list", 1).With("page", 2).With("type", "server")
		da, err := a.Digest()
		require.NoError(t, err)
		db, err := b.Digest()
		require.NoError(t, err)
		assert.Equal(t, da, db)
	})

	t.Run("Positional order matters", func(t *testing.T) {
		da, _ := NewKey("op", 1, 2).Digest()
		db, _ := NewKey("op", 2, 1).Digest()
		assert.NotEqual(t, da, db)
	})

	t.Run("Nil keyword equals absent keyword", func(t *testing.T) {
		var typ *string
		da, _ := NewKey("op").With("type", typ).Digest()
		db, _ := NewKey("op").Digest()
		assert.Equal(t, da, db)
	})

	t.Run("Unencodable argument fails", func(t *testing.T) {
		_, err := NewKey("op", func() {}).Digest()
		assert.Error(t, err)
	})
}

func TestFetchHitAndMiss(t *testing.T) {
	c, m, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32
	load := counter(&calls, []item{{ID: 1, Name: "web"}})

	first, err := Fetch(ctx, c, NewKey("list_entities"), []string{"entities"}, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, c, NewKey("list_entities"), []string{"entities"}, load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.misses))

	// Hits are independent copies.
	second[0].Name = "changed"
	third, err := Fetch(ctx, c, NewKey("list_entities"), []string{"entities"}, load)
	require.NoError(t, err)
	assert.Equal(t, "web", third[0].Name)
}

func TestFetchTTL(t *testing.T) {
	c, m, clock := newTestCache(t, WithTTL(time.Minute))
	ctx := context.Background()
	var calls int32
	load := counter(&calls, item{ID: 1})

	_, err := Fetch(ctx, c, NewKey("get", 1), nil, load)
	require.NoError(t, err)
	clock.advance(59 * time.Second)
	_, err = Fetch(ctx, c, NewKey("get", 1), nil, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)

	clock.advance(time.Second)
	_, err = Fetch(ctx, c, NewKey("get", 1), nil, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions.WithLabelValues("expired")))
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	// Each entry below encodes to 21 bytes; room for three.
	c, m, _ := newTestCache(t, WithMaxBytes(64))
	ctx := context.Background()
	var calls int32

	for id := int64(1); id <= 3; id++ {
		_, err := Fetch(ctx, c, NewKey("get", id), nil, counter(&calls, item{ID: id, Name: "abc"}))
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Len())

	// Touch 1 so that 2 becomes least recently used.
	_, err := Fetch(ctx, c, NewKey("get", int64(1)), nil, counter(&calls, item{}))
	require.NoError(t, err)

	_, err = Fetch(ctx, c, NewKey("get", int64(4)), nil, counter(&calls, item{ID: 4, Name: "abc"}))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.LessOrEqual(t, c.Size(), 64)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions.WithLabelValues("capacity")))

	before := calls
	_, err = Fetch(ctx, c, NewKey("get", int64(2)), nil, counter(&calls, item{ID: 2, Name: "abc"}))
	require.NoError(t, err)
	assert.Equal(t, before+1, calls, "entry 2 should have been evicted")
}

func TestOversizedValueIsNotStored(t *testing.T) {
	c, _, _ := newTestCache(t, WithMaxBytes(10))
	var calls int32
	load := counter(&calls, strings.Repeat("x", 64))

	for i := 0; i < 2; i++ {
		v, err := Fetch(context.Background(), c, NewKey("big"), nil, load)
		require.NoError(t, err)
		assert.Len(t, v, 64)
	}
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateByTag(t *testing.T) {
	c, m, _ := newTestCache(t)
	ctx := context.Background()
	var calls int32

	_, _ = Fetch(ctx, c, NewKey("get", 1), []string{"entity:1"}, counter(&calls, item{ID: 1}))
	_, _ = Fetch(ctx, c, NewKey("list"), []string{"entities"}, counter(&calls, []item{}))
	_, _ = Fetch(ctx, c, NewKey("get", 2), []string{"entity:2"}, counter(&calls, item{ID: 2}))
	require.Equal(t, 3, c.Len())

	removed := c.Invalidate("entity:1", "entities", "unknown")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.invalidations))

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Size())
}

func TestInvalidationDuringLoadDiscardsResult(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	stale := func(context.Context) (item, error) {
		// A write lands while the query is still running.
		c.Invalidate("entity:1")
		return item{ID: 1, Name: "stale"}, nil
	}
	v, err := Fetch(ctx, c, NewKey("get", 1), []string{"entity:1"}, stale)
	require.NoError(t, err)
	assert.Equal(t, "stale", v.Name)
	assert.Equal(t, 0, c.Len(), "result loaded across an invalidation must not be cached")

	var calls int32
	v, err = Fetch(ctx, c, NewKey("get", 1), []string{"entity:1"}, counter(&calls, item{ID: 1, Name: "fresh"}))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Name)
	assert.Equal(t, int32(1), calls)
}

func TestFetchDegradesOnCacheFailure(t *testing.T) {
	c, m, _ := newTestCache(t)
	ctx := context.Background()

	t.Run("Unencodable key", func(t *testing.T) {
		var calls int32
		v, err := Fetch(ctx, c, NewKey("op", make(chan int)), nil, counter(&calls, 7))
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("Unencodable value", func(t *testing.T) {
		var calls int32
		load := func(context.Context) (func() int, error) {
			atomic.AddInt32(&calls, 1)
			return func() int { return 1 }, nil
		}
		for i := 0; i < 2; i++ {
			fn, err := Fetch(ctx, c, NewKey("fn"), nil, load)
			require.NoError(t, err)
			assert.Equal(t, 1, fn())
		}
		assert.Equal(t, int32(2), calls)
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.errors))
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c, _, _ := newTestCache(t)
	boom := errors.New("boom")
	var calls int32
	load := func(context.Context) (item, error) {
		atomic.AddInt32(&calls, 1)
		return item{}, boom
	}

	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), c, NewKey("get", 1), nil, load)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, 0, c.Len())
}

func TestNilCacheRunsQuery(t *testing.T) {
	var c *Cache
	var calls int32
	v, err := Fetch(context.Background(), c, NewKey("get"), nil, counter(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 0, c.Invalidate("x"))
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	c, m, _ := newTestCache(t)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) ([]item, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []item{{ID: 1}}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]item, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, NewKey("list"), nil, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Every worker has missed before the first load is released.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.misses) == workers
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, []item{{ID: 1}}, r)
	}
	assert.Equal(t, 1, c.Len())
}

func TestReadAfterInvalidationDoesNotJoinEarlierLoad(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	key := NewKey("get_entity", int64(1))
	tags := []string{"entity:1"}

	entered := make(chan struct{})
	release := make(chan struct{})
	before := make(chan string, 1)
	go func() {
		v, err := Fetch(ctx, c, key, tags, func(context.Context) (string, error) {
			close(entered)
			<-release
			return "before-write", nil
		})
		assert.NoError(t, err)
		before <- v
	}()
	<-entered

	c.Invalidate("entity:1")
	v, err := Fetch(ctx, c, key, tags, func(context.Context) (string, error) {
		return "after-write", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)

	close(release)
	assert.Equal(t, "before-write", <-before)

	// The load that started before the write must not replace the fresh entry.
	var calls int32
	v, err = Fetch(ctx, c, key, tags, counter(&calls, "reloaded"))
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)
	assert.Equal(t, int32(0), calls)
}

func TestJoinedCallerSurvivesLeaderCancellation(t *testing.T) {
	c, m, _ := newTestCache(t)
	key := NewKey("list")

	leaderCtx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})
	leaderErr := make(chan error, 1)
	go func() {
		_, err := Fetch(leaderCtx, c, key, nil, func(ctx context.Context) (string, error) {
			close(entered)
			<-ctx.Done()
			return "", ctx.Err()
		})
		leaderErr <- err
	}()
	<-entered

	type outcome struct {
		v   string
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		v, err := Fetch(context.Background(), c, key, nil, func(context.Context) (string, error) {
			return "fresh", nil
		})
		joined <- outcome{v, err}
	}()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.misses) == 2
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	got := <-joined
	require.NoError(t, got.err)
	assert.Equal(t, "fresh", got.v)
}
