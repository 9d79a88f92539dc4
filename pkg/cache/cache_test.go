package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/course-client/pkg/client"
	"github.com/Sternrassler/course-client/pkg/logging"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// countingFetcher returns a fetcher that counts invocations.
func countingFetcher(calls *int32, value string) Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(value), nil
	}
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Name() string { return "failing" }
func (failingStore) Get(context.Context, string) (*Entry, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Set(context.Context, string, *Entry) error {
	return errors.New("store unavailable")
}
func (failingStore) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}

func TestNew_PanicsOnNilStore(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New should panic with nil store")
		}
	}()
	New(nil)
}

func TestCache_Do_FreshHitSkipsFetch(t *testing.T) {
	clock := newFakeClock()
	c := New(NewMemoryStore(10), WithClock(clock.Now))
	ctx := context.Background()

	var calls int32
	fetch := countingFetcher(&calls, `{"id":1}`)

	for i := 0; i < 3; i++ {
		got, err := c.Do(ctx, "post:1", time.Minute, fetch)
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if string(got) != `{"id":1}` {
			t.Errorf("Do() = %s, want {\"id\":1}", got)
		}
		clock.Advance(10 * time.Second)
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_Do_ConcurrentCallsShareOneFetch(t *testing.T) {
	c := New(NewMemoryStore(10))
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte(`"shared"`), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := c.Do(ctx, "courses:list", time.Minute, fetch)
			results[i], errs[i] = string(got), err
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error %v", i, errs[i])
		}
		if results[i] != `"shared"` {
			t.Errorf("caller %d: got %s", i, results[i])
		}
	}
}

func TestCache_Do_ExpiredEntryRefetches(t *testing.T) {
	clock := newFakeClock()
	c := New(NewMemoryStore(10), WithClock(clock.Now))
	ctx := context.Background()

	var calls int32
	fetch := countingFetcher(&calls, "v")

	if _, err := c.Do(ctx, "k", time.Minute, fetch); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	clock.Advance(time.Minute - time.Nanosecond)
	if _, err := c.Do(ctx, "k", time.Minute, fetch); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times before expiry, want 1", calls)
	}

	// now == ExpiresAt counts as stale
	clock.Advance(time.Nanosecond)
	if _, err := c.Do(ctx, "k", time.Minute, fetch); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times after expiry, want 2", calls)
	}
}

func TestCache_Do_FailureIsNotCached(t *testing.T) {
	store := NewMemoryStore(10)
	c := New(store)
	ctx := context.Background()

	var calls int32
	fetchErr := errors.New("backend down")
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, fetchErr
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Do(ctx, "k", time.Minute, fetch); !errors.Is(err, fetchErr) {
			t.Fatalf("Do() error = %v, want %v", err, fetchErr)
		}
	}

	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 (failure must not block retry)", calls)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d entries after failures, want 0", store.Len())
	}
}

func TestCache_Do_ErrorSharedByWaiters(t *testing.T) {
	c := New(NewMemoryStore(10))
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetchErr := errors.New("boom")
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, fetchErr
	}

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Do(ctx, "k", time.Minute, fetch)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	for i, err := range errs {
		if !errors.Is(err, fetchErr) {
			t.Errorf("caller %d: error = %v, want %v", i, err, fetchErr)
		}
	}
}

func TestCache_Do_RetriesOnceThenPropagates(t *testing.T) {
	store := NewMemoryStore(10)
	c := New(store)
	ctx := context.Background()

	var calls int32
	var lastErr error
	retry := client.RetryConfig{Retries: 1, Delay: 20 * time.Millisecond}
	fetch := func(ctx context.Context) ([]byte, error) {
		return client.Retry(ctx, retry, func(ctx context.Context) ([]byte, error) {
			n := atomic.AddInt32(&calls, 1)
			lastErr = errors.New("attempt failed")
			if n > 2 {
				t.Errorf("unexpected attempt %d", n)
			}
			return nil, lastErr
		})
	}

	start := time.Now()
	_, err := c.Do(ctx, "k", time.Minute, fetch)
	elapsed := time.Since(start)

	if err != lastErr {
		t.Errorf("Do() error = %v, want last attempt error unchanged", err)
	}
	if calls != 2 {
		t.Errorf("attempts = %d, want 2", calls)
	}
	if elapsed < retry.Delay {
		t.Errorf("retry happened after %v, want >= %v", elapsed, retry.Delay)
	}
	if store.Len() != 0 {
		t.Error("cache must not be populated on failure")
	}
}

func TestCache_Do_RetryRecovers(t *testing.T) {
	c := New(NewMemoryStore(10))
	ctx := context.Background()

	var calls int32
	retry := client.RetryConfig{Retries: 1, Delay: time.Millisecond}
	fetch := func(ctx context.Context) ([]byte, error) {
		return client.Retry(ctx, retry, func(ctx context.Context) ([]byte, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("flaky")
			}
			return []byte("ok"), nil
		})
	}

	got, err := c.Do(ctx, "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if string(got) != "ok" {
		t.Errorf("Do() = %s, want ok", got)
	}

	// Second call is served from cache
	if _, err := c.Do(ctx, "k", time.Minute, fetch); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("attempts = %d, want 2", calls)
	}
}

func TestCache_Do_ZeroTTLIsNotStored(t *testing.T) {
	store := NewMemoryStore(10)
	c := New(store)

	var calls int32
	fetch := countingFetcher(&calls, "v")

	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), "k", 0, fetch); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d entries, want 0", store.Len())
	}
}

func TestCache_Do_CanceledCallerDoesNotPoisonOthers(t *testing.T) {
	c := New(NewMemoryStore(10))

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte("v"), nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Do(leaderCtx, "k", time.Minute, fetch)
		leaderErr <- err
	}()

	<-started
	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader error = %v, want context.Canceled", err)
	}

	follower := make(chan []byte, 1)
	go func() {
		got, err := c.Do(context.Background(), "k", time.Minute, fetch)
		if err != nil {
			t.Errorf("follower error: %v", err)
		}
		follower <- got
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	if got := <-follower; string(got) != "v" {
		t.Errorf("follower got %q, want v", got)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(NewMemoryStore(10))
	ctx := context.Background()

	var calls int32
	fetch := countingFetcher(&calls, "v")

	_, _ = c.Do(ctx, "k", time.Minute, fetch)
	if err := c.Invalidate(ctx, "k", "unknown"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	_, _ = c.Do(ctx, "k", time.Minute, fetch)

	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestCache_Do_StoreErrorDegradesToMiss(t *testing.T) {
	c := New(failingStore{})

	var calls int32
	got, err := c.Do(context.Background(), "k", time.Minute, countingFetcher(&calls, "v"))
	if err != nil {
		t.Fatalf("Do should succeed despite store errors: %v", err)
	}
	if string(got) != "v" || calls != 1 {
		t.Errorf("Do() = %q after %d calls", got, calls)
	}

	if err := c.Invalidate(context.Background(), "k"); err == nil {
		t.Error("Invalidate should report store errors")
	}
}

func TestGetJSON(t *testing.T) {
	c := New(NewMemoryStore(10))

	type post struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
	}

	var calls int32
	got, err := GetJSON[post](context.Background(), c, "post:intro", time.Minute,
		countingFetcher(&calls, `{"slug":"intro","title":"مقدمه"}`))
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got.Slug != "intro" || got.Title != "مقدمه" {
		t.Errorf("GetJSON() = %+v", got)
	}

	if _, err := GetJSON[post](context.Background(), c, "bad", time.Minute,
		countingFetcher(&calls, `not json`)); err == nil {
		t.Error("GetJSON should fail on invalid JSON")
	}
}

func TestNew_LogsAsCacheComponent(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup(logging.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { logging.Setup(logging.DefaultConfig()) })

	c := New(NewMemoryStore(4))
	if _, err := c.Do(context.Background(), "cc:blog:api/blog/tags", time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte(`[]`), nil
	}); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("log output missing cache component:\n%s", buf.String())
	}
}

// Stores must expire entries by their own lifetime, not the wall clock, so an
// injected clock far from real time still caches.
func TestCache_Do_StoreTTLFollowsInjectedClock(t *testing.T) {
	ristrettoStore, err := NewRistrettoStore(DefaultRistrettoConfig())
	if err != nil {
		t.Fatalf("NewRistrettoStore failed: %v", err)
	}
	defer ristrettoStore.Close()

	clock := &fakeClock{now: time.Now().Add(-30 * 24 * time.Hour)}
	c := New(ristrettoStore, WithClock(clock.Now))

	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(`{"id":1}`), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Do(context.Background(), "cc:courses:api/courses/go", time.Minute, fetch); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}

	clock.Advance(2 * time.Minute)
	if _, err := c.Do(context.Background(), "cc:courses:api/courses/go", time.Minute, fetch); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls after expiry = %d, want 2", n)
	}
}
