package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

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

func TestNewKey_NormalizesMethod(t *testing.T) {
	a := NewKey("get", "/admin/stats", nil)
	b := NewKey("", "/admin/stats", nil)
	c := NewKey("GET", "/admin/stats", nil)
	if a != b || b != c {
		t.Errorf("keys differ: %v, %v, %v", a, b, c)
	}
	if a.Method != "GET" {
		t.Errorf("Method = %q, want GET", a.Method)
	}
	if a.BodyHash != "" {
		t.Errorf("BodyHash = %q, want empty for no body", a.BodyHash)
	}
}

func TestNewKey_BodyParticipates(t *testing.T) {
	a := NewKey("GET", "/admin/users", []byte(`{"a":1}`))
	b := NewKey("GET", "/admin/users", []byte(`{"a":2}`))
	c := NewKey("GET", "/admin/users", []byte(`{"a":1}`))
	if a == b {
		t.Error("keys with different bodies should differ")
	}
	if a != c {
		t.Error("keys with identical bodies should be equal")
	}
	if len(a.BodyHash) != 64 {
		t.Errorf("BodyHash length = %d, want 64 hex chars", len(a.BodyHash))
	}
}

func TestCache_SetGet(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)

	c.Set(k, []byte(`{"totalUsers":3}`), 30*time.Second)

	data, ok := c.Get(k)
	if !ok {
		t.Fatal("Get should return data after Set")
	}
	if string(data) != `{"totalUsers":3}` {
		t.Errorf("data = %q, want stored body", data)
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)
	src := []byte(`{"x":1}`)
	c.Set(k, src, time.Minute)
	src[0] = 'X'

	data, _ := c.Get(k)
	data[1] = 'Y'

	again, _ := c.Get(k)
	if string(again) != `{"x":1}` {
		t.Errorf("stored data was mutated: %q", again)
	}
}

func TestCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)

	c.Set(k, []byte("a"), 0)
	c.Set(k, []byte("b"), -time.Second)

	if _, ok := c.Get(k); ok {
		t.Error("Get should miss after Set with non-positive ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCache_ExpiryIsLazy(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	k := NewKey("GET", "/admin/transactions?limit=20&page=1", nil)

	c.Set(k, []byte("tx"), 15*time.Second)

	clock.Advance(15 * time.Second)
	if _, ok := c.Get(k); !ok {
		t.Error("entry should still be valid exactly at expiresAt")
	}

	clock.Advance(time.Millisecond)
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 before lookup evicts", c.Len())
	}
	if _, ok := c.Get(k); ok {
		t.Error("Get should miss after ttl elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy eviction", c.Len())
	}
}

func TestCache_DoHitsAfterFirstFetch(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)
	var calls int32
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte(`{"totalUsers":1}`), nil
	}

	first, src, err := c.Do(context.Background(), k, 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if src != Fetched {
		t.Errorf("first Do source = %v, want fetched", src)
	}
	second, src, err := c.Do(context.Background(), k, 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if src != Hit {
		t.Errorf("second Do source = %v, want hit", src)
	}
	if string(first) != string(second) {
		t.Errorf("hit data = %q, want %q", second, first)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestCache_DoRefetchesAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	k := NewKey("GET", "/admin/stats", nil)
	n := 0
	fetch := func(context.Context) ([]byte, error) {
		n++
		if n == 1 {
			return []byte("old"), nil
		}
		return []byte("new"), nil
	}

	if _, _, err := c.Do(context.Background(), k, 30*time.Second, fetch); err != nil {
		t.Fatalf("Do: %v", err)
	}
	clock.Advance(31 * time.Second)
	data, src, err := c.Do(context.Background(), k, 30*time.Second, fetch)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if src != Fetched {
		t.Errorf("Do after expiry source = %v, want fetched", src)
	}
	if string(data) != "new" {
		t.Errorf("data = %q, want fresh value", data)
	}
}

func TestCache_DoErrorNotCached(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)
	wantErr := errors.New("boom")

	_, _, err := c.Do(context.Background(), k, time.Minute, func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after failed fetch", c.Len())
	}
}

func TestCache_DoCoalescesConcurrentMisses(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/users?limit=20&page=1", nil)
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("users"), nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	sources := make([]Source, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, src, err := c.Do(context.Background(), k, time.Minute, fetch)
			if err != nil {
				t.Errorf("Do: %v", err)
				return
			}
			results[i] = string(data)
			sources[i] = src
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	fetched := 0
	for i, r := range results {
		if r != "users" {
			t.Errorf("results[%d] = %q, want users", i, r)
		}
		if sources[i] == Fetched {
			fetched++
		}
	}
	if fetched != 1 {
		t.Errorf("callers reporting fetched = %d, want 1 (sources %v)", fetched, sources)
	}
}

func TestCache_DoSharedFetchSurvivesStarterCancel(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	fetch := func(ctx context.Context) ([]byte, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return nil, err
		}
		return []byte("stats"), nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := c.Do(ctxA, k, time.Minute, fetch)
		errA <- err
	}()
	<-started

	type result struct {
		data []byte
		src  Source
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		data, src, err := c.Do(context.Background(), k, time.Minute, fetch)
		resB <- result{data, src, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-resB
	if got.err != nil {
		t.Fatalf("live caller err = %v, want nil", got.err)
	}
	if string(got.data) != "stats" || got.src != Joined {
		t.Errorf("live caller = %q, %v; want stats, joined", got.data, got.src)
	}
	if v := fetchErr.Load(); v != nil {
		t.Errorf("fetch saw ctx err %v", v)
	}
	if data, ok := c.Get(k); !ok || string(data) != "stats" {
		t.Errorf("Get = %q, %v; want stats stored", data, ok)
	}
}

func TestCache_DoCallerStopsWaitingOnOwnCancel(t *testing.T) {
	c := New()
	k := NewKey("GET", "/admin/stats", nil)
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := c.Do(ctx, k, time.Minute, func(context.Context) ([]byte, error) {
		<-release
		return []byte("late"), nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestCache_InvalidatePrefix_PathScoped(t *testing.T) {
	c := New()
	users := NewKey("GET", "/admin/users?limit=20&page=1", nil)
	user := NewKey("GET", "/admin/users/u1", nil)
	stats := NewKey("GET", "/admin/stats", nil)
	tx := NewKey("GET", "/admin/transactions?limit=20&page=1", nil)
	bodyMention := NewKey("GET", "/admin/transactions?limit=5&page=1", []byte(`{"ref":"/admin/users"}`))
	for _, k := range []Key{users, user, stats, tx, bodyMention} {
		c.Set(k, []byte("x"), time.Minute)
	}

	if n := c.InvalidatePrefix("/admin/users"); n != 2 {
		t.Errorf("InvalidatePrefix removed %d, want 2", n)
	}
	for _, k := range []Key{users, user} {
		if _, ok := c.Get(k); ok {
			t.Errorf("%s should be invalidated", k)
		}
	}
	for _, k := range []Key{stats, tx, bodyMention} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should survive path-scoped invalidation", k)
		}
	}
}

func TestCache_InvalidatePrefix_Substring(t *testing.T) {
	c := New(WithMatchMode(MatchSubstring))
	bodyMention := NewKey("GET", "/admin/transactions?limit=5&page=1", []byte(`{"ref":"/admin/users"}`))
	nested := NewKey("GET", "/v2/admin/users", nil)
	stats := NewKey("GET", "/admin/stats", nil)
	for _, k := range []Key{bodyMention, nested, stats} {
		c.Set(k, []byte("x"), time.Minute)
	}

	if n := c.InvalidatePrefix("/admin/users"); n != 2 {
		t.Errorf("InvalidatePrefix removed %d, want 2", n)
	}
	if _, ok := c.Get(stats); !ok {
		t.Error("stats should survive")
	}
	if c.Mode() != MatchSubstring {
		t.Errorf("Mode = %v, want substring", c.Mode())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New()
	c.Set(NewKey("GET", "/a", nil), []byte("1"), time.Minute)
	c.Set(NewKey("GET", "/b", nil), []byte("2"), time.Minute)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after Clear", c.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		k := NewKey("GET", "/admin/users/"+string(rune('a'+i)), nil)
		go func() {
			defer wg.Done()
			c.Set(k, []byte("u"), time.Minute)
		}()
		go func() {
			defer wg.Done()
			c.Get(k)
		}()
		go func() {
			defer wg.Done()
			c.InvalidatePrefix("/admin/users")
		}()
	}
	wg.Wait()
	// If there's a race condition, the test will fail with -race flag
}
