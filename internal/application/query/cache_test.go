package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		key, prefix Key
		want        bool
	}{
		{Key{"projects", "42"}, Key{"projects"}, true},
		{Key{"projects"}, Key{"projects"}, true},
		{Key{"projects"}, Key{"projects", "42"}, false},
		{Key{"projects", "42"}, Key{"proj"}, false},
		{Key{"tasks", "1"}, Key{}, true},
		{Key{"me", "tok"}, Key{"me"}, true},
	}
	for _, tt := range tests {
		if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%v.HasPrefix(%v) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func counter(values ...string) (func(context.Context) (string, error), *int32) {
	var calls int32
	return func(context.Context) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if int(n) <= len(values) {
			return values[n-1], nil
		}
		return values[len(values)-1], nil
	}, &calls
}

func TestQuery_FreshHitDoesNotFetch(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	c := NewCache(WithClock(clock), WithDefaultStaleTime(time.Minute))
	fetch, calls := counter("a", "b")
	ctx := context.Background()

	if s := Query(ctx, c, Key{"k"}, fetch); s.Data != "a" || !s.HasData {
		t.Fatalf("first read: %+v", s)
	}
	clock.Advance(30 * time.Second)
	if s := Query(ctx, c, Key{"k"}, fetch); s.Data != "a" {
		t.Fatalf("fresh read: %+v", s)
	}
	c.Wait()
	if *calls != 1 {
		t.Errorf("calls: got %d", *calls)
	}
}

func TestQuery_StaleReturnsCachedAndRevalidates(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	c := NewCache(WithClock(clock), WithDefaultStaleTime(time.Minute))
	fetch, calls := counter("a", "b")
	ctx := context.Background()

	Query(ctx, c, Key{"k"}, fetch)
	clock.Advance(2 * time.Minute)

	if s := Query(ctx, c, Key{"k"}, fetch); s.Data != "a" || !s.Loading {
		t.Fatalf("stale read should serve cached data while refetching: %+v", s)
	}
	c.Wait()
	if *calls != 2 {
		t.Fatalf("calls: got %d", *calls)
	}
	if s := Peek[string](c, Key{"k"}); s.Data != "b" || s.Loading {
		t.Errorf("after revalidation: %+v", s)
	}
}

func TestQuery_WithStaleTimeOverride(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	c := NewCache(WithClock(clock))
	fetch, calls := counter("a")
	ctx := context.Background()

	Query(ctx, c, Key{"me", "t"}, fetch, WithStaleTime(time.Minute))
	Query(ctx, c, Key{"me", "t"}, fetch, WithStaleTime(time.Minute))
	c.Wait()
	if *calls != 1 {
		t.Errorf("calls: got %d", *calls)
	}
}

func TestQuery_InvalidateForcesSyncFetch(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	fetch, _ := counter("a", "b")
	ctx := context.Background()

	Query(ctx, c, Key{"projects", "1"}, fetch)
	if n := c.Invalidate(Key{"projects"}); n != 1 {
		t.Fatalf("Invalidate: got %d", n)
	}
	if s := Query(ctx, c, Key{"projects", "1"}, fetch); s.Data != "b" {
		t.Errorf("after invalidate: %+v", s)
	}
}

func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	ctx := context.Background()
	boom := errors.New("boom")

	Query(ctx, c, Key{"users"}, func(context.Context) ([]string, error) { return []string{"ann"}, nil })
	c.Invalidate(Key{"users"})
	s := Query(ctx, c, Key{"users"}, func(context.Context) ([]string, error) { return nil, boom })
	if !errors.Is(s.Err, boom) {
		t.Fatalf("err: %v", s.Err)
	}
	if len(s.Data) != 1 || s.Data[0] != "ann" {
		t.Errorf("data: %v", s.Data)
	}

	empty := Query(ctx, c, Key{"other"}, func(context.Context) (int, error) { return 0, boom })
	if empty.HasData || empty.Err == nil {
		t.Errorf("missing key error: %+v", empty)
	}
}

func TestQuery_CollapsesConcurrentFetches(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Query(context.Background(), c, Key{"k"}, fetch).Data
		}(i)
	}
	// let the goroutines pile onto the flight
	for !Peek[int](c, Key{"k"}).Loading {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		if r != 7 {
			t.Fatalf("results: %v", results)
		}
	}
	if calls != 1 {
		t.Errorf("fetch ran %d times", calls)
	}
}

func TestSetData_DiscardsOlderFlight(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		Query(context.Background(), c, Key{"tasks", "P1"}, func(context.Context) ([]string, error) {
			close(started)
			<-release
			return []string{"old"}, nil
		})
	}()
	<-started

	SetData(c, Key{"tasks", "P1"}, func(old []string, ok bool) []string {
		return append([]string{"X"}, old...)
	})
	close(release)
	<-done

	s := Peek[[]string](c, Key{"tasks", "P1"})
	if len(s.Data) != 1 || s.Data[0] != "X" {
		t.Errorf("late fetch overwrote the mutation: %v", s.Data)
	}
}

func TestUpdateData_OnlyTouchesCachedEntries(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	if UpdateData(c, Key{"users"}, func(old []string) []string { return append(old, "x") }) {
		t.Fatal("UpdateData created an entry")
	}
	if c.Len() != 0 {
		t.Fatalf("Len: %d", c.Len())
	}

	SetData(c, Key{"users"}, func([]string, bool) []string { return []string{"a"} })
	if !UpdateData(c, Key{"users"}, func(old []string) []string { return append(old, "b") }) {
		t.Fatal("UpdateData skipped a cached entry")
	}
	if s := Peek[[]string](c, Key{"users"}); len(s.Data) != 2 {
		t.Errorf("data: %v", s.Data)
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := NewCache(WithDefaultStaleTime(time.Hour))
	ctx := context.Background()
	for _, k := range []Key{{"projects"}, {"projects", "1"}, {"tasks", "1"}, {"me", "t"}} {
		k := k
		Query(ctx, c, k, func(context.Context) (string, error) { return k.String(), nil })
	}

	if n := c.Remove(Key{"projects"}); n != 2 {
		t.Errorf("Remove: got %d", n)
	}
	if c.Len() != 2 {
		t.Errorf("Len after remove: %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after clear: %d", c.Len())
	}
	if s := Peek[string](c, Key{"me", "t"}); s.HasData {
		t.Errorf("cleared entry still readable: %+v", s)
	}
}

func TestRegistry_EvictsIdle(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	r := NewRegistry(30*time.Minute, clock, func() *Cache { return NewCache(WithClock(clock)) }, nil)

	a := r.Get("a")
	if r.Get("a") != a {
		t.Fatal("Get should return the same cache for one id")
	}
	r.Get("b")

	clock.Advance(20 * time.Minute)
	r.Get("b")
	clock.Advance(20 * time.Minute)

	if n := r.Sweep(); n != 1 {
		t.Errorf("Sweep: got %d", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len: got %d", r.Len())
	}
	if r.Get("a") == a {
		t.Error("evicted cache came back")
	}
}

func TestFakeClock_Ticker(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	tk := clock.NewTicker(10 * time.Second)
	defer tk.Stop()

	clock.Advance(9 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticked early")
	default:
	}
	clock.Advance(time.Second)
	select {
	case <-tk.C():
	default:
		t.Fatal("expected a tick at 10s")
	}
}
