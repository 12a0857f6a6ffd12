package querycache

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	s, err := NewStore(Options{MaxSize: 1000, Clock: clock.Now})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_FreshHit(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	s.Set("k", "v", time.Second)
	clock.Advance(500 * time.Millisecond)

	got, ok := s.Get("k")
	if !ok {
		t.Fatal("should find k before ttl elapses")
	}
	if got != "v" {
		t.Errorf("value = %v, want %q", got, "v")
	}
}

func TestStore_ExpiryOnRead(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	s.Set("k", "v", time.Second)
	clock.Advance(1500 * time.Millisecond)

	// Still listed until a read notices it is stale.
	if st := s.Stats(); st.Size != 1 {
		t.Fatalf("size before read = %d, want 1", st.Size)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatal("stale entry should be a miss")
	}
	st := s.Stats()
	if st.Size != 0 {
		t.Errorf("size after read = %d, want 0", st.Size)
	}
	for _, k := range st.Keys {
		if k == "k" {
			t.Error("stale key should no longer be listed")
		}
	}
}

func TestStore_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	s.Set("k", 1, time.Second)
	clock.Advance(time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("entry exactly ttl old should still be valid")
	}
	clock.Advance(time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Fatal("entry older than ttl should be a miss")
	}
}

func TestStore_DefaultTTL(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	if s.DefaultTTL() != DefaultTTL {
		t.Fatalf("default ttl = %v, want %v", s.DefaultTTL(), DefaultTTL)
	}

	s.Set("k", "v", 0)
	clock.Advance(DefaultTTL - time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("entry should live for the default ttl")
	}
	clock.Advance(2 * time.Second)
	if _, ok := s.Get("k"); ok {
		t.Fatal("entry should expire after the default ttl")
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	s.Set("k", "old", time.Second)
	clock.Advance(900 * time.Millisecond)
	s.Set("k", "new", time.Second)
	clock.Advance(900 * time.Millisecond)

	got, ok := s.Get("k")
	if !ok {
		t.Fatal("overwrite should reset the timestamp")
	}
	if got != "new" {
		t.Errorf("value = %v, want %q", got, "new")
	}
}

func TestStore_ClearSubstring(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	s.Set("matches:all", "v1", time.Minute)
	s.Set("matches:5", "v2", time.Minute)
	s.Set("teams:all", "v3", time.Minute)

	if n := s.Clear("matches"); n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if _, ok := s.Get("matches:all"); ok {
		t.Error("matches:all should be cleared")
	}
	if _, ok := s.Get("matches:5"); ok {
		t.Error("matches:5 should be cleared")
	}
	if got, ok := s.Get("teams:all"); !ok || got != "v3" {
		t.Errorf("teams:all = %v, %v; want v3, true", got, ok)
	}
}

func TestStore_ClearIsSubstringNotPrefix(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	s.Set("user_profiles:{}", 1, time.Minute)
	s.Set("admin_user_profiles:xyz", 2, time.Minute)
	s.Set("user:{}", 3, time.Minute)

	s.Clear("user_profiles")

	if diff := cmp.Diff([]string{"user:{}"}, s.Stats().Keys); diff != "" {
		t.Errorf("remaining keys mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ClearAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	for _, k := range []string{"matches:{}", "teams:{}", "predictions:{}", "model_registry:{}"} {
		s.Set(k, k, time.Minute)
	}
	if n := s.Clear(""); n != 4 {
		t.Errorf("removed = %d, want 4", n)
	}
	if st := s.Stats(); st.Size != 0 {
		t.Errorf("size = %d, want 0", st.Size)
	}
}

func TestStore_ClearTags(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	s.SetTagged("matches:{}", 1, time.Minute, "matches")
	s.SetTagged("fn:model-performance:{}", 2, time.Minute, "fn:model-performance", "predictions")
	s.SetTagged("predictions:{}", 3, time.Minute, "predictions")
	// Key contains "matches" but is not tagged with it.
	s.SetTagged("admin_matches:{}", 4, time.Minute, "admin_matches")

	if n := s.ClearTags("predictions"); n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if n := s.ClearTags("matches"); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if diff := cmp.Diff([]string{"admin_matches:{}"}, s.Stats().Keys); diff != "" {
		t.Errorf("remaining keys mismatch (-want +got):\n%s", diff)
	}
	if n := s.ClearTags(); n != 0 {
		t.Errorf("clearing no tags removed %d entries", n)
	}
}

func TestStore_StatsSortedAndReadOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	s.Set("b", 1, time.Minute)
	s.Set("a", 2, time.Minute)
	s.Set("c", 3, time.Minute)

	first := s.Stats()
	second := s.Stats()
	want := Stats{Size: 3, Keys: []string{"a", "b", "c"}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("stats changed between calls (-first +second):\n%s", diff)
	}
}

func TestStore_Len(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := newTestStore(t, clock)

	if n := s.Len(); n != 0 {
		t.Fatalf("empty Len = %d, want 0", n)
	}
	s.Set("teams:{}", 1, time.Second)
	s.Set("matches:{}", 2, time.Minute)
	if n := s.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	// Stale entries count until they are read.
	clock.Advance(2 * time.Second)
	if n := s.Len(); n != s.Stats().Size || n != 2 {
		t.Errorf("Len = %d, Stats().Size = %d, want 2", n, s.Stats().Size)
	}
	s.Get("teams:{}")
	if n := s.Len(); n != 1 {
		t.Errorf("Len after expired read = %d, want 1", n)
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, newFakeClock())

	s.Set("matches:{}", 1, time.Minute)
	s.Set("matches:{\"limit\":10}", 2, time.Minute)
	s.Delete("matches:{}")

	if _, ok := s.Get("matches:{}"); ok {
		t.Error("deleted key should be gone")
	}
	if _, ok := s.Get("matches:{\"limit\":10}"); !ok {
		t.Error("delete should only remove the exact key")
	}
}

func TestStore_Concurrent(t *testing.T) {
	t.Parallel()
	s, err := NewStore(Options{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				s.Set("k", i, time.Minute)
				s.Get("k")
				s.Stats()
				if i == 0 {
					s.Clear("k")
				}
			}
		}()
	}
	wg.Wait()
}
