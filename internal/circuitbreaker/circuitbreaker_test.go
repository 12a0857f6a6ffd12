package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker() (*Breaker, *testClock) {
	clk := &testClock{now: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)}
	b := NewBreaker("model-performance", Config{
		ErrorThreshold: 0.30,
		MinSamples:     10,
		WindowSeconds:  60,
		OpenTimeout:    30 * time.Second,
		Now:            clk.Now,
	})
	return b, clk
}

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func succeed() error { return nil }

func TestWindow_RateAndExpiry(t *testing.T) {
	t.Parallel()

	w := newWindow(5)
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	for range 7 {
		w.record(0, base)
	}
	for range 3 {
		w.record(1.0, base)
	}
	rate, samples := w.rate(base)
	if samples != 10 || rate < 0.29 || rate > 0.31 {
		t.Fatalf("rate = %f samples = %d, want ~0.30 / 10", rate, samples)
	}

	rate, samples = w.rate(base.Add(6 * time.Second))
	if samples != 0 || rate != 0 {
		t.Fatalf("after expiry: rate = %f samples = %d, want 0/0", rate, samples)
	}
}

func TestBreaker_OpensOnThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker()
	for range 7 {
		b.Do(succeed)
	}
	for range 3 {
		b.Do(fail)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("open breaker ran fn")
	}
}

func TestBreaker_MinSamplesRequired(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker()
	for range 9 {
		b.Do(fail)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed below min samples", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		probe func() error
		want  State
	}{
		{name: "probe succeeds", probe: succeed, want: StateClosed},
		{name: "probe fails", probe: fail, want: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, clk := newTestBreaker()
			for range 10 {
				b.Do(fail)
			}
			clk.Advance(31 * time.Second)
			if b.State() != StateHalfOpen {
				t.Fatalf("state = %v, want half_open after timeout", b.State())
			}

			release := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				done <- b.Do(func() error { <-release; return tt.probe() })
			}()
			// A second caller is rejected while the probe is in flight.
			for !b.probeStarted() {
				runtime.Gosched()
			}
			if err := b.Do(succeed); !errors.Is(err, ErrOpen) {
				t.Errorf("concurrent probe err = %v, want ErrOpen", err)
			}
			close(release)
			<-done

			if got := b.State(); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
		})
	}
}

func (b *Breaker) probeStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.probing
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want float64
	}{
		{name: "nil", err: nil, want: 0},
		{name: "canceled", err: fmt.Errorf("call: %w", context.Canceled), want: 0},
		{name: "timeout", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: 1.5},
		{name: "rate limited", err: statusErr(429), want: 0.5},
		{name: "bad request", err: statusErr(400), want: 0},
		{name: "server error", err: statusErr(503), want: 1.0},
		{name: "transport", err: errBoom, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(DefaultConfig())
	a := r.Get("model-performance")
	if r.Get("model-performance") != a {
		t.Error("Get returned a different breaker for the same name")
	}
	r.Get("league-stats")

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Function != "league-stats" || snap[1].State != "closed" {
		t.Errorf("Snapshot = %+v", snap)
	}
}
