// Package circuitbreaker trips on a weighted error rate measured over a
// sliding window of one-second buckets. Edge function calls go through one
// Breaker per function so a failing function is short-circuited instead of
// holding every cache miss for the full call timeout.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen // one probe call allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters.
type Config struct {
	ErrorThreshold float64          // weighted error rate to trip (e.g. 0.50)
	MinSamples     int              // calls in window before the breaker may open
	WindowSeconds  int              // sliding window length, 1 to 60
	OpenTimeout    time.Duration    // time in OPEN before a probe is allowed
	Now            func() time.Time // nil = time.Now
}

// DefaultConfig returns the settings used for edge functions.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 0.50,
		MinSamples:     5,
		WindowSeconds:  30,
		OpenTimeout:    15 * time.Second,
	}
}

type bucket struct {
	errors float64
	total  int
}

// window is a ring of one-second buckets.
type window struct {
	buckets  [60]bucket
	size     int
	head     int
	headTime int64 // unix seconds of head bucket
}

func newWindow(seconds int) window {
	if seconds <= 0 || seconds > 60 {
		seconds = 60
	}
	return window{size: seconds}
}

func (w *window) advance(nowSec int64) {
	if w.headTime == 0 {
		w.headTime = nowSec
		return
	}
	gap := nowSec - w.headTime
	if gap <= 0 {
		return
	}
	for i := range min(int(gap), w.size) {
		w.buckets[(w.head+1+i)%w.size] = bucket{}
	}
	w.head = (w.head + int(gap)) % w.size
	w.headTime = nowSec
}

func (w *window) record(weight float64, now time.Time) {
	w.advance(now.Unix())
	w.buckets[w.head].total++
	w.buckets[w.head].errors += weight
}

func (w *window) rate(now time.Time) (rate float64, samples int) {
	w.advance(now.Unix())
	var errs float64
	for i := range w.size {
		errs += w.buckets[i].errors
		samples += w.buckets[i].total
	}
	if samples == 0 {
		return 0, 0
	}
	return errs / float64(samples), samples
}

func (w *window) reset() {
	*w = window{size: w.size}
}

// Breaker is a closed/open/half-open state machine for one edge function.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	window   window
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker. name is used in log lines.
func NewBreaker(name string, cfg Config) *Breaker {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    now,
		window: newWindow(cfg.WindowSeconds),
	}
}

// State returns the current state, moving OPEN to HALF_OPEN once the open
// timeout has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn if the breaker allows it and records the outcome weighted by
// ClassifyError. A rejected call returns ErrOpen without running fn.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(ClassifyError(err))
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

func (b *Breaker) record(weight float64) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window.record(weight, now)

	switch b.state {
	case StateClosed:
		if weight == 0 {
			return
		}
		rate, samples := b.window.rate(now)
		if samples >= b.cfg.MinSamples && rate >= b.cfg.ErrorThreshold {
			b.trip(now, rate)
		}
	case StateHalfOpen:
		b.probing = false
		if weight > 0 {
			b.trip(now, 1)
			return
		}
		b.state = StateClosed
		b.window.reset()
		slog.LogAttrs(context.Background(), slog.LevelInfo, "edge breaker closed",
			slog.String("function", b.name))
	}
}

func (b *Breaker) trip(now time.Time, rate float64) {
	b.state = StateOpen
	b.openedAt = now
	slog.LogAttrs(context.Background(), slog.LevelWarn, "edge breaker opened",
		slog.String("function", b.name),
		slog.Float64("error_rate", rate),
	)
}
