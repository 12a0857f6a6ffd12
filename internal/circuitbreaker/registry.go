package circuitbreaker

import (
	"sort"
	"sync"
)

// Registry holds one Breaker per edge function name.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
}

// NewRegistry creates an empty registry whose breakers share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   cfg,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, r.config)
	r.breakers[name] = b
	return b
}

// BreakerState is one row of Snapshot.
type BreakerState struct {
	Function string `json:"function"`
	State    string `json:"state"`
}

// Snapshot reports every known breaker, sorted by function name.
func (r *Registry) Snapshot() []BreakerState {
	r.mu.RLock()
	out := make([]BreakerState, 0, len(r.breakers))
	for name, b := range r.breakers {
		out = append(out, BreakerState{Function: name, State: b.State().String()})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Function < out[j].Function })
	return out
}
