package admission

import "sync"

// Gauge tracks a running total against a fixed ceiling.
//
// Each guarded resource gets its own Gauge instance. Reserve applies the
// overflow-safe admission check and the increment atomically, so concurrent
// reservations can never push the total past the limit between check and
// apply.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Gauge struct {
	mu      sync.Mutex
	limit   int64
	current int64
}

// NewGauge creates a gauge with the given ceiling.
// A negative limit is treated as zero (nothing admissible).
func NewGauge(limit int64) *Gauge {
	if limit < 0 {
		limit = 0
	}
	return &Gauge{limit: limit}
}

// Reserve admits and applies an increment of n under the gauge's lock.
//
// On rejection the total is left untouched and the returned *LimitError
// carries the resource name for diagnostics.
func (g *Gauge) Reserve(resource string, n int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := Admit(g.current, g.limit, n); err != nil {
		le := err.(*LimitError)
		le.Resource = resource
		return le
	}
	g.current += n
	return nil
}

// Release subtracts n from the total, clamping at zero.
//
// Releasing more than was reserved must not wrap the total negative; a
// clamped release indicates a caller accounting bug but keeps the gauge
// usable.
func (g *Gauge) Release(n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n < 0 {
		return
	}
	if n > g.current {
		g.current = 0
		return
	}
	g.current -= n
}

// Current returns the running total. Used for logging and diagnostics.
func (g *Gauge) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Limit returns the ceiling. Used for logging and diagnostics.
func (g *Gauge) Limit() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit
}

// Remaining returns limit minus current. Never negative.
func (g *Gauge) Remaining() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit - g.current
}
