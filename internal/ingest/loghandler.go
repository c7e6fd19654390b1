package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"bulwark/internal/admission"
)

// CappedHandler is an slog.Handler that bounds log volume.
//
// Each record's approximate formatted size is charged against a byte budget.
// When the budget runs out the handler emits a single notice through the
// inner handler and silently drops everything else until Reset starts a new
// window. An attacker who controls message content must not control how much
// disk the logs consume.
//
// The window boundary is the caller's concern (per request, per scan, per
// rotation tick); the handler only enforces the budget within one window.
type CappedHandler struct {
	inner slog.Handler
	state *cappedState // shared across WithAttrs/WithGroup clones
}

type cappedState struct {
	mu       sync.Mutex
	gauge    *admission.Gauge
	limit    int64
	notified bool
	dropped  atomic.Int64
}

// NewCappedHandler wraps inner with a byte budget per window.
func NewCappedHandler(inner slog.Handler, maxBytes int64) *CappedHandler {
	return &CappedHandler{
		inner: inner,
		state: &cappedState{gauge: admission.NewGauge(maxBytes), limit: maxBytes},
	}
}

// Dropped returns how many records the current window has discarded.
func (h *CappedHandler) Dropped() int64 {
	return h.state.dropped.Load()
}

// Reset starts a new window with a fresh budget.
func (h *CappedHandler) Reset() {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.gauge = admission.NewGauge(h.state.limit)
	h.state.notified = false
	h.state.dropped.Store(0)
}

// Enabled implements slog.Handler.
func (h *CappedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *CappedHandler) Handle(ctx context.Context, r slog.Record) error {
	cost := recordCost(r)

	h.state.mu.Lock()
	err := h.state.gauge.Reserve("log_bytes", cost)
	if err != nil {
		h.state.dropped.Add(1)
		first := !h.state.notified
		h.state.notified = true
		h.state.mu.Unlock()

		if first {
			notice := slog.NewRecord(r.Time, slog.LevelWarn,
				"log budget exhausted, dropping records", 0)
			notice.AddAttrs(slog.Int64("max_log_bytes", h.state.limit))
			return h.inner.Handle(ctx, notice)
		}
		return nil
	}
	h.state.mu.Unlock()

	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler. Clones share the window budget.
func (h *CappedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CappedHandler{inner: h.inner.WithAttrs(attrs), state: h.state}
}

// WithGroup implements slog.Handler. Clones share the window budget.
func (h *CappedHandler) WithGroup(name string) slog.Handler {
	return &CappedHandler{inner: h.inner.WithGroup(name), state: h.state}
}

// recordCost approximates the formatted size of a record. Exact rendered
// length depends on the inner handler; an approximation is fine because the
// budget is a defense, not an accounting system.
func recordCost(r slog.Record) int64 {
	cost := int64(len(r.Message)) + 32 // timestamp and level overhead
	r.Attrs(func(a slog.Attr) bool {
		cost += int64(len(a.Key)) + int64(len(a.Value.String())) + 4
		return true
	})
	return cost
}
