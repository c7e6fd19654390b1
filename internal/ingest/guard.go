package ingest

import (
	"context"
	"errors"
	"log/slog"

	"bulwark/internal/admission"
	"bulwark/internal/policy"
)

// Recorder persists guard violations. *journal.Journal satisfies this;
// tests use a fake.
type Recorder interface {
	Record(ctx context.Context, guard, source string, le *admission.LimitError) error
}

// Guard applies a limits policy to untrusted input and records violations.
type Guard struct {
	limits policy.Limits
	rec    Recorder
	logger *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithRecorder attaches a violation recorder.
func WithRecorder(rec Recorder) Option {
	return func(g *Guard) { g.rec = rec }
}

// WithLogger attaches a logger for diagnostics and recording failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// New creates a guard for the given limits.
func New(limits policy.Limits, opts ...Option) *Guard {
	g := &Guard{limits: limits}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limits returns the policy the guard enforces.
func (g *Guard) Limits() policy.Limits {
	return g.limits
}

// record persists a violation if err carries a LimitError and a recorder is
// attached. Recording is best-effort: a journal failure is logged and
// dropped so it can never mask the violation being reported to the caller.
func (g *Guard) record(ctx context.Context, guard, source string, err error) {
	if g.rec == nil || err == nil {
		return
	}
	var le *admission.LimitError
	if !errors.As(err, &le) {
		return
	}
	if rerr := g.rec.Record(ctx, guard, source, le); rerr != nil && g.logger != nil {
		g.logger.Error("failed to record violation",
			slog.String("guard", guard),
			slog.String("source", source),
			slog.String("error", rerr.Error()))
	}
}
