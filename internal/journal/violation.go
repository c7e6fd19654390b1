package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bulwark/internal/admission"
)

// Violation is one recorded guard rejection.
type Violation struct {
	// ID is a UUIDv7. Time-sortable, which helps when eyeballing rows,
	// but Seq is the authoritative order.
	ID string `json:"id"`

	// Seq is the logical clock value assigned at write time.
	Seq int64 `json:"seq"`

	// Guard names the guard that rejected ("admission", "inflate", "xml",
	// "log", "pattern").
	Guard string `json:"guard"`

	// Resource names the budget that was hit ("input_bytes", ...).
	Resource string `json:"resource"`

	// Message is the rendered error.
	Message string `json:"message"`

	Current   int64 `json:"current"`
	Requested int64 `json:"requested"`
	Limit     int64 `json:"limit"`

	// Source identifies the input being guarded (file path, stream name).
	Source string `json:"source,omitempty"`

	// At is wall-clock time, informational only.
	At time.Time `json:"at"`
}

// Record stamps and stores a violation derived from a LimitError.
//
// ID, Seq and At are assigned here; callers provide only what they know.
// Satisfies the Recorder interface the ingest guards accept.
func (j *Journal) Record(ctx context.Context, guard, source string, le *admission.LimitError) error {
	v := Violation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Seq:       j.clock.Next(),
		Guard:     guard,
		Resource:  le.Resource,
		Message:   le.Error(),
		Current:   le.Current,
		Requested: le.Requested,
		Limit:     le.Limit,
		Source:    source,
		At:        time.Now(),
	}
	return j.WriteViolation(ctx, v)
}

// WriteViolation inserts a violation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored so a retried recording cannot double-count.
func (j *Journal) WriteViolation(ctx context.Context, v Violation) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO violations
		(id, seq, guard, resource, message, current, requested, max_limit, source, at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		v.ID,
		v.Seq,
		v.Guard,
		v.Resource,
		v.Message,
		v.Current,
		v.Requested,
		v.Limit,
		v.Source,
		v.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write violation: %w", err)
	}
	return nil
}

// ListViolations returns recorded violations newest-first by seq.
// An empty guard matches all guards. A non-positive limit defaults to 50.
//
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) ListViolations(ctx context.Context, guard string, limit int) ([]Violation, error) {
	if limit <= 0 {
		limit = 50
	}

	// Deterministic ordering: seq first, id as tiebreaker.
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, guard, resource, message, current, requested, max_limit, source, at_unix_ms
		FROM violations
		WHERE (? = '' OR guard = ?)
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, guard, guard, limit)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	violations := []Violation{}
	for rows.Next() {
		var v Violation
		var atMs int64
		if err := rows.Scan(&v.ID, &v.Seq, &v.Guard, &v.Resource, &v.Message,
			&v.Current, &v.Requested, &v.Limit, &v.Source, &atMs); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.At = time.UnixMilli(atMs).UTC()
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}

	return violations, nil
}

// CountByGuard returns per-guard violation totals for reporting.
func (j *Journal) CountByGuard(ctx context.Context) (map[string]int64, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT guard, COUNT(*) FROM violations GROUP BY guard ORDER BY guard
	`)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var guard string
		var n int64
		if err := rows.Scan(&guard, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[guard] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
