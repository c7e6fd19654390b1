package ingest

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"bulwark/internal/admission"
	"bulwark/internal/scoped"
)

// InflateStats reports what a guarded decompression actually consumed and
// produced.
type InflateStats struct {
	CompressedBytes int64 `json:"compressed_bytes"`
	OutputBytes     int64 `json:"output_bytes"`
}

// Ratio returns output bytes per compressed byte consumed.
func (s InflateStats) Ratio() int64 {
	if s.CompressedBytes == 0 {
		return 0
	}
	return s.OutputBytes / s.CompressedBytes
}

// Inflate decompresses gzip data from src into dst under the guard's policy.
//
// Three budgets are enforced while inflating, never from declared sizes (the
// gzip ISIZE trailer is attacker-controlled and ignored):
//
//   - max_input_bytes on compressed bytes consumed
//   - max_output_bytes on bytes produced
//   - max_ratio on produced bytes per compressed byte consumed
//
// A violation aborts mid-stream with *admission.LimitError; whatever was
// already written to dst stays written, so callers wanting all-or-nothing
// must stage dst themselves. The stats are valid on error and describe how
// far inflation got.
func (g *Guard) Inflate(ctx context.Context, dst io.Writer, src io.Reader, source string) (stats InflateStats, err error) {
	defer func() { g.record(ctx, "inflate", source, err) }()

	compressed := &countingReader{
		r: NewReader(src, admission.NewGauge(g.limits.MaxInputBytes), "input_bytes"),
	}

	zr, err := gzip.NewReader(compressed)
	if err != nil {
		stats.CompressedBytes = compressed.n
		return stats, fmt.Errorf("gzip: %w", err)
	}
	defer scoped.KeepFirst(&err, "close gzip reader", zr.Close)

	buf := make([]byte, 32<<10)
	for {
		if cerr := ctx.Err(); cerr != nil {
			stats.CompressedBytes = compressed.n
			return stats, cerr
		}

		n, rerr := zr.Read(buf)
		if n > 0 {
			// Output budget, overflow-safe.
			if aerr := admission.Admit(stats.OutputBytes, g.limits.MaxOutputBytes, int64(n)); aerr != nil {
				le := aerr.(*admission.LimitError)
				le.Resource = "output_bytes"
				stats.CompressedBytes = compressed.n
				return stats, le
			}

			// Ratio budget: produced must stay under ratio * consumed.
			// satMul keeps the ceiling computation itself from wrapping.
			consumed := max(compressed.n, 1)
			ceiling := satMul(g.limits.MaxRatio, consumed)
			if admission.Admit(stats.OutputBytes, ceiling, int64(n)) != nil {
				// Report in ratio units, not the derived byte ceiling.
				before := stats.OutputBytes / consumed
				step := (stats.OutputBytes+int64(n))/consumed - before
				if step < 1 {
					step = 1
				}
				stats.CompressedBytes = compressed.n
				return stats, &admission.LimitError{
					Resource:  "expansion_ratio",
					Current:   before,
					Requested: step,
					Limit:     g.limits.MaxRatio,
				}
			}

			wn, werr := dst.Write(buf[:n])
			stats.OutputBytes += int64(wn)
			if werr != nil {
				stats.CompressedBytes = compressed.n
				return stats, fmt.Errorf("write inflated output: %w", werr)
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			stats.CompressedBytes = compressed.n
			return stats, fmt.Errorf("inflate: %w", rerr)
		}
	}

	stats.CompressedBytes = compressed.n
	return stats, nil
}

// satMul multiplies non-negative a and b, saturating at MaxInt64.
func satMul(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
