package ingest

import (
	"context"
	"fmt"
	"io"

	"bulwark/internal/admission"
)

// Reader charges every byte read against a gauge.
//
// Once the budget is exhausted the error is sticky: further reads return the
// same *admission.LimitError. Bytes read past the budget in the final short
// read are discarded - a guard rejection aborts the whole operation, so
// nothing downstream consumes them.
type Reader struct {
	r        io.Reader
	gauge    *admission.Gauge
	resource string
	err      error
}

// NewReader wraps r so that reads draw down the shared gauge.
// Use this form when several streams share one budget.
func NewReader(r io.Reader, gauge *admission.Gauge, resource string) *Reader {
	return &Reader{r: r, gauge: gauge, resource: resource}
}

// LimitedReader wraps r with a private budget of limit bytes.
func LimitedReader(r io.Reader, limit int64, resource string) *Reader {
	return NewReader(r, admission.NewGauge(limit), resource)
}

// Read implements io.Reader.
func (cr *Reader) Read(p []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}

	n, err := cr.r.Read(p)
	if n > 0 {
		if rerr := cr.gauge.Reserve(cr.resource, int64(n)); rerr != nil {
			cr.err = rerr
			return 0, rerr
		}
	}
	return n, err
}

// Count returns the bytes admitted so far.
func (cr *Reader) Count() int64 {
	return cr.gauge.Current()
}

// Copy drains src into dst under the guard's raw input budget.
//
// This is the guard for inputs that need no decoding: the bytes are charged
// against max_input_bytes as they are read, and a budget violation aborts
// mid-stream and is recorded like any other rejection. Returns the bytes
// admitted before the outcome, valid on error.
func (g *Guard) Copy(ctx context.Context, dst io.Writer, src io.Reader, source string) (n int64, err error) {
	defer func() { g.record(ctx, "read", source, err) }()

	r := LimitedReader(src, g.limits.MaxInputBytes, "input_bytes")
	buf := make([]byte, 32<<10)
	for {
		if cerr := ctx.Err(); cerr != nil {
			return r.Count(), cerr
		}

		nr, rerr := r.Read(buf)
		if nr > 0 {
			if _, werr := dst.Write(buf[:nr]); werr != nil {
				return r.Count(), fmt.Errorf("write: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return r.Count(), rerr
		}
	}
	return r.Count(), nil
}

// countingReader tracks raw bytes consumed, with no limit. Inflate uses it
// to measure compressed input for the expansion-ratio check.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
