package ingest

import (
	"bytes"
	"context"
	mrand "math/rand"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulwark/internal/admission"
	"bulwark/internal/policy"
)

// gzipBytes compresses payload for test fixtures.
func gzipBytes(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TestInflate_RoundTrip decompresses a benign payload within all budgets.
func TestInflate_RoundTrip(t *testing.T) {
	payload := []byte("a modest amount of perfectly ordinary data")
	g := New(policy.Default())

	var out bytes.Buffer
	stats, err := g.Inflate(context.Background(), &out, bytes.NewReader(gzipBytes(t, payload)), "ok.gz")
	require.NoError(t, err)

	assert.Equal(t, payload, out.Bytes())
	assert.Equal(t, int64(len(payload)), stats.OutputBytes)
	assert.Positive(t, stats.CompressedBytes)
}

// TestInflate_OutputBudgetStopsBomb feeds a highly compressible payload and
// verifies inflation aborts at the output budget instead of materializing
// the whole expansion.
func TestInflate_OutputBudgetStopsBomb(t *testing.T) {
	bomb := gzipBytes(t, make([]byte, 1<<20)) // 1 MiB of zeros, tiny compressed

	limits := policy.Default()
	limits.MaxOutputBytes = 64 << 10 // 64 KiB
	limits.MaxRatio = 1 << 30       // out of the way for this test
	rec := &fakeRecorder{}
	g := New(limits, WithRecorder(rec))

	var out bytes.Buffer
	_, err := g.Inflate(context.Background(), &out, bytes.NewReader(bomb), "bomb.gz")
	require.Error(t, err)

	var le *admission.LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "output_bytes", le.Resource)
	assert.LessOrEqual(t, int64(out.Len()), limits.MaxOutputBytes)

	// The violation also landed in the journal.
	require.Len(t, rec.errs, 1)
	assert.Equal(t, "inflate", rec.guards[0])
	assert.Equal(t, "bomb.gz", rec.sources[0])
}

// TestInflate_RatioBudget catches amplification even when the absolute
// output budget is generous.
func TestInflate_RatioBudget(t *testing.T) {
	bomb := gzipBytes(t, make([]byte, 1<<20))

	limits := policy.Default()
	limits.MaxRatio = 2 // zeros compress far better than 2:1
	g := New(limits)

	var out bytes.Buffer
	_, err := g.Inflate(context.Background(), &out, bytes.NewReader(bomb), "bomb.gz")
	require.Error(t, err)

	var le *admission.LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "expansion_ratio", le.Resource)
	assert.Equal(t, int64(2), le.Limit)
}

// TestInflate_InputBudget bounds compressed bytes consumed.
func TestInflate_InputBudget(t *testing.T) {
	// Incompressible payload: compressed size tracks payload size.
	payload := make([]byte, 8<<10)
	_, _ = mrand.New(mrand.NewSource(1)).Read(payload)

	limits := policy.Default()
	limits.MaxInputBytes = 1024
	g := New(limits)

	var out bytes.Buffer
	_, err := g.Inflate(context.Background(), &out, bytes.NewReader(gzipBytes(t, payload)), "big.gz")
	require.Error(t, err)

	var le *admission.LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "input_bytes", le.Resource)
}

// TestInflate_CorruptHeader reports a gzip error, not a violation.
func TestInflate_CorruptHeader(t *testing.T) {
	rec := &fakeRecorder{}
	g := New(policy.Default(), WithRecorder(rec))

	var out bytes.Buffer
	_, err := g.Inflate(context.Background(), &out, bytes.NewReader([]byte("not gzip at all")), "junk")
	require.Error(t, err)
	assert.False(t, admission.IsLimitError(err))
	assert.Empty(t, rec.errs)
}

// TestInflate_ContextCancelled aborts between chunks.
func TestInflate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(policy.Default())
	var out bytes.Buffer
	_, err := g.Inflate(ctx, &out, bytes.NewReader(gzipBytes(t, []byte("data"))), "x.gz")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInflateStats_Ratio(t *testing.T) {
	assert.Equal(t, int64(0), InflateStats{}.Ratio())
	assert.Equal(t, int64(50), InflateStats{CompressedBytes: 20, OutputBytes: 1000}.Ratio())
}

func TestSatMul(t *testing.T) {
	assert.Equal(t, int64(0), satMul(0, 5))
	assert.Equal(t, int64(35), satMul(5, 7))
	assert.Equal(t, int64(1<<62), satMul(1<<31, 1<<31))
	// Saturates instead of wrapping.
	assert.Equal(t, int64(9223372036854775807), satMul(1<<40, 1<<40))
}
