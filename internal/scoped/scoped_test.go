package scoped

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyLocker counts lock/unlock calls so tests can assert balanced pairs.
type spyLocker struct {
	locks   int
	unlocks int
}

func (l *spyLocker) Lock()   { l.locks++ }
func (l *spyLocker) Unlock() { l.unlocks++ }

// TestWith_ReleasesOnSuccess verifies the lock is released after a normal
// return.
func TestWith_ReleasesOnSuccess(t *testing.T) {
	mu := &spyLocker{}
	err := With(mu, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, mu.locks)
	assert.Equal(t, 1, mu.unlocks)
}

// TestWith_ReleasesOnError verifies the lock is released when the action
// fails and that the action's error propagates.
func TestWith_ReleasesOnError(t *testing.T) {
	mu := &spyLocker{}
	boom := errors.New("boom")
	err := With(mu, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mu.unlocks)
}

// TestWith_ReleasesOnPanic verifies the lock is released when the action
// panics, and that the panic re-propagates.
func TestWith_ReleasesOnPanic(t *testing.T) {
	mu := &spyLocker{}
	assert.Panics(t, func() {
		_ = With(mu, func() error { panic("kaboom") })
	})
	assert.Equal(t, 1, mu.unlocks)
}

// TestWith_RealMutex runs concurrent increments under a real sync.Mutex.
func TestWith_RealMutex(t *testing.T) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	n := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = With(&mu, func() error {
					n++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, n)
}

// TestKeepFirst_OriginalErrorWins verifies the operation's own error takes
// precedence over a cleanup failure.
func TestKeepFirst_OriginalErrorWins(t *testing.T) {
	opErr := errors.New("write failed")
	err := opErr
	KeepFirst(&err, "close", func() error { return errors.New("close failed") })
	assert.ErrorIs(t, err, opErr)
}

// TestKeepFirst_PromotesCleanupFailure verifies a cleanup failure surfaces
// when the operation itself succeeded.
func TestKeepFirst_PromotesCleanupFailure(t *testing.T) {
	flushErr := errors.New("short write")
	var err error
	KeepFirst(&err, "flush out.gz", func() error { return flushErr })
	require.Error(t, err)
	assert.ErrorIs(t, err, flushErr)
	assert.Contains(t, err.Error(), "flush out.gz")
}

func TestKeepFirst_NilOp(t *testing.T) {
	var err error
	KeepFirst(&err, "noop", nil)
	assert.NoError(t, err)
}

// failingWriteCloser fails writes, flushes, or closes on demand.
type failingWriteCloser struct {
	writeErr error
	closeErr error
	wrote    bytes.Buffer
	closes   int
}

func (f *failingWriteCloser) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.wrote.Write(p)
}

func (f *failingWriteCloser) Close() error {
	f.closes++
	return f.closeErr
}

// TestWriteBuffered_FlushFailurePropagates: the write succeeds into the
// buffer, the flush fails against the sink, the overall operation must
// fail, and the sink must still be closed.
func TestWriteBuffered_FlushFailurePropagates(t *testing.T) {
	sinkErr := errors.New("device full")
	sink := &failingWriteCloser{writeErr: sinkErr}

	err := writeBuffered(sink, "sink", func(w io.Writer) error {
		_, werr := w.Write([]byte("buffered, not yet flushed"))
		return werr // nil: the buffer absorbed it
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, 1, sink.closes, "sink must still be closed exactly once")
}

// TestWriteBuffered_CloseFailurePropagates verifies a close failure on the
// success path is not swallowed.
func TestWriteBuffered_CloseFailurePropagates(t *testing.T) {
	closeErr := errors.New("close failed")
	sink := &failingWriteCloser{closeErr: closeErr}

	err := writeBuffered(sink, "sink", func(w io.Writer) error {
		_, werr := w.Write([]byte("data"))
		return werr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, "data", sink.wrote.String(), "flush ran before close")
}

// TestWriteBuffered_ReleasesOnActionError verifies close runs exactly once
// when the action itself fails, and the action's error wins.
func TestWriteBuffered_ReleasesOnActionError(t *testing.T) {
	sink := &failingWriteCloser{closeErr: errors.New("also broken")}
	actErr := errors.New("bad input")

	err := writeBuffered(sink, "sink", func(io.Writer) error { return actErr })
	assert.ErrorIs(t, err, actErr)
	assert.Equal(t, 1, sink.closes)
}

// TestWriteFile_RoundTrip writes through the buffered path and reads back
// via WithFile.
func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}))

	var got []byte
	require.NoError(t, WithFile(path, func(f *os.File) error {
		var err error
		got, err = io.ReadAll(f)
		return err
	}))
	assert.Equal(t, []byte("hello"), got)
}

func TestWithFile_MissingPath(t *testing.T) {
	err := WithFile(filepath.Join(t.TempDir(), "nope"), func(*os.File) error { return nil })
	assert.Error(t, err)
}

// TestCloseQuietly_LogsFailure verifies close failures on error paths are
// logged, not silently dropped.
func TestCloseQuietly_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	CloseQuietly(&failingWriteCloser{closeErr: errors.New("eio")}, logger, "close scratch file")
	assert.Contains(t, buf.String(), "close scratch file")
	assert.Contains(t, buf.String(), "eio")

	// nil closer and nil logger are both tolerated
	CloseQuietly(nil, logger, "noop")
	CloseQuietly(&failingWriteCloser{closeErr: errors.New("eio")}, nil, "noop")
}
