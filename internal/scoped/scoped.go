package scoped

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// With runs fn while holding mu.
//
// The lock is released on every exit path: normal return, error return, and
// panic (the panic re-propagates after release). Acquisition blocks; there
// are no timeout or reentrancy semantics.
func With(mu sync.Locker, fn func() error) error {
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// KeepFirst runs a deferred cleanup op and merges its failure into *errp.
//
// Precedence: if the guarded operation already failed, *errp is kept and the
// cleanup failure is dropped from the return value (the original failure is
// usually the one worth reporting). If the operation succeeded, a cleanup
// failure such as a failed flush or close becomes the operation's error
// rather than being silently swallowed.
//
// Intended use:
//
//	func write(path string) (err error) {
//		f, err := os.Create(path)
//		if err != nil {
//			return err
//		}
//		defer scoped.KeepFirst(&err, "close "+path, f.Close)
//		...
//	}
func KeepFirst(errp *error, what string, op func() error) {
	if op == nil {
		return
	}
	if cerr := op(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("%s: %w", what, cerr)
	}
}

// CloseQuietly closes a resource whose failure cannot change the outcome.
//
// Used on error paths where an error is already being returned: the close
// still happens, and a close failure is logged rather than silently dropped.
func CloseQuietly(c io.Closer, logger *slog.Logger, op string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && logger != nil {
		logger.Error("failed to close resource",
			slog.String("operation", op),
			slog.String("error", err.Error()))
	}
}

// WithFile opens path for reading, runs fn, and closes the file on every
// exit path. A close failure on the success path propagates.
func WithFile(path string, fn func(*os.File) error) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer KeepFirst(&err, "close "+path, f.Close)

	return fn(f)
}

// WriteFile creates path, hands fn a buffered writer, then flushes and
// closes in order. Flush happens before close; a failure in either fails
// the whole operation while the file is still closed.
func WriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return writeBuffered(f, path, fn)
}

// writeBuffered wraps w in a buffer, runs fn, and tears down in the
// required order: flush first, close second, release on every path.
func writeBuffered(w io.WriteCloser, name string, fn func(io.Writer) error) (err error) {
	defer KeepFirst(&err, "close "+name, w.Close)

	bw := bufio.NewWriter(w)
	defer KeepFirst(&err, "flush "+name, bw.Flush)

	return fn(bw)
}
