package scoped

import (
	"errors"
	"fmt"
)

// Stack releases nested resources in reverse acquisition order.
//
// Register each resource with Defer as it is acquired; Close releases them
// last-in-first-out, the same order a chain of defers would. Every release
// runs exactly once even when an earlier (inner) release fails; a failed
// inner close must not leak the outer handles.
//
// Close is idempotent: the second and later calls are no-ops. Stack is not
// safe for concurrent use; it models a single block's acquisitions.
type Stack struct {
	entries []stackEntry
	closed  bool
}

type stackEntry struct {
	name  string
	close func() error
}

// Defer registers a release operation. The name labels release failures.
func (s *Stack) Defer(name string, close func() error) {
	if close == nil {
		return
	}
	s.entries = append(s.entries, stackEntry{name: name, close: close})
}

// Close releases all registered resources in reverse registration order.
//
// All releases run; failures are joined so none is lost. The caller usually
// invokes this via defer and merges the result with KeepFirst.
func (s *Stack) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if err := e.close(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered releases. Used for diagnostics.
func (s *Stack) Len() int {
	return len(s.entries)
}
