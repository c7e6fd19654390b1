package admission

import (
	"errors"
	"fmt"
)

// LimitError is returned when an admission check rejects a request.
//
// Two rejection shapes share this type:
//   - invalid input: Requested < 0, or a corrupted total (Current < 0,
//     Limit < 0, Current > Limit)
//   - over budget: applying Requested would push Current past Limit
//
// Callers that need to distinguish them can inspect the fields; most callers
// only need to know the request was refused.
type LimitError struct {
	Resource  string // what was being admitted ("input_bytes", "xml_tokens", ...)
	Current   int64  // running total at rejection time
	Requested int64  // proposed increment
	Limit     int64  // ceiling
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	name := e.Resource
	if name == "" {
		name = "resource"
	}
	if e.Requested < 0 {
		return fmt.Sprintf("%s: negative increment %d rejected", name, e.Requested)
	}
	if e.Current < 0 || e.Limit < 0 || e.Current > e.Limit {
		return fmt.Sprintf("%s: corrupted total %d for limit %d", name, e.Current, e.Limit)
	}
	return fmt.Sprintf("%s: %d + %d exceeds limit %d", name, e.Current, e.Requested, e.Limit)
}

// IsLimitError reports whether err is (or wraps) a LimitError.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}
