package admission

import "math/big"

// Admit decides whether adding extra to current stays within limit.
//
// Returns nil to admit, *LimitError to reject. The decision matches the
// infinite-precision comparison current+extra > limit for every input where
// the preconditions hold, including extra near the top of the int64 range.
//
// Rejections:
//   - extra < 0: growth requests must be non-negative (a negative increment
//     is a release, and mixing the two hides accounting bugs)
//   - current < 0, limit < 0, or current > limit: the caller's bookkeeping
//     is already corrupt; admitting anything on top of it is meaningless
//   - current > limit-extra: the increment would exceed the ceiling
//
// The last comparison is the overflow-safe reformulation of
// current+extra > limit. It never forms the sum.
func Admit(current, limit, extra int64) error {
	if extra < 0 {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	if current < 0 || limit < 0 || current > limit {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	if current > limit-extra {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	return nil
}

// AdmitBig is the arbitrary-precision form of Admit.
//
// It forms the exact sum current+extra in a big.Int and compares against
// limit, so it cannot overflow for any int64 inputs. Slower than Admit but
// immune by construction; tests use it as the oracle, and callers that
// prefer the obviously-correct version over the fast one may use it directly.
func AdmitBig(current, limit, extra int64) error {
	if extra < 0 {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	if current < 0 || limit < 0 || current > limit {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	sum := new(big.Int).Add(big.NewInt(current), big.NewInt(extra))
	if sum.Cmp(big.NewInt(limit)) > 0 {
		return &LimitError{Current: current, Requested: extra, Limit: limit}
	}
	return nil
}
