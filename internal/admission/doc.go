// Package admission implements overflow-safe bounded-resource admission.
//
// The core contract: given a running total, a ceiling, and a proposed
// increment, decide whether applying the increment would exceed the ceiling
// WITHOUT ever computing current+extra directly. Near the top of the int64
// range that sum wraps around, and a wrapped sum silently admits requests
// that should have been rejected.
//
// The safe reformulation used throughout this package:
//
//	reject if extra < 0
//	reject if current > limit - extra
//
// Both operands of limit-extra are known non-negative at that point, so the
// subtraction cannot wrap.
//
// AdmitBig provides the same decision via math/big. It is immune to overflow
// by construction and serves as the reference oracle in tests; it is exported
// because it is a valid (slower) substitute for callers that prefer it.
//
// Gauge packages the check together with a mutex-guarded running total so
// concurrent producers can reserve and release capacity against one ceiling.
package admission
