// Package scoped guarantees release of acquired resources on every exit path.
//
// Every helper here enforces the same contract: a resource acquired at the
// top of a block (file handle, lock, stream, decompressor) is released
// exactly once whether the block returns normally, returns an error, or
// panics. Nested resources release in reverse acquisition order.
//
// Flush-before-release is the one place the contract has a wrinkle: buffered
// output must be flushed on the success path, and a flush failure must
// surface as the operation's error even though the underlying resource is
// still released. KeepFirst implements that precedence rule: the original
// error wins, and a cleanup failure is only promoted when the operation
// itself succeeded.
package scoped
