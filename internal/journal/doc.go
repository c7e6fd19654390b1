// Package journal records guard violations durably in SQLite.
//
// Every rejected admission, decompression overrun, or XML expansion attempt
// becomes a Violation row. The journal exists so that a rejection is never
// only a returned error: operators can ask "what has been hitting our
// limits" after the fact via the report command.
//
// Ordering uses a monotonic logical clock (Seq), never wall-clock
// timestamps; the At field is for humans reading reports. Writes are
// idempotent on the violation ID so retried recordings do not duplicate.
package journal
