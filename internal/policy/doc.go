// Package policy defines the limits applied by the ingest guards and loads
// them from YAML documents.
//
// Validation is two-layered:
//
//  1. A CUE schema (schema.cue, embedded) checks shape: every knob is a
//     positive integer, unknown fields are rejected, omitted fields take
//     the schema's defaults.
//  2. Go-side Validate checks cross-field rules the schema cannot express
//     cleanly, returning all violations with stable error codes rather
//     than failing fast.
//
// Default() returns the built-in policy and is always valid.
package policy
