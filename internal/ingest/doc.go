// Package ingest guards the processing of untrusted input against
// disproportionate resource consumption.
//
// Each guard targets one attack shape:
//
//   - Reader / Copy / Inflate: amplification during parsing. Budgets are
//     charged mid-stream as bytes are actually produced, never from sizes
//     the input declares about itself (a gzip trailer claiming 1 KiB says
//     nothing about what inflation will really produce).
//   - DecodeXML: entity-expansion style blowup. DTDs and directives are
//     rejected outright, and token count and nesting depth are capped so a
//     malformed document cannot keep the decoder looping.
//   - CappedHandler: unbounded logging volume. An attacker who controls
//     log message content must not control log disk consumption.
//   - SanitizeForLog: log forging. Untrusted strings are normalized,
//     stripped of control characters and truncated before they reach a log
//     line.
//   - CompilePattern: pattern cost. Go's regexp is RE2 and runs in linear
//     time, so catastrophic backtracking is not reachable here; the residual
//     risk is untrusted patterns compiling to enormous programs, which the
//     length cap bounds.
//
// Shapes Go neutralizes natively are not wrapped: map hashing is seeded per
// process, so hash-collision blowup needs no guard, and all loops in this
// package are bounded by the same budgets they enforce.
//
// Violations surface as *admission.LimitError and are additionally recorded
// through an optional Recorder (the SQLite journal in production, a fake in
// tests). Recording is best-effort: a journal failure is logged but never
// masks the violation itself.
package ingest
