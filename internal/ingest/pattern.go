package ingest

import (
	"fmt"
	"regexp"

	"bulwark/internal/admission"
)

// CompilePattern compiles a regular expression taken from untrusted input.
//
// Go's regexp is RE2: matching is linear in the input, so catastrophic
// backtracking cannot happen here regardless of the pattern. What a hostile
// pattern can still do is be enormous - compile to a huge program and hold
// memory - so the pattern length is capped before compilation.
func (g *Guard) CompilePattern(expr string) (*regexp.Regexp, error) {
	maxLen := int64(g.limits.MaxPatternLen)
	if err := admission.Admit(0, maxLen, int64(len(expr))); err != nil {
		le := err.(*admission.LimitError)
		le.Resource = "pattern_len"
		return nil, le
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	return re, nil
}
