package policy

import "fmt"

// Validation error codes (E101-E199)
const (
	ErrLimitNotPositive = "E101" // every limit must be a positive integer
	ErrOutputBelowInput = "E102" // output budget must cover at least one input's worth
	ErrTokensBelowDepth = "E103" // a document of depth d needs at least d tokens
)

// Limits holds the knobs for the ingest guards.
//
// Zero values are never valid; construct via Default or Load.
type Limits struct {
	// MaxInputBytes bounds raw bytes read from an untrusted source.
	MaxInputBytes int64 `yaml:"max_input_bytes" json:"max_input_bytes"`

	// MaxOutputBytes bounds decompressed output, enforced mid-stream.
	MaxOutputBytes int64 `yaml:"max_output_bytes" json:"max_output_bytes"`

	// MaxRatio bounds output bytes per compressed byte consumed.
	MaxRatio int64 `yaml:"max_ratio" json:"max_ratio"`

	// MaxXMLDepth bounds element nesting when decoding XML.
	MaxXMLDepth int `yaml:"max_xml_depth" json:"max_xml_depth"`

	// MaxXMLTokens bounds total tokens consumed from one XML document.
	MaxXMLTokens int `yaml:"max_xml_tokens" json:"max_xml_tokens"`

	// MaxLogBytes bounds formatted log output per window.
	MaxLogBytes int64 `yaml:"max_log_bytes" json:"max_log_bytes"`

	// MaxPatternLen bounds regular expression patterns taken from input.
	MaxPatternLen int `yaml:"max_pattern_len" json:"max_pattern_len"`
}

// Default returns the built-in policy. Matches the defaults in schema.cue.
func Default() Limits {
	return Limits{
		MaxInputBytes:  1 << 20,  // 1 MiB
		MaxOutputBytes: 16 << 20, // 16 MiB
		MaxRatio:       100,
		MaxXMLDepth:    32,
		MaxXMLTokens:   100000,
		MaxLogBytes:    64 << 10,
		MaxPatternLen:  1024,
	}
}

// ValidationError represents a policy validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the limits against cross-field rules and positivity.
// Returns all errors found (does not fail-fast).
//
// Load already runs the CUE schema, but Limits values can also be built in
// Go, so the same rules are enforced here.
func (l Limits) Validate() []ValidationError {
	var errs []ValidationError

	positive := []struct {
		field string
		value int64
	}{
		{"max_input_bytes", l.MaxInputBytes},
		{"max_output_bytes", l.MaxOutputBytes},
		{"max_ratio", l.MaxRatio},
		{"max_xml_depth", int64(l.MaxXMLDepth)},
		{"max_xml_tokens", int64(l.MaxXMLTokens)},
		{"max_log_bytes", l.MaxLogBytes},
		{"max_pattern_len", int64(l.MaxPatternLen)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{
				Field:   p.field,
				Message: fmt.Sprintf("must be positive, got %d", p.value),
				Code:    ErrLimitNotPositive,
			})
		}
	}

	// E102: an output budget smaller than the input budget makes every
	// stored-as-is (ratio 1) input a violation.
	if l.MaxOutputBytes > 0 && l.MaxInputBytes > 0 && l.MaxOutputBytes < l.MaxInputBytes {
		errs = append(errs, ValidationError{
			Field:   "max_output_bytes",
			Message: fmt.Sprintf("must be >= max_input_bytes (%d < %d)", l.MaxOutputBytes, l.MaxInputBytes),
			Code:    ErrOutputBelowInput,
		})
	}

	// E103: depth consumes at least one token per level.
	if l.MaxXMLTokens > 0 && l.MaxXMLDepth > 0 && l.MaxXMLTokens < l.MaxXMLDepth {
		errs = append(errs, ValidationError{
			Field:   "max_xml_tokens",
			Message: fmt.Sprintf("must be >= max_xml_depth (%d < %d)", l.MaxXMLTokens, l.MaxXMLDepth),
			Code:    ErrTokensBelowDepth,
		})
	}

	return errs
}
