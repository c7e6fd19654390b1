package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault_IsValid ensures the built-in policy passes its own rules.
func TestDefault_IsValid(t *testing.T) {
	assert.Empty(t, Default().Validate())
}

// TestValidate_CollectsAllErrors verifies validation does not fail fast.
func TestValidate_CollectsAllErrors(t *testing.T) {
	l := Limits{
		MaxInputBytes:  -1,
		MaxOutputBytes: 0,
		MaxRatio:       10,
		MaxXMLDepth:    64,
		MaxXMLTokens:   32, // below depth
		MaxLogBytes:    1024,
		MaxPatternLen:  100,
	}

	errs := l.Validate()
	require.NotEmpty(t, errs)

	codes := map[string]int{}
	for _, e := range errs {
		codes[e.Code]++
	}
	assert.Equal(t, 2, codes[ErrLimitNotPositive], "input and output budgets are both non-positive")
	assert.Equal(t, 1, codes[ErrTokensBelowDepth])
}

// TestValidate_OutputBelowInput covers the budget ordering rule.
func TestValidate_OutputBelowInput(t *testing.T) {
	l := Default()
	l.MaxInputBytes = 32 << 20
	l.MaxOutputBytes = 16 << 20

	errs := l.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, ErrOutputBelowInput, errs[0].Code)
	assert.Equal(t, "max_output_bytes", errs[0].Field)
}

func TestValidationError_Message(t *testing.T) {
	e := ValidationError{Field: "max_ratio", Message: "must be positive, got 0", Code: ErrLimitNotPositive}
	assert.Equal(t, "[E101] max_ratio: must be positive, got 0", e.Error())
}
