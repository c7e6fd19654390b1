package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_DefaultsApply verifies an empty document yields the built-in
// policy via the schema's defaults.
func TestParse_DefaultsApply(t *testing.T) {
	l, errs := Parse("empty.yaml", []byte("{}"))
	require.Empty(t, errs)
	assert.Equal(t, Default(), l)
}

// TestParse_PartialOverride verifies named knobs override and the rest
// keep their defaults.
func TestParse_PartialOverride(t *testing.T) {
	doc := []byte("max_input_bytes: 2048\nmax_xml_depth: 8\n")

	l, errs := Parse("partial.yaml", doc)
	require.Empty(t, errs)
	assert.Equal(t, int64(2048), l.MaxInputBytes)
	assert.Equal(t, 8, l.MaxXMLDepth)
	assert.Equal(t, Default().MaxOutputBytes, l.MaxOutputBytes)
	assert.Equal(t, Default().MaxRatio, l.MaxRatio)
}

// TestParse_UnknownFieldRejected verifies a typoed knob fails loudly
// instead of silently keeping its default.
func TestParse_UnknownFieldRejected(t *testing.T) {
	doc := []byte("max_input_byts: 2048\n")

	_, errs := Parse("typo.yaml", doc)
	require.NotEmpty(t, errs)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrPolicySchema, le.Code)
}

// TestParse_NegativeLimitRejected is caught at the schema layer.
func TestParse_NegativeLimitRejected(t *testing.T) {
	doc := []byte("max_ratio: -3\n")

	_, errs := Parse("neg.yaml", doc)
	require.NotEmpty(t, errs)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrPolicySchema, le.Code)
}

// TestParse_CrossFieldRuleRejected passes the schema (both values are
// positive integers) but fails the Go-side budget ordering rule.
func TestParse_CrossFieldRuleRejected(t *testing.T) {
	doc := []byte("max_input_bytes: 33554432\n") // 32 MiB > default 16 MiB output

	_, errs := Parse("cross.yaml", doc)
	require.Len(t, errs, 1)

	var ve ValidationError
	require.ErrorAs(t, errs[0], &ve)
	assert.Equal(t, ErrOutputBelowInput, ve.Code)
}

// TestParse_MalformedYAML reports a parse error, not a schema error.
func TestParse_MalformedYAML(t *testing.T) {
	_, errs := Parse("bad.yaml", []byte("max_input_bytes: [unclosed"))
	require.NotEmpty(t, errs)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrPolicyParse, le.Code)
}

// TestLoad_RoundTrip writes a policy file and loads it back.
func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_log_bytes: 512\n"), 0o644))

	l, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, int64(512), l.MaxLogBytes)
}

// TestLoad_MissingFile reports E110 with the underlying cause.
func TestLoad_MissingFile(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrPolicyNotFound, le.Code)
}
