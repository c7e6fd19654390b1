package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// Load error codes (E110-E119)
const (
	ErrPolicyNotFound = "E110" // policy file missing or unreadable
	ErrPolicyParse    = "E111" // YAML does not parse
	ErrPolicySchema   = "E112" // document violates the CUE schema
)

// LoadError represents a failure to read or parse a policy document,
// as opposed to a ValidationError in a document that parsed fine.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Load reads a YAML policy document, validates it against the embedded CUE
// schema, fills defaulted fields, then applies the Go cross-field rules.
//
// All errors are collected rather than failing on the first; a policy author
// should see every problem in one pass.
func Load(path string) (Limits, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, []error{&LoadError{
			Code:    ErrPolicyNotFound,
			Message: fmt.Sprintf("cannot read policy: %v", err),
		}}
	}
	return Parse(path, data)
}

// Parse validates raw YAML policy bytes. The filename is used only in
// error positions.
func Parse(filename string, data []byte) (Limits, []error) {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return Limits{}, []error{&LoadError{
			Code:    ErrPolicyParse,
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// Embedded schema is compiled at process start in practice; a
		// failure here is a programming error, not a user error.
		return Limits{}, []error{fmt.Errorf("internal: schema.cue does not compile: %w", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Limits"))
	if err := def.Err(); err != nil {
		return Limits{}, []error{fmt.Errorf("internal: #Limits not found in schema: %w", err)}
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return Limits{}, []error{&LoadError{
			Code:    ErrPolicyParse,
			Message: fmt.Sprintf("invalid policy document: %v", err),
		}}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Limits{}, schemaErrors(err)
	}

	var l Limits
	if err := unified.Decode(&l); err != nil {
		return Limits{}, schemaErrors(err)
	}

	var errs []error
	for _, verr := range l.Validate() {
		errs = append(errs, verr)
	}
	if len(errs) > 0 {
		return Limits{}, errs
	}
	return l, nil
}

// schemaErrors unpacks a CUE error list into one LoadError per violation,
// keeping the field path in the message.
func schemaErrors(err error) []error {
	var errs []error
	for _, e := range cueerrors.Errors(err) {
		msg := e.Error()
		if path := strings.Join(e.Path(), "."); path != "" {
			msg = fmt.Sprintf("%s: %s", path, msg)
		}
		errs = append(errs, &LoadError{Code: ErrPolicySchema, Message: msg})
	}
	if len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrPolicySchema, Message: err.Error()})
	}
	return errs
}
