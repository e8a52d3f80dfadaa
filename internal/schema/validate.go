package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	nonstandard "github.com/go-playground/validator/v10/non-standard/validators"
)

// Direction says which side of an agent call failed validation: the caller's
// input, or the model's output. The CLI phrases its message accordingly.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "model output"
)

// ValidationError reports a record that does not satisfy its schema.
// Fields holds the dotted paths of the offending fields.
type ValidationError struct {
	Direction Direction
	Schema    string
	Fields    []string
	Err       error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid %s for %s: %s", e.Direction, e.Schema, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid %s for %s: %v", e.Direction, e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator returns the shared validator instance, configured once.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// min/max pass whitespace-only strings; notblank closes that gap.
		if err := validate.RegisterValidation("notblank", nonstandard.NotBlank); err != nil {
			panic(fmt.Sprintf("register notblank validation: %v", err))
		}
	})
	return validate
}

// ValidateInput checks a caller-supplied record against its schema.
func ValidateInput(name string, v any) error {
	return check(DirectionInput, name, v)
}

// ValidateOutput checks a model-produced record against its schema.
func ValidateOutput(name string, v any) error {
	return check(DirectionOutput, name, v)
}

func check(dir Direction, name string, v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Direction: dir, Schema: name, Err: err}
	}

	fields := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		fields[i] = fieldPath(fe)
	}
	return &ValidationError{Direction: dir, Schema: name, Fields: fields, Err: err}
}

// fieldPath renders a field error as a lowercase dotted path matching the
// JSON keys, e.g. "recommendations[0].reason: min".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	// Drop the leading struct name; keep the nested path.
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return fmt.Sprintf("%s: %s", strings.ToLower(ns), fe.Tag())
}

// NewOutputParseError wraps a JSON decode failure of a model response as a
// schema mismatch.
func NewOutputParseError(name string, err error) error {
	return &ValidationError{Direction: DirectionOutput, Schema: name, Err: fmt.Errorf("not valid JSON: %w", err)}
}
