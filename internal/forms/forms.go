// Package forms implements declarative, synchronous validation of form
// submissions. A schema lists named fields with their rules; validation
// reports at most one violation per field, checking required first, then
// length bounds, then format.
package forms

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Format constrains the shape of a field value.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
)

// Field describes the rules for one named form field. Min and Max bound
// the value length in characters; zero means unbounded.
type Field struct {
	Name     string
	Label    string
	Required bool
	Min      int
	Max      int
	Format   Format
}

// Schema is an ordered set of field rules.
type Schema struct {
	Fields []Field
}

// Result carries either the validated data or the first violation found
// per field.
type Result struct {
	Valid  bool
	Data   map[string]string
	Errors map[string]string
}

var validate = validator.New()

// Validate checks values against the schema. It performs no I/O and runs
// synchronously; rule order per field is required, min, max, format, and
// only the first violated rule is reported.
func (s Schema) Validate(values map[string]string) Result {
	errs := make(map[string]string)
	data := make(map[string]string, len(s.Fields))

	for _, field := range s.Fields {
		value := values[field.Name]
		if msg := field.check(value); msg != "" {
			errs[field.Name] = msg
			continue
		}
		data[field.Name] = value
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return Result{Valid: true, Data: data}
}

func (f Field) check(value string) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}

	if value == "" {
		if f.Required {
			return fmt.Sprintf("%s is required", label)
		}
		return ""
	}

	if f.Min > 0 && validate.Var(value, fmt.Sprintf("min=%d", f.Min)) != nil {
		return fmt.Sprintf("%s must be more than %d characters", label, f.Min)
	}
	if f.Max > 0 && validate.Var(value, fmt.Sprintf("max=%d", f.Max)) != nil {
		return fmt.Sprintf("%s must be less than %d characters", label, f.Max)
	}
	if f.Format == FormatEmail && validate.Var(value, "email") != nil {
		return "Invalid email"
	}
	return ""
}
