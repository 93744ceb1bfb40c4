package validator

import (
	"sort"
	"strings"

	govalidator "github.com/go-playground/validator/v10"
)

// ValidationError maps input field names to a human readable problem.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field, msg := range e.Errors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, "; ")
}

// Check validates obj and returns a *ValidationError when any rule fails.
func Check(v *govalidator.Validate, obj any) error {
	if errs := ValidateStruct(v, obj); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
