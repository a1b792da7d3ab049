// Package validation checks request structs with validator/v10 and reports
// the first failing field as a domain validation error.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "libracatalog/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate validates a struct. Fields are checked in declaration order and
// only the first failure is reported.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return formatError(err, "")
	}
	return nil
}

// Field validates a single value against tag, reporting failures under name.
func (v *Validator) Field(name string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		return formatError(err, name)
	}
	return nil
}

func formatError(err error, name string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	first := validationErrs[0]
	field := name
	if field == "" {
		field = first.Field()
	}
	return domainerrors.Validation(field, friendlyMessage(first))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "contains":
		return "must contain " + e.Param()
	case "max":
		return "must not exceed " + e.Param() + " characters"
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
