// Package validation wraps go-playground/validator with JSON-aware field names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their json tag.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// FormatErrors converts validation errors into a field -> message map.
func FormatErrors(err error) map[string]string {
	out := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return out
	}
	for _, e := range validationErrs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = "invalid email format"
		case "url":
			out[field] = "invalid url"
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		case "lte":
			out[field] = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of [%s]", field, e.Param())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}
