package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/validation"
)

func validateStruct(v *validator.Validate, req interface{}, message string) error {
	if err := v.Struct(req); err != nil {
		e := appErrors.Validation(message, validation.FormatErrors(err))
		e.Err = err
		return e
	}
	return nil
}

func fieldError(field, message string) error {
	return appErrors.Validation(message, map[string]string{field: message})
}

// trimmed returns the trimmed value and whether anything is left.
func trimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// normalizeEmail trims surrounding whitespace. Addresses compare exactly, case included.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
