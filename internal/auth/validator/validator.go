// Package validator registers auth-specific validation rules.
package validator

import (
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"dealflow_backend/platform/validator"
)

// Register adds the strongpassword rule used by account requests.
func Register(val *validator.Validator) error {
	return val.RegisterValidation("strongpassword", strongPassword)
}

// strongPassword requires at least 8 characters with an upper case letter,
// a lower case letter, and a digit.
func strongPassword(fl playground.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
