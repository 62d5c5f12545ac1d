package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Validate exposes the validator in the util package.
var Validate *validator.Validate

var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func init() {
	Validate = validator.New()
	_ = Validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = Validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
}

// StrongPassword reports whether a password has at least 8 characters and mixes
// upper case, lower case and digits.
func StrongPassword(password string) bool {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return len(password) >= 8 && upper && lower && digit
}

// ValidateStruct validates s and folds every field error into one error.
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var result error
	for _, fe := range fieldErrors {
		result = multierr.Append(result, fieldError(fe))
	}
	return result
}

func fieldError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return errors.Errorf("%s is required", field)
	case "email":
		return errors.Errorf("%s must be a valid email address", field)
	case "username":
		return errors.Errorf("%s must start with a letter and contain only letters, digits and underscores", field)
	case "password":
		return errors.Errorf("%s must be at least 8 characters with upper case, lower case and digits", field)
	case "min", "max", "oneof":
		return errors.Errorf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return errors.Errorf("%s is invalid (%s)", field, fe.Tag())
}
