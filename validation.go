package fitAuth

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const passwordSpecials = "@$!%*?&"

var fieldMessages = map[string]string{
	"firstName.required":      "First name is required",
	"lastName.required":       "Last name is required",
	"email.required":          "Email is required",
	"email.email":             "Invalid email",
	"password.required":       "Password is required",
	"password.min":            "Password must be at least 8 characters",
	"password.max":            "Password must be less than 50 characters",
	"password.strongpassword": "Password must contain at least one uppercase, one lowercase, one number and one special character",
	"confirmPassword.eqfield": "Passwords must match",
}

type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration of a well-formed tag with a non-nil func cannot fail.
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	return &inputValidator{validate: v}
}

// check validates s and converts failures into a KindValidation *Error with
// one message per field. The first failing rule of each field wins.
func (iv *inputValidator) check(s any) error {
	err := iv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return internalError(err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		fields[fe.Field()] = msg
	}
	return NewValidationError(fields)
}

// isStrongPassword requires at least one lowercase letter, one uppercase
// letter, one digit and one of @$!%*?&, and rejects any other character.
func isStrongPassword(pw string) bool {
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
