package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/flatcms/accounts/internal/store"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when an account does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrConflict is returned when an account id is already taken.
	ErrConflict = store.ErrConflict
	// ErrInvalidCredentials merges "no such account" and "wrong password".
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a reset value is absent or mismatched.
	ErrInvalidToken = errors.New("invalid or unknown reset token")
	// ErrRegistrationClosed is returned once the super admin exists.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrStorage wraps failures of the record store.
	ErrStorage = errors.New("storage failure")
	// ErrMail wraps mail delivery failures. It is logged, never returned
	// from a credential operation.
	ErrMail = errors.New("mail failure")
)

// ValidationError reports malformed input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, e.Fields[key])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// storageError wraps err as ErrStorage unless it already carries a domain
// meaning.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs validate on req and converts failures into a
// ValidationError.
func validateStruct(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		var message string
		switch fieldErr.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", fieldErr.Field())
		case "email":
			message = fmt.Sprintf("Field '%s' must be a valid email address", fieldErr.Field())
		case "min":
			message = fmt.Sprintf("Field '%s' must be at least %s in length", fieldErr.Field(), fieldErr.Param())
		case "max":
			message = fmt.Sprintf("Field '%s' must not exceed %s in length", fieldErr.Field(), fieldErr.Param())
		case "oneof":
			message = fmt.Sprintf("Field '%s' must be one of [%s]", fieldErr.Field(), fieldErr.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag())
		}
		fields[fieldErr.Field()] = message
	}
	return &ValidationError{Fields: fields}
}
