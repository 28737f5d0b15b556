package models

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrEmptyUpdate is returned when an update carries no fields.
var ErrEmptyUpdate = errors.New("update has no fields")

// ValidationError identifies the first field that broke a schema rule.
type ValidationError struct {
	Field string // json name: username | email | password
	Rule  string // failed tag: required | email | min | maxbytes | unique
	Err   error  // underlying cause, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: failed %q rule", e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func schema() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json field names instead of Go names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(f.Name)
			}
			return name
		})
		if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
			panic(err)
		}
	})
	return validate
}

// maxBytes limits the encoded length of a string; min/max count runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// NormalizeEmail trims and lower-cases an address before it is validated or stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims the user's text fields in place.
func (u *User) Normalize() {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = NormalizeEmail(u.Email)
}

// Normalize trims the non-nil text fields in place. Passwords are left as given.
func (u *UserUpdate) Normalize() {
	if u.Username != nil {
		v := strings.TrimSpace(*u.Username)
		u.Username = &v
	}
	if u.Email != nil {
		v := NormalizeEmail(*u.Email)
		u.Email = &v
	}
}

// ValidateUser checks a record against the schema rules.
func ValidateUser(u *User) error {
	return toValidationError(schema().Struct(u))
}

// ValidateUpdate checks only the fields present in the update.
func ValidateUpdate(u *UserUpdate) error {
	if u.Empty() {
		return ErrEmptyUpdate
	}
	return toValidationError(schema().Struct(u))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return err
}
