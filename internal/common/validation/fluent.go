package validation

import (
	"fmt"
	"net/url"
	"strings"

	"portfolio-api/internal/common/errors"
)

// FluentValidator accumulates errors from chained checks
type FluentValidator struct {
	errors []string
	prefix string
}

// NewFluentValidatorWithPrefix creates a fluent validator with error prefix
func NewFluentValidatorWithPrefix(prefix string) *FluentValidator {
	return &FluentValidator{prefix: prefix}
}

// RequireString validates that a string is not empty (trimmed)
func (fv *FluentValidator) RequireString(value, name string) *FluentValidator {
	if strings.TrimSpace(value) == "" {
		fv.addError("%s is required", name)
	}
	return fv
}

// RequirePositive validates that an integer is positive
func (fv *FluentValidator) RequirePositive(value int, name string) *FluentValidator {
	if value <= 0 {
		fv.addError("%s must be positive", name)
	}
	return fv
}

// RequireRange validates that a value is within a range
func (fv *FluentValidator) RequireRange(value, min, max int, name string) *FluentValidator {
	if value < min || value > max {
		fv.addError("%s must be between %d and %d", name, min, max)
	}
	return fv
}

// RequireURL validates that a string is an absolute http(s) URL
func (fv *FluentValidator) RequireURL(value, name string) *FluentValidator {
	u, err := url.Parse(value)
	if value == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		fv.addError("%s must be a valid http(s) URL", name)
	}
	return fv
}

// RequireOneOf validates that a value is one of the allowed values
func (fv *FluentValidator) RequireOneOf(value string, allowed []string, name string) *FluentValidator {
	for _, a := range allowed {
		if value == a {
			return fv
		}
	}
	fv.addError("%s must be one of: %s", name, strings.Join(allowed, ", "))
	return fv
}

// RequireSchedule validates a cron schedule
func (fv *FluentValidator) RequireSchedule(value, name string) *FluentValidator {
	if _, err := ParseSchedule(value); err != nil {
		fv.addError("%s must be a valid cron schedule: %v", name, err)
	}
	return fv
}

// Validate runs a custom validation function
func (fv *FluentValidator) Validate(fn func() error) *FluentValidator {
	if err := fn(); err != nil {
		fv.addError("%s", err.Error())
	}
	return fv
}

// ValidateIf runs a validation function if a condition is true
func (fv *FluentValidator) ValidateIf(condition bool, fn func() error) *FluentValidator {
	if condition {
		return fv.Validate(fn)
	}
	return fv
}

// Error returns the combined validation error or nil if there are no errors
func (fv *FluentValidator) Error() error {
	switch len(fv.errors) {
	case 0:
		return nil
	case 1:
		return errors.ValidationError(fv.errors[0])
	default:
		return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(fv.errors, "; ")))
	}
}

func (fv *FluentValidator) addError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if fv.prefix != "" {
		message = fv.prefix + ": " + message
	}
	fv.errors = append(fv.errors, message)
}
