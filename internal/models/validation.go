package models

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string    `json:"field"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors aggregates multiple validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Add records a validation error for a field.
func (v *ValidationErrors) Add(field string, err error) {
	v.AddCode(field, "", err)
}

// AddCode records a validation error tagged with a loop error code.
// Nested ValidationErrors are flattened with dotted field paths.
func (v *ValidationErrors) AddCode(field string, code ErrorCode, err error) {
	if err == nil {
		return
	}

	var nested *ValidationErrors
	if errors.As(err, &nested) {
		for _, sub := range nested.Errors {
			subCode := sub.Code
			if subCode == "" {
				subCode = code
			}
			v.Errors = append(v.Errors, ValidationError{
				Field:   joinField(field, sub.Field),
				Code:    subCode,
				Message: sub.Message,
				Cause:   sub.Cause,
			})
		}
		return
	}

	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	})
}

// AddMessage records a validation error with a custom message.
func (v *ValidationErrors) AddMessage(field, message string) {
	if message == "" {
		return
	}
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// Codes returns the distinct error codes in the order they were recorded.
func (v *ValidationErrors) Codes() []ErrorCode {
	if v == nil {
		return nil
	}
	seen := make(map[ErrorCode]struct{}, len(v.Errors))
	var out []ErrorCode
	for _, err := range v.Errors {
		if err.Code == "" {
			continue
		}
		if _, ok := seen[err.Code]; ok {
			continue
		}
		seen[err.Code] = struct{}{}
		out = append(out, err.Code)
	}
	return out
}

// HasCode reports whether any recorded error carries code.
func (v *ValidationErrors) HasCode(code ErrorCode) bool {
	if v == nil {
		return false
	}
	for _, err := range v.Errors {
		if err.Code == code {
			return true
		}
	}
	return false
}

// Err returns nil if there are no errors, otherwise returns the validation error.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Error implements error.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var builder strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.Error())
	}

	return builder.String()
}

// Is allows errors.Is to match nested validation errors.
func (v *ValidationErrors) Is(target error) bool {
	if v == nil {
		return false
	}
	for _, err := range v.Errors {
		if err.Cause != nil && errors.Is(err.Cause, target) {
			return true
		}
	}
	return false
}

func joinField(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}
