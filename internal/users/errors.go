package users

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a user field that breaks the entity rules
type ValidationError struct {
	Type    string
	Field   string
	Value   interface{}
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error [%s] for field '%s' (value: %v): %s (caused by: %v)", e.Type, e.Field, e.Value, e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error [%s] for field '%s' (value: %v): %s", e.Type, e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Validation error types
const (
	ValidationErrorTypeEmptyName      = "empty_name"
	ValidationErrorTypeNegativeAge    = "negative_age"
	ValidationErrorTypeInvalidAge     = "invalid_age"
	ValidationErrorTypeMissingField   = "missing_field"
	ValidationErrorTypeInvalidRequest = "invalid_request"
)

// NewEmptyNameError creates an error for a zero-length user name
func NewEmptyNameError() *ValidationError {
	return &ValidationError{
		Type:    ValidationErrorTypeEmptyName,
		Field:   FieldName,
		Value:   "",
		Message: "user name cannot be empty",
	}
}

// NewNegativeAgeError creates an error for an age below zero
func NewNegativeAgeError(age int) *ValidationError {
	return &ValidationError{
		Type:    ValidationErrorTypeNegativeAge,
		Field:   FieldAge,
		Value:   age,
		Message: "user age cannot be negative",
	}
}

// NewInvalidAgeError creates an error for an age that is not an integer
func NewInvalidAgeError(value interface{}, cause error) *ValidationError {
	return &ValidationError{
		Type:    ValidationErrorTypeInvalidAge,
		Field:   FieldAge,
		Value:   value,
		Message: "user age must be an integer",
		Cause:   cause,
	}
}

// NewMissingFieldError creates an error for a required field absent from a request
func NewMissingFieldError(field string) *ValidationError {
	return &ValidationError{
		Type:    ValidationErrorTypeMissingField,
		Field:   field,
		Message: "field is required",
	}
}

// NotFoundError is returned when no row matches the requested (name, age)
type NotFoundError struct {
	Name string
	Age  int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user not found: name=%q age=%d", e.Name, e.Age)
}

// NewUserNotFoundError creates an error for a user missing from the store
func NewUserNotFoundError(u User) *NotFoundError {
	return &NotFoundError{Name: u.Name, Age: u.Age}
}

// SchemaError represents structural problems with columns or fields
type SchemaError struct {
	Type    string
	Fields  []string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error [%s]: %s", e.Type, e.Message)
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Schema error types
const (
	SchemaErrorTypeMissingColumns          = "missing_columns"
	SchemaErrorTypeUnknownField            = "unknown_field"
	SchemaErrorTypeUnknownAggregationField = "unknown_aggregation_field"
	SchemaErrorTypeNonNumericField         = "non_numeric_field"
	SchemaErrorTypeMalformedSource         = "malformed_source"
)

// NewMissingColumnsError lists every required column absent from a source
func NewMissingColumnsError(columns []string) *SchemaError {
	return &SchemaError{
		Type:    SchemaErrorTypeMissingColumns,
		Fields:  columns,
		Message: "missing required columns",
	}
}

// NewUnknownFieldError creates an error for grouping by a column the table does not have
func NewUnknownFieldError(field string) *SchemaError {
	return &SchemaError{
		Type:    SchemaErrorTypeUnknownField,
		Fields:  []string{field},
		Message: "field not found",
	}
}

// NewUnknownAggregationFieldError creates an error for aggregating a column absent from the grouped data
func NewUnknownAggregationFieldError(field string) *SchemaError {
	return &SchemaError{
		Type:    SchemaErrorTypeUnknownAggregationField,
		Fields:  []string{field},
		Message: "field not found in group",
	}
}

// NewNonNumericFieldError creates an error for averaging a text column
func NewNonNumericFieldError(field string) *SchemaError {
	return &SchemaError{
		Type:    SchemaErrorTypeNonNumericField,
		Fields:  []string{field},
		Message: "field is not numeric",
	}
}

// NewMalformedSourceError wraps a failure to read the tabular source itself
func NewMalformedSourceError(cause error) *SchemaError {
	return &SchemaError{
		Type:    SchemaErrorTypeMalformedSource,
		Message: "source could not be parsed",
		Cause:   cause,
	}
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsSchemaError reports whether err carries a SchemaError
func IsSchemaError(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}

// ErrorType returns the machine readable type of a users error, or "" for foreign errors
func ErrorType(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Type
	}
	var nerr *NotFoundError
	if errors.As(err, &nerr) {
		return "user_not_found"
	}
	var serr *SchemaError
	if errors.As(err, &serr) {
		return serr.Type
	}
	return ""
}
