package errors

import (
	"errors"
	"fmt"
)

var (
	ErrParse      = errors.New("malformed payload")
	ErrValidation = errors.New("reading outside physical bounds")
	ErrConversion = errors.New("unit conversion failed")
	ErrUnhandled  = errors.New("unhandled message type")
	ErrDuplicate  = errors.New("duplicate update suppressed")

	ErrDispenserNotFound = errors.New("dispenser not found")
	ErrNozzleNotFound    = errors.New("nozzle not found")
	ErrTankNotFound      = errors.New("tank not found")

	ErrInvalidInput = errors.New("invalid input data")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ParseError describes a payload that could not be decoded. It matches ErrParse.
type ParseError struct {
	Field  string
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error [%s]: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

func NewParseError(field, input, reason string, err error) *ParseError {
	return &ParseError{Field: field, Input: input, Reason: reason, Err: err}
}

// ValidationError is a well-formed value that is physically implausible. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Value   float64
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s=%.2f]: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field string, value float64, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConversionError matches ErrConversion.
type ConversionError struct {
	Measurement float64
	Reason      string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error for %.2f: %s", e.Measurement, e.Reason)
}

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func NewConversionError(measurement float64, reason string) *ConversionError {
	return &ConversionError{Measurement: measurement, Reason: reason}
}
