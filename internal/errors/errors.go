// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Standard sentinel errors
var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrInvalidLeg         = errors.New("invalid leg")
	ErrEmptyInput         = errors.New("empty input")
	ErrInvalidRow         = errors.New("invalid row")
	ErrMixedUnderlyings   = errors.New("positions span more than one underlying")
	ErrMixedExpiries      = errors.New("positions span more than one expiry")
	ErrExpiryPassed       = errors.New("expiry must be in the future")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrContractNotFound   = errors.New("contract not found")
	ErrAmbiguousContract  = errors.New("multiple contracts matched")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataNotFound       = errors.New("data not found")
	ErrBrokerUnavailable  = errors.New("broker not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// BrokerError represents an error from the broker API.
type BrokerError struct {
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code, message string, err error) *BrokerError {
	return &BrokerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error on a single field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Kind    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap exposes the error kind so callers can match it with Is.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// NewValidationError creates a new ValidationError of the given kind.
func NewValidationError(kind error, field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Kind:    kind,
	}
}

// RowError reports a position row that could not be parsed.
type RowError struct {
	Line   int
	Text   string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("invalid row %d: %q: %s", e.Line, e.Text, e.Reason)
}

func (e *RowError) Unwrap() error {
	return ErrInvalidRow
}

// ContractError reports a failed instrument lookup.
type ContractError struct {
	Symbol      string
	Expiry      time.Time
	Strike      float64
	OptionType  string
	ValidExpiry []time.Time
	Err         error
}

func (e *ContractError) Error() string {
	switch {
	case errors.Is(e.Err, ErrAmbiguousContract):
		return fmt.Sprintf("multiple contracts matched for %s %s %.2f %s",
			e.Symbol, e.Expiry.Format("02-Jan-2006"), e.Strike, e.OptionType)
	case len(e.ValidExpiry) > 0:
		dates := make([]string, len(e.ValidExpiry))
		for i, d := range e.ValidExpiry {
			dates[i] = d.Format("02-Jan-2006")
		}
		return fmt.Sprintf("no contract found for %s %s; valid expiries are: %s",
			e.Symbol, e.Expiry.Format("02-Jan-2006"), strings.Join(dates, ", "))
	default:
		return fmt.Sprintf("no contracts found at all for symbol %s", e.Symbol)
	}
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
