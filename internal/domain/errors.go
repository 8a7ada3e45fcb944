package domain

import (
	"errors"
	"fmt"
)

// DataError reports malformed or misaligned input data: duplicate or
// non-monotonic dates, unparseable rows, series that do not line up.
type DataError struct {
	Op     string // operation that hit the problem, e.g. "join", "combine"
	Detail string
	Date   Date // zero when not tied to a single row
}

func (e *DataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("data error in %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("data error in %s: %s (date %s)", e.Op, e.Detail, e.Date)
}

// NewDataError builds a DataError without a row date.
func NewDataError(op, format string, args ...interface{}) *DataError {
	return &DataError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// NewDataErrorAt builds a DataError pinned to a row date.
func NewDataErrorAt(op string, date Date, format string, args ...interface{}) *DataError {
	return &DataError{Op: op, Detail: fmt.Sprintf(format, args...), Date: date}
}

// ComputationError reports a window that cannot be evaluated: zero-variance
// z-score denominators, series shorter than a requested lookback. These are
// flagged explicitly rather than leaking NaN into results.
type ComputationError struct {
	Op     string
	Detail string
	Window int // lookback involved, 0 when not applicable
}

func (e *ComputationError) Error() string {
	if e.Window > 0 {
		return fmt.Sprintf("computation error in %s (window %d): %s", e.Op, e.Window, e.Detail)
	}
	return fmt.Sprintf("computation error in %s: %s", e.Op, e.Detail)
}

// NewComputationError builds a ComputationError for the given lookback.
func NewComputationError(op string, window int, format string, args ...interface{}) *ComputationError {
	return &ComputationError{Op: op, Detail: fmt.Sprintf(format, args...), Window: window}
}

// ConfigError reports an invalid study configuration. Config errors are fatal
// at load time; no run starts with one outstanding.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// NewConfigError builds a ConfigError for a single field.
func NewConfigError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// IsDataError reports whether any error in the chain is a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsComputationError reports whether any error in the chain is a ComputationError.
func IsComputationError(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}

// IsConfigError reports whether any error in the chain is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
