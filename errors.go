// Package sequence - errors.go provides custom error types with rich context.
//
// Every struct error unwraps to one of the sentinel errors below, so callers can
// use errors.Is for the category and errors.As for the details.

package sequence

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the generator.
var (
	// ErrInvalidConfiguration is returned at construction when the node ID, one of
	// its halves, the layout, the epoch or the rollback tolerance is invalid.
	// It is never returned after construction succeeds.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrClockRollbackExceeded is returned by NextID when the clock moved backwards
	// beyond the configured tolerance, or is still behind after the mitigating wait.
	// The generator does not retry; the caller decides whether to retry later,
	// alert, or fail the enclosing request.
	ErrClockRollbackExceeded = errors.New("clock rollback exceeded tolerance")

	// ErrTimestampOverflow is returned when the epoch-relative timestamp does not
	// fit the layout's timestamp field (clock before epoch, or lifespan exhausted).
	ErrTimestampOverflow = errors.New("timestamp overflow")
)

// ClockRollbackError carries the timing details of a refused rollback.
//
// Example usage:
//
//	id, err := gen.NextID()
//	var rbErr *sequence.ClockRollbackError
//	if errors.As(err, &rbErr) {
//	    logger.Error("clock moved backwards",
//	        "drift", rbErr.Drift(),
//	        "tolerance", rbErr.Tolerance(),
//	        "node", rbErr.NodeID)
//	}
type ClockRollbackError struct {
	// CurrentTimestamp is the clock reading (Unix ms) that triggered the error.
	CurrentTimestamp int64

	// LastTimestamp is the timestamp (Unix ms) of the last issued ID.
	LastTimestamp int64

	// DriftMilliseconds is LastTimestamp - CurrentTimestamp as first observed.
	DriftMilliseconds int64

	// ToleranceMilliseconds is the configured maximum tolerated drift.
	ToleranceMilliseconds int64

	// NodeID identifies the generator that refused to issue an ID.
	NodeID int64

	// Waited is true when the drift was within tolerance, the generator slept
	// 2*drift and the clock was still behind afterwards.
	Waited bool
}

// Error implements the error interface.
func (e *ClockRollbackError) Error() string {
	phase := "refused"
	if e.Waited {
		phase = "still behind after wait"
	}
	return fmt.Sprintf("clock moved backwards: drift=%dms tolerance=%dms current=%d last=%d node=%d (%s)",
		e.DriftMilliseconds, e.ToleranceMilliseconds,
		e.CurrentTimestamp, e.LastTimestamp, e.NodeID, phase)
}

// Unwrap returns ErrClockRollbackExceeded for errors.Is() compatibility.
func (e *ClockRollbackError) Unwrap() error {
	return ErrClockRollbackExceeded
}

// Drift returns the drift as a time.Duration.
func (e *ClockRollbackError) Drift() time.Duration {
	return time.Duration(e.DriftMilliseconds) * time.Millisecond
}

// Tolerance returns the tolerance as a time.Duration.
func (e *ClockRollbackError) Tolerance() time.Duration {
	return time.Duration(e.ToleranceMilliseconds) * time.Millisecond
}

// ExceedsTolerance reports whether the drift alone exceeded the tolerance.
func (e *ClockRollbackError) ExceedsTolerance() bool {
	return e.DriftMilliseconds > e.ToleranceMilliseconds
}

// ConfigError describes which configuration field failed validation and why.
//
// Example usage:
//
//	_, err := sequence.New(2048)
//	var cfgErr *sequence.ConfigError
//	if errors.As(err, &cfgErr) {
//	    logger.Error("invalid generator configuration",
//	        "field", cfgErr.Field,
//	        "value", cfgErr.Value,
//	        "constraint", cfgErr.Constraint)
//	}
type ConfigError struct {
	// Field is the name of the configuration field that failed validation.
	Field string

	// Value is the invalid value, rendered for logging.
	Value string

	// Reason is a human-readable explanation.
	Reason string

	// Constraint describes the valid range, e.g. "must be between 0 and 31 (5 bits)".
	Constraint string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%s (%s) - %s",
		e.Field, e.Value, e.Reason, e.Constraint)
}

// Unwrap returns ErrInvalidConfiguration for errors.Is() compatibility.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OverflowError reports a relative timestamp that does not fit the layout.
type OverflowError struct {
	// Timestamp is the clock reading in Unix ms.
	Timestamp int64

	// Epoch is the generator's epoch in Unix ms.
	Epoch int64

	// MaxRelative is the largest relative timestamp the layout can encode.
	MaxRelative int64

	// NodeID identifies the generator.
	NodeID int64
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	rel := e.Timestamp - e.Epoch
	if rel < 0 {
		return fmt.Sprintf("timestamp overflow: clock %d is before epoch %d (node=%d)",
			e.Timestamp, e.Epoch, e.NodeID)
	}
	return fmt.Sprintf("timestamp overflow: relative timestamp %d exceeds %d (node=%d)",
		rel, e.MaxRelative, e.NodeID)
}

// Unwrap returns ErrTimestampOverflow for errors.Is() compatibility.
func (e *OverflowError) Unwrap() error {
	return ErrTimestampOverflow
}

// IsClockRollbackError checks if an error is or wraps a ClockRollbackError.
func IsClockRollbackError(err error) bool {
	var rbErr *ClockRollbackError
	return errors.As(err, &rbErr)
}

// IsConfigError checks if an error is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// GetClockRollbackError extracts the ClockRollbackError from an error chain.
func GetClockRollbackError(err error) (*ClockRollbackError, bool) {
	var rbErr *ClockRollbackError
	if errors.As(err, &rbErr) {
		return rbErr, true
	}
	return nil, false
}

// GetConfigError extracts the ConfigError from an error chain.
func GetConfigError(err error) (*ConfigError, bool) {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}

func newClockRollbackError(currentTs, lastTs, driftMs, toleranceMs, nodeID int64, waited bool) *ClockRollbackError {
	return &ClockRollbackError{
		CurrentTimestamp:      currentTs,
		LastTimestamp:         lastTs,
		DriftMilliseconds:     driftMs,
		ToleranceMilliseconds: toleranceMs,
		NodeID:                nodeID,
		Waited:                waited,
	}
}

func newConfigError(field, value, reason, constraint string) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Reason:     reason,
		Constraint: constraint,
	}
}

func newOverflowError(timestamp, epoch, maxRelative, nodeID int64) *OverflowError {
	return &OverflowError{
		Timestamp:   timestamp,
		Epoch:       epoch,
		MaxRelative: maxRelative,
		NodeID:      nodeID,
	}
}
