package core

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - centralized error definitions
var (
	// Fatal to an analysis run
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrInvalidSeries    = errors.New("invalid series")
	ErrConfiguration    = errors.New("invalid configuration")

	// Deprecated threshold variants are rejected, never merged
	ErrDeprecatedProfile = fmt.Errorf("%w: deprecated threshold profile", ErrConfiguration)

	// Local, recorded as reduced confidence
	ErrDegenerateWindow = errors.New("degenerate window")

	// Internal to the merger, never surfaced to callers
	ErrConflictingCandidates = errors.New("conflicting change-point candidates")

	// Persistence
	ErrNotFound        = errors.New("resource not found")
	ErrProfileNotFound = fmt.Errorf("%w: profile", ErrNotFound)
)

// InsufficientDataError reports why a series cannot be analysed.
type InsufficientDataError struct {
	Domain   string
	Reason   string
	Coverage float64
	Span     time.Duration
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient %s data: %s (coverage %.2f, span %s)", e.Domain, e.Reason, e.Coverage, e.Span)
}

// Is matches ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// ConfigurationError names the offending option.
type ConfigurationError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// DegenerateWindowWarning marks a window too short for stable features.
type DegenerateWindowWarning struct {
	Start    int `json:"start_index"`
	End      int `json:"end_index"`
	Points   int `json:"points"`
	Required int `json:"required"`
}

func (w *DegenerateWindowWarning) Error() string {
	return fmt.Sprintf("degenerate window [%d,%d]: %d points, need %d", w.Start, w.End, w.Points, w.Required)
}

// Is matches ErrDegenerateWindow
func (w *DegenerateWindowWarning) Is(target error) bool {
	return target == ErrDegenerateWindow
}

// Error constructors with context
func NewInsufficientDataError(domain, reason string, coverage float64, span time.Duration) error {
	return &InsufficientDataError{Domain: domain, Reason: reason, Coverage: coverage, Span: span}
}

func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

func NewInvalidSeriesError(index int, reason string) error {
	return fmt.Errorf("%w: sample %d: %s", ErrInvalidSeries, index, reason)
}

// Error checking helpers
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
