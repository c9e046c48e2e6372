package ssfcm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is the root of every configuration error returned by
	// New and Cluster.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnknownIdentity is returned when a supervised group names an identity
	// that is not present in Config.Identity.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrFieldLength is returned when Config.FieldsLen does not describe the
	// dataset's dimensionality.
	ErrFieldLength = errors.New("field lengths do not match dimensionality")

	// ErrInvalidFuzzifier is returned when the fuzzifier exponent is not > 1.
	ErrInvalidFuzzifier = errors.New("fuzzifier must be > 1")

	// ErrAlreadyRun is returned when Run is called twice on the same engine.
	ErrAlreadyRun = errors.New("ssfcm: engine already run")
)

// ConfigError describes a rejected configuration value.
//
// errors.Is reports true for ErrInvalidConfig and for the more specific
// sentinel it wraps, if any.
type ConfigError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ssfcm: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.cause}
}

func configErrorf(field string, cause error, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...), cause: cause}
}
