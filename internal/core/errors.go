package core

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed or incomplete schema source: unreadable file,
// invalid syntax, a missing or invalid required field, an unknown type, an
// unresolvable reference or an insufficient custom storage-column list.
type ConfigError struct {
	Source  string
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Path != "" && e.Source != "":
		return fmt.Sprintf("invalid value for %s in %s: %s", e.Path, e.Source, msg)
	case e.Path != "":
		return fmt.Sprintf("invalid value for %s: %s", e.Path, msg)
	case e.Source != "":
		return fmt.Sprintf("invalid schema %s: %s", e.Source, msg)
	default:
		return "invalid schema: " + msg
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AssertionError reports a contract violation: a value of the wrong kind, an
// invalid identifier, a value outside an enumerated set, or a referenced entity
// without a primary key.
type AssertionError struct {
	Source  string
	Path    string
	Message string
}

func (e *AssertionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("assertion failed for %s in %s: %s", e.Path, e.Source, e.Message)
	}
	return fmt.Sprintf("assertion failed for %s: %s", e.Path, e.Message)
}

// ProviderError wraps a failure of the database behind a provider: unreachable
// server, failed metadata query or failed DDL execution.
type ProviderError struct {
	Dialect Dialect
	Op      string

	// Code is the driver-specific error code, e.g. "1050" for MySQL or "42P07"
	// for PostgreSQL, when the driver reported one.
	Code string

	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Dialect, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may succeed on a later run without the schema
// source being edited. Only provider failures qualify; a joined error carrying
// any configuration or assertion error does not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConfigError
	var ae *AssertionError
	if errors.As(err, &ce) || errors.As(err, &ae) {
		return false
	}
	var pe *ProviderError
	return errors.As(err, &pe)
}

// WithSource fills in the source location of configuration and assertion errors
// that were raised without one.
func WithSource(err error, source string) error {
	var ce *ConfigError
	if errors.As(err, &ce) && ce.Source == "" {
		ce.Source = source
	}
	var ae *AssertionError
	if errors.As(err, &ae) && ae.Source == "" {
		ae.Source = source
	}
	return err
}
