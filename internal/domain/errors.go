package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrUnauthorized = errors.New("domain: unauthorized")
	ErrForbidden    = errors.New("domain: forbidden")
	ErrValidation   = errors.New("domain: validation failed")
)

// DeniedError is a permission denial naming the dimension that caused it.
// The message never includes the contents of the policy, only the offending
// dimension and value.
type DeniedError struct {
	Dimension string
	Value     string
}

func (e *DeniedError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("access denied: %s is restricted for this key", e.Dimension)
	}
	return fmt.Sprintf("access denied: %s %q is not permitted for this key", e.Dimension, e.Value)
}

func (e *DeniedError) Unwrap() error { return ErrForbidden }

// UnknownColumnError reports requested columns that are not in the registry.
type UnknownColumnError struct {
	Dataset string
	Unknown []string
	Valid   []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown columns for dataset %q: %s (valid: %s)",
		e.Dataset, strings.Join(e.Unknown, ", "), strings.Join(e.Valid, ", "))
}

func (e *UnknownColumnError) Unwrap() error { return ErrValidation }

// UnknownScopeError reports a scope name that is not registered.
type UnknownScopeError struct {
	Dataset string
	Scope   string
	Valid   []string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("unknown scope %q for dataset %q (valid: %s)",
		e.Scope, e.Dataset, strings.Join(e.Valid, ", "))
}

func (e *UnknownScopeError) Unwrap() error { return ErrValidation }

// DataError is an engine or I/O failure during query execution. Artifact
// identifies the file so operators can locate the fault; it is logged, never
// returned to the client.
type DataError struct {
	Artifact string
	Err      error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error on %s: %v", e.Artifact, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
