package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports a document rejected by the current schema.
// Allowed is populated only for enum violations.
type ValidationError struct {
	Key     string
	Value   any
	Allowed []string
}

func (e *ValidationError) Error() string {
	if e.Allowed != nil {
		return fmt.Sprintf("invalid enum for %s: %v. allowed: %v", e.Key, e.Value, e.Allowed)
	}
	return fmt.Sprintf("missing required field: %s", e.Key)
}

func missingRequired(key string) *ValidationError {
	return &ValidationError{Key: key}
}

func invalidEnum(key string, value any, allowed []string) *ValidationError {
	if allowed == nil {
		allowed = []string{}
	}
	return &ValidationError{Key: key, Value: value, Allowed: allowed}
}
