package auth

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a conversation in a state the machine never produces.
var ErrInvariant = errors.New("auth: invariant violation")

// ValidationError rejects a reply without leaving the current step.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code reports a stable identifier for logs.
func (e *ValidationError) Code() string {
	return "VALIDATION_" + e.Field
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
