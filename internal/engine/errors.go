// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ValidationError rejects a move that is illegal for the current state:
// not your turn, card not in hand, asked a teammate, and so on. It is an
// expected outcome and is surfaced to the client as the rejection reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing game, player, or card.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError for the named entity.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError marks inconsistent input, e.g. a claim whose declared map
// contradicts team membership constraints.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...interface{}) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// InvariantViolation signals internal corruption: a card in two hands, an
// empty candidate set with no known owner. It is unreachable given correct
// executor logic and marks a bug, not a user error. The host logs it loudly
// and keeps serving other games.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Detail
}

// Invariantf builds an InvariantViolation from a format string.
func Invariantf(format string, args ...interface{}) error {
	return &InvariantViolation{Detail: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is an expected rejection (validation,
// not-found, or conflict) rather than an internal failure.
func IsRejection(err error) bool {
	var ve *ValidationError
	var nf *NotFoundError
	var ce *ConflictError
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce)
}

// IsInvariant reports whether err is an internal invariant violation.
func IsInvariant(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
