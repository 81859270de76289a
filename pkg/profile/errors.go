package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownVariant        = errors.New("unknown variant")
	ErrPinConflict           = errors.New("pin conflict")
	ErrCountMismatch         = errors.New("count mismatch")
	ErrOutOfRange            = errors.New("out of range")
	ErrMissingSection        = errors.New("missing section")
	ErrInvalidVersion        = errors.New("invalid version")
	ErrConflictingDefinition = errors.New("conflicting definition")
	ErrDuplicate             = errors.New("duplicate entry")
	ErrUnsupportedChip       = errors.New("unsupported chip")
	ErrUnknownFeature        = errors.New("unknown feature")
)

// PinConflictError reports a physical pin claimed by more than one role.
type PinConflictError struct {
	Pin   int
	Roles []string
}

func (e *PinConflictError) Error() string {
	return fmt.Sprintf("pin conflict: GPIO%d claimed by %s", e.Pin, strings.Join(e.Roles, ", "))
}

func (e *PinConflictError) Unwrap() error { return ErrPinConflict }

// CountMismatchError reports a declared count that disagrees with its list.
type CountMismatchError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("count mismatch: %s has %d entries, expected %d", e.Field, e.Actual, e.Expected)
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }

// OutOfRangeError reports a value outside [Min, Max].
type OutOfRangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	if e.Max < e.Min {
		return fmt.Sprintf("out of range: %s %d (none available)", e.Field, e.Value)
	}
	return fmt.Sprintf("out of range: %s %d not in [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// ConflictingDefinitionError reports two different profiles defined under one variant.
type ConflictingDefinitionError struct {
	Variant Variant
	Fields  []string
}

func (e *ConflictingDefinitionError) Error() string {
	return fmt.Sprintf("conflicting definition of %s: differs in %s", e.Variant, strings.Join(e.Fields, ", "))
}

func (e *ConflictingDefinitionError) Unwrap() error { return ErrConflictingDefinition }
