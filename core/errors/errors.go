package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindExistence
	KindState
	KindValidation
	KindBalance
	KindTimelock
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindExistence:
		return "existence"
	case KindState:
		return "state"
	case KindValidation:
		return "validation"
	case KindBalance:
		return "balance"
	case KindTimelock:
		return "timelock"
	default:
		return "unknown"
	}
}

// Code is a named failure condition. Codes are compared by identity, so each
// package declares its own as package-level sentinels.
type Code struct {
	kind Kind
	name string
}

// NewCode declares a failure condition of the given kind.
func NewCode(kind Kind, name string) *Code {
	return &Code{kind: kind, name: name}
}

func (c *Code) Error() string { return c.name }

// Kind returns the classification of the code.
func (c *Code) Kind() Kind { return c.kind }

// Error attaches the entity and id that triggered a failure to its code.
type Error struct {
	Code   *Code
	Entity string
	ID     uint64
}

// With wraps code with the offending entity and id.
func With(code *Code, entity string, id uint64) error {
	return &Error{Code: code, Entity: entity, ID: id}
}

func (e *Error) Error() string {
	if e.Entity == "" {
		return e.Code.Error()
	}
	return fmt.Sprintf("%s (%s %d)", e.Code.Error(), e.Entity, e.ID)
}

func (e *Error) Unwrap() error { return e.Code }

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var code *Code
	if stderrors.As(err, &code) {
		return code.kind
	}
	return KindUnknown
}

// IDOf returns the entity id attached to err, if any.
func IDOf(err error) (string, uint64, bool) {
	var detailed *Error
	if stderrors.As(err, &detailed) && detailed.Entity != "" {
		return detailed.Entity, detailed.ID, true
	}
	return "", 0, false
}
