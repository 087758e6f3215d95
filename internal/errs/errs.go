// Package errs classifies the failures the reprocessing engine can raise.
//
// Every failure carries a Kind that tells the step loop how far it
// propagates: configuration and composition problems found while loading
// are fatal before any depletion work starts, while evaluation, range and
// division problems found during a step abort only the material being
// reprocessed.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a coarse classification of an engine failure.
type Kind string

const (
	KindConfig      Kind = "config"
	KindComposition Kind = "composition"
	KindEvaluation  Kind = "evaluation"
	KindDivision    Kind = "division"
	KindRange       Kind = "range"
)

// Sentinel errors, one per Kind, for errors.Is matching.
var (
	ErrConfig      = errors.New("invalid reprocessing configuration")
	ErrComposition = errors.New("invalid composition")
	ErrEvaluation  = errors.New("efficiency evaluation failed")
	ErrDivision    = errors.New("division by zero")
	ErrRange       = errors.New("value out of range")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindComposition:
		return ErrComposition
	case KindEvaluation:
		return ErrEvaluation
	case KindDivision:
		return ErrDivision
	case KindRange:
		return ErrRange
	default:
		return nil
	}
}

// Error wraps an underlying cause with the operation and subject (unit,
// material or feed name) it was raised for.
type Error struct {
	Kind    Kind
	Op      string
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := e.Op
	if e.Subject != "" {
		base += fmt.Sprintf(" %s", e.Subject)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return fmt.Sprintf("%s: %s", base, e.Kind.sentinel())
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the Kind sentinel so callers can write errors.Is(err, ErrConfig).
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target != nil && target == e.Kind.sentinel()
}

// New builds a classified error from a formatted message.
func New(kind Kind, op, subject, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err stays nil.
func Wrap(kind Kind, op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	s := kind.sentinel()
	return s != nil && errors.Is(err, s)
}

// IsFatal reports whether err must abort before any step work begins.
// Configuration and composition failures are fatal; per-unit evaluation,
// range and division failures only abort the affected material.
func IsFatal(err error) bool {
	return IsKind(err, KindConfig) || IsKind(err, KindComposition)
}
