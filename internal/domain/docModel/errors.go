package docModel

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// ErrUnsupportedFormat - the document cannot be extracted, no retry path.
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	// ErrCapability - an ML capability call failed, likely transient.
	ErrCapability ErrorKind = "capability_error"
	// ErrStore - an external store call failed, likely transient.
	ErrStore ErrorKind = "store_error"
	// ErrValidation - a pipeline invariant was violated, needs investigation.
	ErrValidation ErrorKind = "validation_error"
	// ErrBudgetExceeded - query context too large after truncation attempts.
	ErrBudgetExceeded ErrorKind = "budget_exceeded"
)

type KindError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

func UnsupportedFormatErr(format string) error {
	return &KindError{Kind: ErrUnsupportedFormat, Err: fmt.Errorf("unsupported format %q", format)}
}

func CapabilityErr(op string, err error) error {
	return &KindError{Kind: ErrCapability, Err: fmt.Errorf("%s: %w", op, err)}
}

func StoreErr(op string, err error) error {
	return &KindError{Kind: ErrStore, Err: fmt.Errorf("%s: %w", op, err)}
}

func ValidationErr(format string, args ...any) error {
	return &KindError{Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

func BudgetExceededErr(format string, args ...any) error {
	return &KindError{Kind: ErrBudgetExceeded, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies an error. Anything untagged counts as a capability-style
// transient so a blind retry stays safe.
func KindOf(err error) ErrorKind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ErrCapability
}

// Retryable reports whether an operator retry is a sensible response to the
// error. Unsupported formats and invariant violations are not.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrCapability, ErrStore:
		return true
	}
	return false
}
