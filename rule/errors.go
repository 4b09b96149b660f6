package rule

import (
	"errors"
	"fmt"
)

// Sentinel errors; the typed errors below match them with errors.Is.
var (
	ErrDuplicate            = errors.New("duplicate rule")
	ErrInvalidSpec          = errors.New("invalid selector spec")
	ErrPersistence          = errors.New("persistence failure")
	ErrMessagingUnavailable = errors.New("messaging target unavailable")
	ErrImportFormat         = errors.New("malformed import file")
	ErrNotFound             = errors.New("no such rule")
)

// DuplicateError is returned if an add or rename would violate rule uniqueness.
type DuplicateError struct {
	Spec   string
	Domain string
	Kind   Kind
}

func (e *DuplicateError) Error() string {
	d := e.Domain
	if d == Global {
		d = GlobalGroup
	}
	return fmt.Sprintf("%s rule %q already present for %s", e.Kind, e.Spec, d)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// InvalidSpecError flags an empty or malformed selector spec.
type InvalidSpecError struct {
	Spec string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid selector spec %q", e.Spec)
}

func (e *InvalidSpecError) Is(target error) bool { return target == ErrInvalidSpec }

// PersistenceError wraps a failed read or write of a store channel.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error         { return e.Err }
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err into a PersistenceError, unless it already is one.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// MessagingUnavailableError reports an unreachable companion context.
// It is never fatal.
type MessagingUnavailableError struct {
	Target string
	Err    error
}

func (e *MessagingUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("messaging: %s unreachable", e.Target)
	}
	return fmt.Sprintf("messaging: %s unreachable: %v", e.Target, e.Err)
}

func (e *MessagingUnavailableError) Unwrap() error         { return e.Err }
func (e *MessagingUnavailableError) Is(target error) bool { return target == ErrMessagingUnavailable }

// ImportFormatError reports a malformed import file.
type ImportFormatError struct {
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err == nil {
		return "import: " + e.Reason
	}
	return fmt.Sprintf("import: %s: %v", e.Reason, e.Err)
}

func (e *ImportFormatError) Unwrap() error         { return e.Err }
func (e *ImportFormatError) Is(target error) bool { return target == ErrImportFormat }
