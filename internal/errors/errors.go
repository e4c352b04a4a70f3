package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/constancia/internal/logger"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is
	ErrValidation = stderrors.New("validation failed")
	// ErrNotFound matches any *NotFoundError via errors.Is
	ErrNotFound = stderrors.New("not found")
	// ErrPersistence matches any *PersistenceError via errors.Is
	ErrPersistence = stderrors.New("persistence failure")
	// ErrMalformed matches any *MalformedDataError via errors.Is
	ErrMalformed = stderrors.New("malformed stored data")
)

// ValidationError is returned when caller input is rejected. State is unchanged.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError is returned when an id (or a name, for lookups by name) is
// absent from its store.
type NotFoundError struct {
	Kind string
	ID   int64
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a gateway load/save failure.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// MalformedDataError is returned when stored data does not parse or has the wrong shape.
type MalformedDataError struct {
	Key string
	Err error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data under %s: %v", e.Key, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

func (e *MalformedDataError) Is(target error) bool { return target == ErrMalformed }

// Validation builds a *ValidationError
func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// NotFound builds a *NotFoundError
func NotFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsRecoverable reports whether err is a load-boundary error the application
// degrades from instead of failing.
func IsRecoverable(err error) bool {
	return stderrors.Is(err, ErrPersistence) || stderrors.Is(err, ErrMalformed)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
