package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed input. Surfaced before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// SafetyDeniedError reports that the safety gate refused a destructive
// operation. Surfaced before any side effect.
type SafetyDeniedError struct {
	Reason   string
	Blocking []string
}

func (e *SafetyDeniedError) Error() string {
	if len(e.Blocking) == 0 {
		return fmt.Sprintf("operation denied: %s", e.Reason)
	}
	return fmt.Sprintf("operation denied: %s (blocked by: %s)", e.Reason, strings.Join(e.Blocking, ", "))
}

// LockTimeoutError reports that an OS-level file lock on the target never
// cleared within the retry budget. Retryable by the caller.
type LockTimeoutError struct {
	Path     string
	Attempts int
	Elapsed  time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("file lock on %s did not clear after %d attempts (%s)", e.Path, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// IntegrityError reports a checksum or structure mismatch. Triggers rollback
// when raised mid-swap.
type IntegrityError struct {
	Path   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: %s", e.Path, e.Reason)
}

// ConcurrentOperationError reports that a replacement is already running for
// the same database type.
type ConcurrentOperationError struct {
	Type DatabaseType
}

func (e *ConcurrentOperationError) Error() string {
	return fmt.Sprintf("a replacement operation is already in progress for %s", e.Type)
}

// UnexpectedError wraps any failure outside the taxonomy. Always triggers a
// best-effort rollback.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure during %s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrBackupNotFound   = errors.New("backup record not found")
	ErrDuplicateProfile = errors.New("profile id already registered")
	ErrDuplicatePath    = errors.New("file path already bound to another profile")
	ErrProfileActive    = errors.New("profile is active")
)
