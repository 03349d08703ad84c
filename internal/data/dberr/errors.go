package dberr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Class groups storage failures by how callers should react to them.
type Class string

const (
	ClassNotFound  Class = "not_found"
	ClassConflict  Class = "conflict"
	ClassRetryable Class = "retryable"
	ClassInternal  Class = "internal"
)

type Error struct {
	Class Class
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("%v (%s)", e.Cause, e.Class)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Cause, e.Class)
}

func (e *Error) Unwrap() error { return e.Cause }

// Classify wraps err with the class derived from its driver-level cause.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Class: classOf(err), Op: strings.TrimSpace(op), Cause: err}
}

func classOf(err error) Class {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ClassNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ClassConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ClassRetryable
	case errors.Is(err, context.Canceled):
		return ClassInternal
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return ClassConflict // unique_violation
		case "40001", "40P01", "55P03", "57P01", "53300":
			return ClassRetryable // serialization, deadlock, lock_not_available, admin_shutdown, too_many_connections
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return ClassRetryable // connection exceptions
		}
		return ClassInternal
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return ClassRetryable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return ClassConflict
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"):
		return ClassRetryable
	default:
		return ClassInternal
	}
}

func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return classOf(err)
}

func IsRetryable(err error) bool { return ClassOf(err) == ClassRetryable }
func IsNotFound(err error) bool  { return ClassOf(err) == ClassNotFound }
