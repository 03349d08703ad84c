package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestClassifyPgCodes(t *testing.T) {
	cases := map[string]Class{
		"23505": ClassConflict,
		"40001": ClassRetryable,
		"40P01": ClassRetryable,
		"08006": ClassRetryable,
		"23503": ClassInternal,
	}
	for code, want := range cases {
		err := Classify("op", &pgconn.PgError{Code: code})
		if got := ClassOf(err); got != want {
			t.Fatalf("sqlstate %s: want=%s got=%s", code, want, got)
		}
	}
}

func TestClassifyGormAndContext(t *testing.T) {
	if !IsNotFound(Classify("get", gorm.ErrRecordNotFound)) {
		t.Fatalf("record not found should classify as not_found")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Fatalf("cancellation should not be retried")
	}
	if !IsRetryable(errors.New("database is locked")) {
		t.Fatalf("sqlite busy should be retryable")
	}
}

func TestClassifyKeepsExistingClass(t *testing.T) {
	in := &Error{Class: ClassConflict, Op: "inner", Cause: errors.New("x")}
	if out := Classify("outer", in); out != error(in) {
		t.Fatalf("expected passthrough of classified error")
	}
}
