package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "queue_entries_open_checkin_idx"}
	if !IsUniqueViolation(dup) {
		t.Fatal("23505 should be a unique violation")
	}
	// A concurrent check-in for the same appointment surfaces wrapped; the
	// handler relies on unwrapping to answer 409 instead of 500.
	if !IsUniqueViolation(fmt.Errorf("insert entry: %w", dup)) {
		t.Fatal("wrapped 23505 should be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain error")) {
		t.Fatal("non-pg error is not a unique violation")
	}
}

func TestIsSerializationFailure(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		if !IsSerializationFailure(&pgconn.PgError{Code: code}) {
			t.Fatalf("%s should be a serialization failure", code)
		}
	}
	if IsSerializationFailure(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not a serialization failure")
	}
	if IsSerializationFailure(nil) {
		t.Fatal("nil is not a serialization failure")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Fatal("pgx.ErrNoRows should be not-found")
	}
	if !IsNotFound(fmt.Errorf("load entry: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped pgx.ErrNoRows should be not-found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("arbitrary error is not not-found")
	}
}
