// Package repository implements PostgreSQL persistence. The store is the
// single source of truth: every counter mutation is a conditional UPDATE
// checked via RowsAffected, never an in-process read-modify-write.
package repository

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally narrowed to a specific constraint name.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
