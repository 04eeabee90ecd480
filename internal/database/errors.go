package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrConfirmationCollision means the generated confirmation number already exists
	ErrConfirmationCollision = errors.New("confirmation number already exists")
	// ErrDuplicateIdempotencyKey means another payment attempt with the same key was persisted first
	ErrDuplicateIdempotencyKey = errors.New("payment idempotency key already exists")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
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
