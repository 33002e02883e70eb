package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, e.g. a duplicate username or a duplicate (user_id, revision_number).
func IsUniqueViolation(err error) bool {
	return hasPgCode(err, pgUniqueViolation)
}

// IsSerializationFailure reports whether err aborted a transaction because
// of a concurrent update.
func IsSerializationFailure(err error) bool {
	return hasPgCode(err, pgSerializationFailure)
}

// IsRetryable reports whether the transaction that produced err can simply
// be run again: serialization failures and deadlocks.
func IsRetryable(err error) bool {
	return hasPgCode(err, pgSerializationFailure) || hasPgCode(err, pgDeadlockDetected)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
