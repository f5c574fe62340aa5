package provisioning

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError is a request that was rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError means the identity could not be created. Nothing was written.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "Auth error: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ProfileError means the profile insert failed after the identity existed.
// Rollback is set when the compensating delete also failed.
type ProfileError struct {
	Err      error
	Rollback *RollbackError
}

func (e *ProfileError) Error() string {
	return "Profile error: " + storeMessage(e.Err)
}

func (e *ProfileError) Unwrap() []error {
	if e.Rollback != nil {
		return []error{e.Err, e.Rollback}
	}
	return []error{e.Err}
}

// RollbackError means the identity created for a failed provisioning could
// not be deleted inline. Enqueued reports whether the sweeper took it over.
type RollbackError struct {
	IdentityID string
	Err        error
	Enqueued   bool
}

func (e *RollbackError) Error() string {
	return "Rollback error: identity " + e.IdentityID + ": " + e.Err.Error()
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// storeMessage returns the database's own message when there is one so
// callers see the constraint that failed rather than our wrapping.
func storeMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}
