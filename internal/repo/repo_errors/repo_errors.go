package repo_errors

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("state conflict")
	// ErrMissingReference is a foreign key that points at a deleted row.
	ErrMissingReference = errors.New("referenced row does not exist")
	// ErrCatalogFrozen rejects catalog writes on an awarded tender.
	ErrCatalogFrozen = errors.New("catalog is frozen")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Map translates driver errors into repository sentinels. Unknown errors
// are returned unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return ErrAlreadyExists
		case foreignKeyViolation:
			return ErrMissingReference
		}
	}

	return err
}
