package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidReference is returned when a foreign key rejects a write.
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrHasDependents is returned when a delete is blocked by dependent rows.
	ErrHasDependents = errors.New("record has dependents")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapWriteError translates driver constraint errors into repository sentinels.
func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrInvalidReference, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
