package apperrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation detects duplicate-key errors from postgres or from a
// gorm dialector with TranslateError enabled.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// FromDB maps store errors onto the taxonomy. notFound and conflict are the
// messages used for missing rows and duplicate keys.
func FromDB(err error, notFound, conflict string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(ErrNotFound, notFound, err)
	case IsUniqueViolation(err):
		return Wrap(ErrConflict, conflict, err)
	}
	return fmt.Errorf("database: %w", err)
}
