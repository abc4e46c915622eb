package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrMissingReference reports a foreign key pointing nowhere.
	ErrMissingReference = errors.New("referenced record does not exist")
	// ErrBookUnavailable is returned when borrowing a book that is already lent out.
	ErrBookUnavailable = errors.New("book is already borrowed")
	// ErrBorrowLimit is returned when the user already holds the maximum number of books.
	ErrBorrowLimit = errors.New("borrow limit reached")
	// ErrAlreadyReturned is returned when returning a closed borrow record.
	ErrAlreadyReturned = errors.New("borrow record already returned")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrMissingReference
		}
	}
	return err
}
