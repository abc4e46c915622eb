package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// BorrowFilter narrows a borrow record listing. Nil fields are ignored.
type BorrowFilter struct {
	UserID   *int64
	BookID   *int64
	Returned *bool
}

// BorrowRepository persists loans and keeps the book availability flag in step.
type BorrowRepository interface {
	// Borrow lends a book inside one transaction. It fails with
	// ErrBorrowLimit, ErrBookUnavailable, ErrMissingReference for an unknown
	// user, or pgx.ErrNoRows for an unknown book.
	Borrow(ctx context.Context, userID, bookID int64, limit int) (*domain.BorrowRecord, error)
	// Return closes a record and frees its book. It fails with
	// ErrAlreadyReturned or pgx.ErrNoRows.
	Return(ctx context.Context, recordID int64) (*domain.BorrowRecord, error)
	GetByID(ctx context.Context, id int64) (*domain.BorrowRecord, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
	List(ctx context.Context, filter BorrowFilter) ([]domain.BorrowRecord, error)
}

type borrowRepository struct {
	db DB
}

// NewBorrowRepository instantiates repository.
func NewBorrowRepository(db DB) BorrowRepository {
	return &borrowRepository{db: db}
}

const borrowSelect = `
        SELECT r.id, r.book_id, b.title, r.user_id, u.name, r.borrow_date, r.return_date, r.is_returned
        FROM borrow_records r
        JOIN books b ON b.id = r.book_id
        JOIN users u ON u.id = r.user_id`

func (r *borrowRepository) Borrow(ctx context.Context, userID, bookID int64, limit int) (*domain.BorrowRecord, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Locking the user row serializes concurrent borrows by the same user.
	var userName string
	err = tx.QueryRow(ctx, `SELECT name FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&userName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lock user %d: %w", userID, ErrMissingReference)
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	var active int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrow_records WHERE user_id=$1 AND NOT is_returned`, userID,
	).Scan(&active); err != nil {
		return nil, fmt.Errorf("count active borrows: %w", err)
	}
	if active >= limit {
		return nil, ErrBorrowLimit
	}

	var title string
	err = tx.QueryRow(ctx,
		`UPDATE books SET is_borrowed=TRUE WHERE id=$1 AND NOT is_borrowed RETURNING title`, bookID,
	).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id=$1)`, bookID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check book: %w", err)
		}
		if !exists {
			return nil, pgx.ErrNoRows
		}
		return nil, ErrBookUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("mark book borrowed: %w", err)
	}

	record := domain.BorrowRecord{BookID: bookID, BookTitle: title, UserID: userID, UserName: userName}
	if err := tx.QueryRow(ctx,
		`INSERT INTO borrow_records (book_id, user_id) VALUES ($1, $2) RETURNING id, borrow_date`,
		bookID, userID,
	).Scan(&record.ID, &record.BorrowDate); err != nil {
		return nil, fmt.Errorf("insert borrow record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit borrow: %w", err)
	}
	return &record, nil
}

func (r *borrowRepository) Return(ctx context.Context, recordID int64) (*domain.BorrowRecord, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	record, err := scanBorrow(tx.QueryRow(ctx, borrowSelect+` WHERE r.id=$1 FOR UPDATE OF r`, recordID))
	if err != nil {
		return nil, err
	}
	if record.Returned {
		return nil, ErrAlreadyReturned
	}

	var returnedAt time.Time
	if err := tx.QueryRow(ctx,
		`UPDATE borrow_records SET is_returned=TRUE, return_date=NOW() WHERE id=$1 RETURNING return_date`, recordID,
	).Scan(&returnedAt); err != nil {
		return nil, fmt.Errorf("close borrow record: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE books SET is_borrowed=FALSE WHERE id=$1`, record.BookID); err != nil {
		return nil, fmt.Errorf("free book: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}
	record.Returned = true
	record.ReturnDate = &returnedAt
	return record, nil
}

func (r *borrowRepository) GetByID(ctx context.Context, id int64) (*domain.BorrowRecord, error) {
	return scanBorrow(r.db.QueryRow(ctx, borrowSelect+` WHERE r.id=$1`, id))
}

func (r *borrowRepository) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrow_records WHERE user_id=$1 AND NOT is_returned`, userID,
	).Scan(&count)
	return count, err
}

func (r *borrowRepository) List(ctx context.Context, filter BorrowFilter) ([]domain.BorrowRecord, error) {
	query := borrowSelect + ` WHERE 1=1`
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND r.user_id=$%d", len(args))
	}
	if filter.BookID != nil {
		args = append(args, *filter.BookID)
		query += fmt.Sprintf(" AND r.book_id=$%d", len(args))
	}
	if filter.Returned != nil {
		args = append(args, *filter.Returned)
		query += fmt.Sprintf(" AND r.is_returned=$%d", len(args))
	}
	query += ` ORDER BY r.borrow_date DESC, r.id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.BorrowRecord
	for rows.Next() {
		record, err := scanBorrow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func scanBorrow(row rowScanner) (*domain.BorrowRecord, error) {
	var record domain.BorrowRecord
	if err := row.Scan(
		&record.ID,
		&record.BookID,
		&record.BookTitle,
		&record.UserID,
		&record.UserName,
		&record.BorrowDate,
		&record.ReturnDate,
		&record.Returned,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
