package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// StatisticsRepository aggregates library-wide figures.
type StatisticsRepository interface {
	Load(ctx context.Context, topN int) (*domain.Statistics, error)
}

type statisticsRepository struct {
	db DB
}

// NewStatisticsRepository returns a Postgres-backed implementation.
func NewStatisticsRepository(db DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) Load(ctx context.Context, topN int) (*domain.Statistics, error) {
	const totals = `
        SELECT
            (SELECT COUNT(*) FROM books),
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM books WHERE is_borrowed),
            (SELECT COUNT(*) FROM books WHERE NOT is_borrowed),
            (SELECT COUNT(*) FROM borrow_records),
            (SELECT COUNT(*) FROM borrow_records WHERE NOT is_returned)`

	stats := domain.Statistics{}
	if err := r.db.QueryRow(ctx, totals).Scan(
		&stats.TotalBooks,
		&stats.TotalUsers,
		&stats.TotalBorrowedBooks,
		&stats.TotalAvailableBooks,
		&stats.TotalBorrowRecords,
		&stats.TotalActiveBorrows,
	); err != nil {
		return nil, fmt.Errorf("load totals: %w", err)
	}

	const categories = `
        SELECT c.id, c.name, COUNT(DISTINCT b.id), COUNT(r.id)
        FROM categories c
        LEFT JOIN books b ON b.category_id = c.id
        LEFT JOIN borrow_records r ON r.book_id = b.id
        GROUP BY c.id, c.name
        ORDER BY COUNT(r.id) DESC, c.name
        LIMIT $1`
	rows, err := r.db.Query(ctx, categories, topN)
	if err != nil {
		return nil, fmt.Errorf("load popular categories: %w", err)
	}
	stats.PopularCategories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryStatistics, error) {
		var s domain.CategoryStatistics
		err := row.Scan(&s.CategoryID, &s.CategoryName, &s.BookCount, &s.BorrowCount)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan popular categories: %w", err)
	}

	const authors = `
        SELECT a.id, a.name, COUNT(DISTINCT b.id), COUNT(r.id)
        FROM authors a
        LEFT JOIN books b ON b.author_id = a.id
        LEFT JOIN borrow_records r ON r.book_id = b.id
        GROUP BY a.id, a.name
        ORDER BY COUNT(r.id) DESC, a.name
        LIMIT $1`
	rows, err = r.db.Query(ctx, authors, topN)
	if err != nil {
		return nil, fmt.Errorf("load popular authors: %w", err)
	}
	stats.PopularAuthors, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuthorStatistics, error) {
		var s domain.AuthorStatistics
		err := row.Scan(&s.AuthorID, &s.AuthorName, &s.BookCount, &s.BorrowCount)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan popular authors: %w", err)
	}

	const books = `
        SELECT b.id, b.title, a.name, COUNT(r.id)
        FROM books b
        JOIN authors a ON a.id = b.author_id
        JOIN borrow_records r ON r.book_id = b.id
        GROUP BY b.id, b.title, a.name
        ORDER BY COUNT(r.id) DESC, b.title
        LIMIT $1`
	rows, err = r.db.Query(ctx, books, topN)
	if err != nil {
		return nil, fmt.Errorf("load most borrowed books: %w", err)
	}
	stats.MostBorrowedBooks, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BookStatistics, error) {
		var s domain.BookStatistics
		err := row.Scan(&s.BookID, &s.BookTitle, &s.AuthorName, &s.BorrowCount)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan most borrowed books: %w", err)
	}

	return &stats, nil
}
