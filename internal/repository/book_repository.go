package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// BookFilter narrows a book listing. Nil fields are ignored.
type BookFilter struct {
	AuthorID    *int64
	CategoryID  *int64
	ReleaseYear *int
	Borrowed    *bool
}

// BookRepository encapsulates book persistence.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	GetByTitle(ctx context.Context, title string) (*domain.Book, error)
	List(ctx context.Context, filter BookFilter) ([]domain.Book, error)
	Search(ctx context.Context, search domain.BookSearch) ([]domain.Book, error)
}

type bookRepository struct {
	db DB
}

// NewBookRepository instantiates repository.
func NewBookRepository(db DB) BookRepository {
	return &bookRepository{db: db}
}

const bookSelect = `
        SELECT b.id, b.title, b.author_id, a.name, b.category_id, c.name, b.release_year, b.is_borrowed
        FROM books b
        JOIN authors a ON a.id = b.author_id
        JOIN categories c ON c.id = b.category_id`

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	const query = `
        INSERT INTO books (title, author_id, category_id, release_year, is_borrowed)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		book.Title,
		book.AuthorID,
		book.CategoryID,
		book.ReleaseYear,
		book.Borrowed,
	).Scan(&book.ID)
	return translate(err)
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	const query = `
        UPDATE books SET title=$1, author_id=$2, category_id=$3, release_year=$4
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		book.Title,
		book.AuthorID,
		book.CategoryID,
		book.ReleaseYear,
		book.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	return scanBook(r.db.QueryRow(ctx, bookSelect+` WHERE b.id=$1`, id))
}

func (r *bookRepository) GetByTitle(ctx context.Context, title string) (*domain.Book, error) {
	return scanBook(r.db.QueryRow(ctx, bookSelect+` WHERE b.title=$1`, title))
}

func (r *bookRepository) List(ctx context.Context, filter BookFilter) ([]domain.Book, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		clauses = append(clauses, fmt.Sprintf("b.author_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("b.category_id=$%d", len(args)))
	}
	if filter.ReleaseYear != nil {
		args = append(args, *filter.ReleaseYear)
		clauses = append(clauses, fmt.Sprintf("b.release_year=$%d", len(args)))
	}
	if filter.Borrowed != nil {
		args = append(args, *filter.Borrowed)
		clauses = append(clauses, fmt.Sprintf("b.is_borrowed=$%d", len(args)))
	}

	return r.query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY b.id`, bookSelect, strings.Join(clauses, " AND ")), args...)
}

func (r *bookRepository) Search(ctx context.Context, search domain.BookSearch) ([]domain.Book, error) {
	clauses := []string{"1=1"}
	args := []any{}

	like := func(column, term string) {
		if term = strings.TrimSpace(term); term == "" {
			return
		}
		args = append(args, "%"+term+"%")
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	like("b.title", search.Title)
	like("a.name", search.AuthorName)
	like("c.name", search.CategoryName)
	if search.ReleaseYear != nil {
		args = append(args, *search.ReleaseYear)
		clauses = append(clauses, fmt.Sprintf("b.release_year=$%d", len(args)))
	}

	return r.query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY b.title`, bookSelect, strings.Join(clauses, " AND ")), args...)
}

func (r *bookRepository) query(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *book)
	}
	return result, rows.Err()
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var book domain.Book
	if err := row.Scan(
		&book.ID,
		&book.Title,
		&book.AuthorID,
		&book.AuthorName,
		&book.CategoryID,
		&book.CategoryName,
		&book.ReleaseYear,
		&book.Borrowed,
	); err != nil {
		return nil, err
	}
	return &book, nil
}
