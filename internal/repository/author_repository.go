package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// AuthorRepository persists authors.
type AuthorRepository interface {
	Create(ctx context.Context, author *domain.Author) error
	GetByID(ctx context.Context, id int64) (*domain.Author, error)
	GetByName(ctx context.Context, name string) (*domain.Author, error)
	List(ctx context.Context) ([]domain.Author, error)
}

type authorRepository struct {
	db DB
}

// NewAuthorRepository returns a Postgres-backed implementation.
func NewAuthorRepository(db DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(ctx context.Context, author *domain.Author) error {
	err := r.db.QueryRow(ctx, `INSERT INTO authors (name) VALUES ($1) RETURNING id`, author.Name).Scan(&author.ID)
	return translate(err)
}

func (r *authorRepository) GetByID(ctx context.Context, id int64) (*domain.Author, error) {
	var author domain.Author
	if err := r.db.QueryRow(ctx, `SELECT id, name FROM authors WHERE id=$1`, id).Scan(&author.ID, &author.Name); err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) GetByName(ctx context.Context, name string) (*domain.Author, error) {
	var author domain.Author
	if err := r.db.QueryRow(ctx, `SELECT id, name FROM authors WHERE name=$1`, name).Scan(&author.ID, &author.Name); err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) List(ctx context.Context) ([]domain.Author, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM authors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Author, error) {
		var author domain.Author
		err := row.Scan(&author.ID, &author.Name)
		return author, err
	})
}
