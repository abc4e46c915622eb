package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// AuthorService manages authors.
type AuthorService struct {
	authors repository.AuthorRepository
}

// NewAuthorService builds the service.
func NewAuthorService(authors repository.AuthorRepository) *AuthorService {
	return &AuthorService{authors: authors}
}

// Create adds an author with a unique name.
func (s *AuthorService) Create(ctx context.Context, name string) (*domain.Author, error) {
	name = strings.TrimSpace(name)
	conflict := apperrors.NewConflict("Author with the same name already exists", map[string]any{"name": name})

	if _, err := s.authors.GetByName(ctx, name); err == nil {
		return nil, conflict
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	author := &domain.Author{Name: name}
	if err := s.authors.Create(ctx, author); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict
		}
		return nil, err
	}
	return author, nil
}

// Get fetches an author by id.
func (s *AuthorService) Get(ctx context.Context, id int64) (*domain.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Author", map[string]any{"id": id})
	}
	return author, err
}

// List returns all authors ordered by name.
func (s *AuthorService) List(ctx context.Context) ([]domain.Author, error) {
	return s.authors.List(ctx)
}

// CategoryService manages categories.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService builds the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Create adds a category with a unique name.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	conflict := apperrors.NewConflict("Category with the same name already exists", map[string]any{"name": name})

	if _, err := s.categories.GetByName(ctx, name); err == nil {
		return nil, conflict
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	category := &domain.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict
		}
		return nil, err
	}
	return category, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Category", map[string]any{"id": id})
	}
	return category, err
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}
