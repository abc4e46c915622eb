package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// BookInput carries the writable fields of a book.
type BookInput struct {
	Title       string
	AuthorID    int64
	CategoryID  int64
	ReleaseYear int
}

// BookService manages the catalog of lendable books.
type BookService struct {
	books      repository.BookRepository
	authors    repository.AuthorRepository
	categories repository.CategoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// BookDependencies groups the collaborators of BookService.
type BookDependencies struct {
	Books      repository.BookRepository
	Authors    repository.AuthorRepository
	Categories repository.CategoryRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewBookService builds the service.
func NewBookService(deps BookDependencies) *BookService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{
		books:      deps.Books,
		authors:    deps.Authors,
		categories: deps.Categories,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create adds a book. Titles are unique; author and category must exist.
func (s *BookService) Create(ctx context.Context, actorID string, input BookInput) (*domain.Book, error) {
	book := &domain.Book{Title: strings.TrimSpace(input.Title), ReleaseYear: input.ReleaseYear}
	if err := validateReleaseYear(input.ReleaseYear); err != nil {
		return nil, err
	}
	if err := s.ensureTitleFree(ctx, book.Title, 0); err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, book, input); err != nil {
		return nil, err
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, s.writeError(err, book.Title)
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventBookCreated, actorID, book.ID,
		events.BookChangedPayload{Title: book.Title}))
	return book, nil
}

// Update replaces the writable fields of a book. The borrowed flag is kept.
func (s *BookService) Update(ctx context.Context, actorID string, id int64, input BookInput) (*domain.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateReleaseYear(input.ReleaseYear); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title != book.Title {
		if err := s.ensureTitleFree(ctx, title, id); err != nil {
			return nil, err
		}
	}
	book.Title = title
	book.ReleaseYear = input.ReleaseYear
	if err := s.resolveReferences(ctx, book, input); err != nil {
		return nil, err
	}

	if err := s.books.Update(ctx, book); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Book", map[string]any{"id": id})
		}
		return nil, s.writeError(err, book.Title)
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventBookUpdated, actorID, book.ID,
		events.BookChangedPayload{Title: book.Title}))
	return book, nil
}

// Delete removes a book together with its borrow history.
func (s *BookService) Delete(ctx context.Context, actorID string, id int64) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Book", map[string]any{"id": id})
		}
		return err
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventBookDeleted, actorID, id,
		events.BookChangedPayload{Title: book.Title}))
	return nil
}

// Get fetches a book by id.
func (s *BookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Book", map[string]any{"id": id})
	}
	return book, err
}

// GetByTitle fetches a book by its exact title.
func (s *BookService) GetByTitle(ctx context.Context, title string) (*domain.Book, error) {
	book, err := s.books.GetByTitle(ctx, title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Book", map[string]any{"title": title})
	}
	return book, err
}

// All lists every book.
func (s *BookService) All(ctx context.Context) ([]domain.Book, error) {
	return s.books.List(ctx, repository.BookFilter{})
}

// ByAuthor lists the books of an existing author.
func (s *BookService) ByAuthor(ctx context.Context, authorID int64) ([]domain.Book, error) {
	if _, err := s.authors.GetByID(ctx, authorID); err != nil {
		return nil, notFoundOr(err, "Author", authorID)
	}
	return s.books.List(ctx, repository.BookFilter{AuthorID: &authorID})
}

// ByCategory lists the books of an existing category.
func (s *BookService) ByCategory(ctx context.Context, categoryID int64) ([]domain.Book, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, notFoundOr(err, "Category", categoryID)
	}
	return s.books.List(ctx, repository.BookFilter{CategoryID: &categoryID})
}

// ByReleaseYear lists books released in year.
func (s *BookService) ByReleaseYear(ctx context.Context, year int) ([]domain.Book, error) {
	return s.books.List(ctx, repository.BookFilter{ReleaseYear: &year})
}

// Borrowed lists books currently lent out.
func (s *BookService) Borrowed(ctx context.Context) ([]domain.Book, error) {
	borrowed := true
	return s.books.List(ctx, repository.BookFilter{Borrowed: &borrowed})
}

// Available lists books on the shelf.
func (s *BookService) Available(ctx context.Context) ([]domain.Book, error) {
	borrowed := false
	return s.books.List(ctx, repository.BookFilter{Borrowed: &borrowed})
}

// Search matches books case-insensitively on any combination of criteria.
func (s *BookService) Search(ctx context.Context, search domain.BookSearch) ([]domain.Book, error) {
	return s.books.Search(ctx, search)
}

func (s *BookService) ensureTitleFree(ctx context.Context, title string, selfID int64) error {
	existing, err := s.books.GetByTitle(ctx, title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return apperrors.NewConflict("Book with the same title already exists", map[string]any{"title": title})
}

func (s *BookService) resolveReferences(ctx context.Context, book *domain.Book, input BookInput) error {
	author, err := s.authors.GetByID(ctx, input.AuthorID)
	if err != nil {
		return notFoundOr(err, "Author", input.AuthorID)
	}
	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return notFoundOr(err, "Category", input.CategoryID)
	}
	book.AuthorID, book.AuthorName = author.ID, author.Name
	book.CategoryID, book.CategoryName = category.ID, category.Name
	return nil
}

func (s *BookService) writeError(err error, title string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("Book with the same title already exists", map[string]any{"title": title})
	case errors.Is(err, repository.ErrMissingReference):
		return apperrors.NewNotFound("Author or category", nil)
	}
	return err
}

func validateReleaseYear(year int) error {
	if year < domain.MinReleaseYear || year > domain.MaxReleaseYear {
		return apperrors.NewValidationError("invalid payload", map[string]any{
			"release_year": "must be between " + strconv.Itoa(domain.MinReleaseYear) + " and " + strconv.Itoa(domain.MaxReleaseYear),
		})
	}
	return nil
}

func notFoundOr(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
