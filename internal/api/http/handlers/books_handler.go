package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/dto"
	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/service"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// BooksHandler exposes the book catalog.
type BooksHandler struct {
	books *service.BookService
}

// NewBooksHandler constructs handler.
func NewBooksHandler(books *service.BookService) *BooksHandler {
	return &BooksHandler{books: books}
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(c *fiber.Ctx) error {
	input, err := bookInput(c)
	if err != nil {
		return err
	}
	book, err := h.books.Create(c.UserContext(), actorID(c), input)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewBookResponse(*book))
}

// Update handles PUT /api/books/:id.
func (h *BooksHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	input, err := bookInput(c)
	if err != nil {
		return err
	}
	book, err := h.books.Update(c.UserContext(), actorID(c), id, input)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewBookResponse(*book))
}

// Delete handles DELETE /api/books/:id.
func (h *BooksHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.books.Delete(c.UserContext(), actorID(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Get handles GET /api/books/:id.
func (h *BooksHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	book, err := h.books.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewBookResponse(*book))
}

// GetByTitle handles GET /api/books/title/:title.
func (h *BooksHandler) GetByTitle(c *fiber.Ctx) error {
	book, err := h.books.GetByTitle(c.UserContext(), c.Params("title"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewBookResponse(*book))
}

// List handles GET /api/books.
func (h *BooksHandler) List(c *fiber.Ctx) error {
	return h.respond(c)(h.books.All(c.UserContext()))
}

// ByAuthor handles GET /api/books/author/:authorId.
func (h *BooksHandler) ByAuthor(c *fiber.Ctx) error {
	id, err := idParam(c, "authorId")
	if err != nil {
		return err
	}
	return h.respond(c)(h.books.ByAuthor(c.UserContext(), id))
}

// ByCategory handles GET /api/books/category/:categoryId.
func (h *BooksHandler) ByCategory(c *fiber.Ctx) error {
	id, err := idParam(c, "categoryId")
	if err != nil {
		return err
	}
	return h.respond(c)(h.books.ByCategory(c.UserContext(), id))
}

// ByReleaseYear handles GET /api/books/release-year/:year.
func (h *BooksHandler) ByReleaseYear(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return apperrors.NewValidationError("invalid path parameter", map[string]any{"year": "must be an integer"})
	}
	return h.respond(c)(h.books.ByReleaseYear(c.UserContext(), year))
}

// Borrowed handles GET /api/books/borrowed.
func (h *BooksHandler) Borrowed(c *fiber.Ctx) error {
	return h.respond(c)(h.books.Borrowed(c.UserContext()))
}

// Available handles GET /api/books/available.
func (h *BooksHandler) Available(c *fiber.Ctx) error {
	return h.respond(c)(h.books.Available(c.UserContext()))
}

// Search handles GET /api/books/search.
func (h *BooksHandler) Search(c *fiber.Ctx) error {
	query := dto.BookSearchQuery{
		Title:        c.Query("title"),
		AuthorName:   c.Query("author_name"),
		CategoryName: c.Query("category_name"),
	}
	if raw := strings.TrimSpace(c.Query("release_year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid query", map[string]any{"release_year": "must be an integer"})
		}
		query.ReleaseYear = &year
	}
	if err := dto.Validate(query); err != nil {
		return err
	}

	return h.respond(c)(h.books.Search(c.UserContext(), domain.BookSearch{
		Title:        query.Title,
		AuthorName:   query.AuthorName,
		CategoryName: query.CategoryName,
		ReleaseYear:  query.ReleaseYear,
	}))
}

func (h *BooksHandler) respond(c *fiber.Ctx) func([]domain.Book, error) error {
	return func(books []domain.Book, err error) error {
		if err != nil {
			return err
		}
		return data(c, http.StatusOK, dto.NewBookList(books))
	}
}

func bookInput(c *fiber.Ctx) (service.BookInput, error) {
	var req dto.BookRequest
	if err := parseBody(c, &req); err != nil {
		return service.BookInput{}, err
	}
	return service.BookInput{
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		CategoryID:  req.CategoryID,
		ReleaseYear: *req.ReleaseYear,
	}, nil
}

func actorID(c *fiber.Ctx) string {
	if id, ok := auth.IdentityFromContext(c); ok {
		return id.Subject
	}
	return ""
}
