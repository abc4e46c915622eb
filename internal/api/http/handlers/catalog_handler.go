package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/dto"
	"github.com/spec-kit/library-service/internal/service"
)

// AuthorsHandler exposes author endpoints.
type AuthorsHandler struct {
	authors *service.AuthorService
}

// NewAuthorsHandler constructs handler.
func NewAuthorsHandler(authors *service.AuthorService) *AuthorsHandler {
	return &AuthorsHandler{authors: authors}
}

// Create handles POST /api/authors.
func (h *AuthorsHandler) Create(c *fiber.Ctx) error {
	var req dto.NameRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	author, err := h.authors.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewAuthorResponse(*author))
}

// Get handles GET /api/authors/:id.
func (h *AuthorsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	author, err := h.authors.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuthorResponse(*author))
}

// List handles GET /api/authors.
func (h *AuthorsHandler) List(c *fiber.Ctx) error {
	authors, err := h.authors.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.AuthorResponse, 0, len(authors))
	for _, a := range authors {
		out = append(out, dto.NewAuthorResponse(a))
	}
	return data(c, http.StatusOK, out)
}

// CategoriesHandler exposes category endpoints.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req dto.NameRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Create(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCategoryResponse(*category))
}

// Get handles GET /api/categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	category, err := h.categories.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCategoryResponse(*category))
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, dto.NewCategoryResponse(cat))
	}
	return data(c, http.StatusOK, out)
}
