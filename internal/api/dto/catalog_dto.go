package dto

import "github.com/spec-kit/library-service/internal/domain"

// NameRequest creates an author or a category.
type NameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AuthorResponse response.
type AuthorResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryResponse response.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookRequest creates or replaces a book.
type BookRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	AuthorID    int64  `json:"author_id" validate:"required,gt=0"`
	CategoryID  int64  `json:"category_id" validate:"required,gt=0"`
	ReleaseYear *int   `json:"release_year" validate:"required,min=0,max=2026"`
}

// BookResponse response.
type BookResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	AuthorID     int64  `json:"author_id"`
	AuthorName   string `json:"author_name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	ReleaseYear  int    `json:"release_year"`
	Borrowed     bool   `json:"is_borrowed"`
}

// BookSearchQuery captures the query string of GET /api/books/search.
type BookSearchQuery struct {
	Title        string `query:"title" validate:"max=300"`
	AuthorName   string `query:"author_name" validate:"max=200"`
	CategoryName string `query:"category_name" validate:"max=200"`
	ReleaseYear  *int   `query:"release_year" validate:"omitempty,min=0,max=2026"`
}

// NewAuthorResponse maps an author.
func NewAuthorResponse(a domain.Author) AuthorResponse {
	return AuthorResponse{ID: a.ID, Name: a.Name}
}

// NewCategoryResponse maps a category.
func NewCategoryResponse(c domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

// NewBookResponse maps a book.
func NewBookResponse(b domain.Book) BookResponse {
	return BookResponse{
		ID:           b.ID,
		Title:        b.Title,
		AuthorID:     b.AuthorID,
		AuthorName:   b.AuthorName,
		CategoryID:   b.CategoryID,
		CategoryName: b.CategoryName,
		ReleaseYear:  b.ReleaseYear,
		Borrowed:     b.Borrowed,
	}
}

// NewBookList maps a slice of books, never returning nil.
func NewBookList(books []domain.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, NewBookResponse(b))
	}
	return out
}
