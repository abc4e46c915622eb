package domain

// Author writes books. Names are unique.
type Author struct {
	ID   int64
	Name string
}

// Category groups books. Names are unique.
type Category struct {
	ID   int64
	Name string
}

// Book is a lendable title. Titles are unique.
type Book struct {
	ID           int64
	Title        string
	AuthorID     int64
	AuthorName   string
	CategoryID   int64
	CategoryName string
	ReleaseYear  int
	Borrowed     bool
}

// BookSearch holds optional, case-insensitive search criteria.
type BookSearch struct {
	Title        string
	AuthorName   string
	CategoryName string
	ReleaseYear  *int
}

// Bounds accepted for Book.ReleaseYear.
const (
	MinReleaseYear = 0
	MaxReleaseYear = 2026
)
