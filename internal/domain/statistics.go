package domain

// StatisticsTopN bounds each ranking in a statistics snapshot.
const StatisticsTopN = 10

// CategoryStatistics ranks a category by borrows.
type CategoryStatistics struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	BookCount    int64  `json:"book_count"`
	BorrowCount  int64  `json:"borrow_count"`
}

// AuthorStatistics ranks an author by borrows.
type AuthorStatistics struct {
	AuthorID    int64  `json:"author_id"`
	AuthorName  string `json:"author_name"`
	BookCount   int64  `json:"book_count"`
	BorrowCount int64  `json:"borrow_count"`
}

// BookStatistics ranks a book by borrows.
type BookStatistics struct {
	BookID      int64  `json:"book_id"`
	BookTitle   string `json:"book_title"`
	AuthorName  string `json:"author_name"`
	BorrowCount int64  `json:"borrow_count"`
}

// Statistics is an aggregate snapshot of the library. It is serialized
// as-is into the cache and the admin endpoint.
type Statistics struct {
	TotalBooks          int64                `json:"total_books"`
	TotalUsers          int64                `json:"total_users"`
	TotalBorrowedBooks  int64                `json:"total_borrowed_books"`
	TotalAvailableBooks int64                `json:"total_available_books"`
	TotalBorrowRecords  int64                `json:"total_borrow_records"`
	TotalActiveBorrows  int64                `json:"total_active_borrows"`
	PopularCategories   []CategoryStatistics `json:"popular_categories"`
	PopularAuthors      []AuthorStatistics   `json:"popular_authors"`
	MostBorrowedBooks   []BookStatistics     `json:"most_borrowed_books"`
}
