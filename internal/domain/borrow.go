package domain

import "time"

// MaxActiveBorrows caps how many books a user may hold at once.
const MaxActiveBorrows = 5

// BorrowRecord tracks one loan of a book to a user.
type BorrowRecord struct {
	ID         int64
	BookID     int64
	BookTitle  string
	UserID     int64
	UserName   string
	BorrowDate time.Time
	ReturnDate *time.Time
	Returned   bool
}
