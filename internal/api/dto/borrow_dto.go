package dto

import (
	"time"

	"github.com/spec-kit/library-service/internal/domain"
)

// BorrowRequest payload.
type BorrowRequest struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

// BorrowRecordResponse response.
type BorrowRecordResponse struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	UserID     int64      `json:"user_id"`
	UserName   string     `json:"user_name"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Returned   bool       `json:"is_returned"`
}

// NewBorrowRecordResponse maps a borrow record.
func NewBorrowRecordResponse(r domain.BorrowRecord) BorrowRecordResponse {
	return BorrowRecordResponse{
		ID:         r.ID,
		BookID:     r.BookID,
		BookTitle:  r.BookTitle,
		UserID:     r.UserID,
		UserName:   r.UserName,
		BorrowDate: r.BorrowDate,
		ReturnDate: r.ReturnDate,
		Returned:   r.Returned,
	}
}

// NewBorrowRecordList maps a slice of records, never returning nil.
func NewBorrowRecordList(records []domain.BorrowRecord) []BorrowRecordResponse {
	out := make([]BorrowRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, NewBorrowRecordResponse(r))
	}
	return out
}
