package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// BorrowService lends and takes back books.
type BorrowService struct {
	borrows    repository.BorrowRepository
	users      repository.UserRepository
	books      repository.BookRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// BorrowDependencies groups the collaborators of BorrowService.
type BorrowDependencies struct {
	Borrows    repository.BorrowRepository
	Users      repository.UserRepository
	Books      repository.BookRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewBorrowService builds the service.
func NewBorrowService(deps BorrowDependencies) *BorrowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BorrowService{
		borrows:    deps.Borrows,
		users:      deps.Users,
		books:      deps.Books,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Borrow lends bookID to the caller.
func (s *BorrowService) Borrow(ctx context.Context, identity *auth.Identity, bookID int64) (*domain.BorrowRecord, error) {
	userID, err := userIDOf(identity)
	if err != nil {
		return nil, err
	}

	record, err := s.borrows.Borrow(ctx, userID, bookID, domain.MaxActiveBorrows)
	switch {
	case errors.Is(err, repository.ErrBorrowLimit):
		return nil, apperrors.NewBadRequest(fmt.Sprintf("Maximum active borrow limit of %d books reached", domain.MaxActiveBorrows))
	case errors.Is(err, repository.ErrBookUnavailable):
		return nil, apperrors.NewConflict("Book is already borrowed", map[string]any{"book_id": bookID})
	case errors.Is(err, repository.ErrMissingReference):
		return nil, apperrors.NewNotFound("User", map[string]any{"id": userID})
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Book", map[string]any{"id": bookID})
	case err != nil:
		return nil, err
	}

	s.logger.Info("book borrowed",
		zap.Int64("record_id", record.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("user_id", userID),
	)
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventBookBorrowed, identity.Subject, bookID,
		events.LoanPayload{RecordID: record.ID, BookID: bookID, UserID: userID}))
	return record, nil
}

// Return closes one of the caller's own borrow records.
func (s *BorrowService) Return(ctx context.Context, identity *auth.Identity, recordID int64) (*domain.BorrowRecord, error) {
	userID, err := userIDOf(identity)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, apperrors.NewBadRequest("You can only return your own borrowed books")
	}
	if current.Returned {
		return nil, apperrors.NewConflict("Book is already returned", map[string]any{"record_id": recordID})
	}

	record, err := s.borrows.Return(ctx, recordID)
	switch {
	case errors.Is(err, repository.ErrAlreadyReturned):
		return nil, apperrors.NewConflict("Book is already returned", map[string]any{"record_id": recordID})
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Borrow record", map[string]any{"id": recordID})
	case err != nil:
		return nil, err
	}

	s.logger.Info("book returned",
		zap.Int64("record_id", record.ID),
		zap.Int64("book_id", record.BookID),
		zap.Int64("user_id", userID),
	)
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventBookReturned, identity.Subject, record.BookID,
		events.LoanPayload{RecordID: record.ID, BookID: record.BookID, UserID: userID}))
	return record, nil
}

// MyActive lists the caller's open loans.
func (s *BorrowService) MyActive(ctx context.Context, identity *auth.Identity) ([]domain.BorrowRecord, error) {
	userID, err := userIDOf(identity)
	if err != nil {
		return nil, err
	}
	returned := false
	return s.borrows.List(ctx, repository.BorrowFilter{UserID: &userID, Returned: &returned})
}

// MyHistory lists every loan of the caller.
func (s *BorrowService) MyHistory(ctx context.Context, identity *auth.Identity) ([]domain.BorrowRecord, error) {
	userID, err := userIDOf(identity)
	if err != nil {
		return nil, err
	}
	return s.borrows.List(ctx, repository.BorrowFilter{UserID: &userID})
}

// Get fetches a borrow record by id.
func (s *BorrowService) Get(ctx context.Context, recordID int64) (*domain.BorrowRecord, error) {
	record, err := s.borrows.GetByID(ctx, recordID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Borrow record", map[string]any{"id": recordID})
	}
	return record, err
}

// AllActive lists every open loan.
func (s *BorrowService) AllActive(ctx context.Context) ([]domain.BorrowRecord, error) {
	returned := false
	return s.borrows.List(ctx, repository.BorrowFilter{Returned: &returned})
}

// AllReturned lists every closed loan.
func (s *BorrowService) AllReturned(ctx context.Context) ([]domain.BorrowRecord, error) {
	returned := true
	return s.borrows.List(ctx, repository.BorrowFilter{Returned: &returned})
}

// ByBook lists the loan history of an existing book.
func (s *BorrowService) ByBook(ctx context.Context, bookID int64) ([]domain.BorrowRecord, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, notFoundOr(err, "Book", bookID)
	}
	return s.borrows.List(ctx, repository.BorrowFilter{BookID: &bookID})
}

// ByUser lists the loan history of an existing user.
func (s *BorrowService) ByUser(ctx context.Context, userID int64) ([]domain.BorrowRecord, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "User", userID)
	}
	return s.borrows.List(ctx, repository.BorrowFilter{UserID: &userID})
}
