package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/dto"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/service"
)

// BorrowsHandler exposes lending endpoints.
type BorrowsHandler struct {
	borrows *service.BorrowService
}

// NewBorrowsHandler constructs handler.
func NewBorrowsHandler(borrows *service.BorrowService) *BorrowsHandler {
	return &BorrowsHandler{borrows: borrows}
}

// Borrow handles POST /api/borrows.
func (h *BorrowsHandler) Borrow(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	var req dto.BorrowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	record, err := h.borrows.Borrow(c.UserContext(), caller, req.BookID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewBorrowRecordResponse(*record))
}

// Return handles PUT /api/borrows/:id/return.
func (h *BorrowsHandler) Return(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	record, err := h.borrows.Return(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewBorrowRecordResponse(*record))
}

// MyActive handles GET /api/borrows/active.
func (h *BorrowsHandler) MyActive(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	return respondRecords(c)(h.borrows.MyActive(c.UserContext(), caller))
}

// MyHistory handles GET /api/borrows/history.
func (h *BorrowsHandler) MyHistory(c *fiber.Ctx) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	return respondRecords(c)(h.borrows.MyHistory(c.UserContext(), caller))
}

// Get handles GET /api/borrows/:id.
func (h *BorrowsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	record, err := h.borrows.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewBorrowRecordResponse(*record))
}

// AllActive handles GET /api/borrows/all/active.
func (h *BorrowsHandler) AllActive(c *fiber.Ctx) error {
	return respondRecords(c)(h.borrows.AllActive(c.UserContext()))
}

// AllReturned handles GET /api/borrows/all/returned.
func (h *BorrowsHandler) AllReturned(c *fiber.Ctx) error {
	return respondRecords(c)(h.borrows.AllReturned(c.UserContext()))
}

// ByBook handles GET /api/borrows/book/:bookId.
func (h *BorrowsHandler) ByBook(c *fiber.Ctx) error {
	id, err := idParam(c, "bookId")
	if err != nil {
		return err
	}
	return respondRecords(c)(h.borrows.ByBook(c.UserContext(), id))
}

// ByUser handles GET /api/borrows/user/:userId.
func (h *BorrowsHandler) ByUser(c *fiber.Ctx) error {
	id, err := idParam(c, "userId")
	if err != nil {
		return err
	}
	return respondRecords(c)(h.borrows.ByUser(c.UserContext(), id))
}

func respondRecords(c *fiber.Ctx) func([]domain.BorrowRecord, error) error {
	return func(records []domain.BorrowRecord, err error) error {
		if err != nil {
			return err
		}
		return data(c, http.StatusOK, dto.NewBorrowRecordList(records))
	}
}
