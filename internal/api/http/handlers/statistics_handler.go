package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/service"
)

// StatisticsHandler serves the admin statistics snapshot.
type StatisticsHandler struct {
	statistics *service.StatisticsService
}

// NewStatisticsHandler constructs handler.
func NewStatisticsHandler(statistics *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statistics: statistics}
}

// Get handles GET /api/admin/statistics.
func (h *StatisticsHandler) Get(c *fiber.Ctx) error {
	stats, err := h.statistics.Get(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}
