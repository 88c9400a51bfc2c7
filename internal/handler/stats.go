package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/internal/store"
	"github.com/logboard/api/pkg/response"
)

// StatsHandler serves persisted log statistics
type StatsHandler struct {
	service *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// List handles GET /api/stats: every record, most recent first
func (h *StatsHandler) List(c *fiber.Ctx) error {
	records, err := h.service.ListAll(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to fetch stats")
	}
	return response.OK(c, records)
}

// Summary handles GET /api/stats/summary: error-type and IP
// distributions across all records.
func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context())
	if err != nil {
		return response.ServiceError(c, "Failed to fetch stats")
	}
	return response.OK(c, summary)
}

// Get handles GET /api/stats/:jobId
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Missing job ID")
	}

	record, err := h.service.GetByJobID(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to fetch job stats")
	}
	return response.OK(c, record)
}
