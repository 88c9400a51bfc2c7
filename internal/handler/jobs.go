package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/logboard/api/internal/middleware"
	"github.com/logboard/api/internal/model"
	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/pkg/response"
)

// JobsHandler exposes the queue's enqueue and status operations
type JobsHandler struct {
	service   *service.IngestService
	validator *validator.Validate
}

func NewJobsHandler(svc *service.IngestService, v *validator.Validate) *JobsHandler {
	return &JobsHandler{
		service:   svc,
		validator: v,
	}
}

// Enqueue handles POST /api/jobs: processing of a file already in
// blob storage, referenced by URL.
func (h *JobsHandler) Enqueue(c *fiber.Ctx) error {
	var req model.EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body")
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed: "+err.Error())
	}

	userID := middleware.GetUserID(c)

	job, err := h.service.Enqueue(c.Context(), userID, &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.EnqueueResponse{JobID: job.ID})
}

// QueueStatus handles GET /api/queue/status. Counts are scoped to the
// requesting user; ?scope=all returns queue-wide totals.
func (h *JobsHandler) QueueStatus(c *fiber.Ctx) error {
	if c.Query("scope") == "all" {
		status, err := h.service.QueueStatusGlobal(c.Context())
		if err != nil {
			return response.ServiceError(c, "Failed to fetch queue status")
		}
		return response.OK(c, status)
	}

	userID := middleware.GetUserID(c)
	status, err := h.service.QueueStatusForUser(c.Context(), userID)
	if err != nil {
		return response.ServiceError(c, "Failed to fetch queue status")
	}
	return response.OK(c, status)
}

// List handles GET /api/jobs: the requesting user's jobs, newest first
func (h *JobsHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	jobs, err := h.service.ListJobsForUser(c.Context(), userID)
	if err != nil {
		return response.ServiceError(c, "Failed to list jobs")
	}
	return response.OK(c, jobs)
}

// Get handles GET /api/jobs/:jobId
func (h *JobsHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Missing job ID")
	}

	job, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		if err == service.ErrJobNotFound {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to fetch job")
	}
	return response.OK(c, job)
}
