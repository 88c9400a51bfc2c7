package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/logboard/api/internal/middleware"
	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/pkg/response"
)

// LogsHandler accepts raw log file uploads
type LogsHandler struct {
	service *service.UploadService
}

func NewLogsHandler(svc *service.UploadService) *LogsHandler {
	return &LogsHandler{service: svc}
}

// Upload handles POST /api/logs/upload. The request body is the raw
// log file; the response carries the queue-assigned job id and the
// signed URL the worker will fetch.
func (h *LogsHandler) Upload(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return response.ValidationError(c, "No request body")
	}

	userID := middleware.GetUserID(c)

	result, err := h.service.UploadLog(c.Context(), userID, body)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
