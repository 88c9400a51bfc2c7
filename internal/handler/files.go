package handler

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/logboard/api/internal/client"
	"github.com/logboard/api/pkg/response"
)

// FilesHandler serves blobs from the local-directory storage
// fallback. Only mounted when object storage is not configured.
type FilesHandler struct {
	storage *client.LocalClient
}

func NewFilesHandler(storage *client.LocalClient) *FilesHandler {
	return &FilesHandler{storage: storage}
}

// Get handles GET /files/:fileId
func (h *FilesHandler) Get(c *fiber.Ctx) error {
	fileID := filepath.Base(c.Params("fileId"))
	if fileID == "" || fileID == "." {
		return response.ValidationError(c, "Missing file ID")
	}
	return c.SendFile(filepath.Join(h.storage.Dir(), fileID))
}
