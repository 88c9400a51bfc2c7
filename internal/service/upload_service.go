package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/logboard/api/internal/client"
	"github.com/logboard/api/internal/model"
)

// signedURLExpiry is how long the worker's fetch URL stays valid
const signedURLExpiry = 24 * time.Hour

// UploadService persists raw log uploads to blob storage and hands
// them to the ingestion queue.
type UploadService struct {
	storage client.StorageClient
	ingest  *IngestService
}

func NewUploadService(storage client.StorageClient, ingest *IngestService) *UploadService {
	return &UploadService{
		storage: storage,
		ingest:  ingest,
	}
}

// UploadLog stores the raw body and enqueues its processing job.
// The file id is log-<epoch-ms>.log.
func (s *UploadService) UploadLog(ctx context.Context, userID string, body []byte) (*model.UploadResponse, error) {
	fileID := fmt.Sprintf("log-%d.log", time.Now().UnixMilli())

	if _, err := s.storage.Upload(ctx, fileID, bytes.NewReader(body), "text/plain"); err != nil {
		return nil, fmt.Errorf("failed to upload log file: %w", err)
	}

	fileURL, err := s.storage.GetSignedURL(ctx, fileID, signedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign file URL: %w", err)
	}

	job, err := s.ingest.Enqueue(ctx, userID, &model.EnqueueRequest{
		FileURL:   fileURL,
		FileID:    fileID,
		FileSize:  int64(len(body)),
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return &model.UploadResponse{
		JobID:   job.ID,
		FileURL: fileURL,
	}, nil
}
