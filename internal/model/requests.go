package model

import "time"

// EnqueueRequest enqueues processing of a file already in blob storage
type EnqueueRequest struct {
	FileURL   string    `json:"fileUrl" validate:"required,url"`
	FileID    string    `json:"fileId" validate:"required"`
	FileSize  int64     `json:"fileSize" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// EnqueueResponse is returned for a direct enqueue
type EnqueueResponse struct {
	JobID string `json:"jobId"`
}

// UploadResponse is returned after a raw log upload
type UploadResponse struct {
	JobID   string `json:"jobId"`
	FileURL string `json:"fileUrl"`
}

// QueueStatusResponse holds per-state job counts
type QueueStatusResponse struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
