package model

// WebSocket message types
const (
	WSMessageTypeProgress  = "progress"
	WSMessageTypeCompleted = "completed"
	WSMessageTypePing      = "ping"
	WSMessageTypePong      = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// ProgressPayload is the incremental status of a running job.
// ProcessedLines is monotonically non-decreasing for a given job.
type ProgressPayload struct {
	ProcessedLines int         `json:"processedLines"`
	Errors         int         `json:"errors"`
	Status         ParseStatus `json:"status"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
}

// WSProgressMessage carries a ProgressPayload to live subscribers
type WSProgressMessage struct {
	Type     string          `json:"type"`
	JobID    string          `json:"jobId"`
	Progress ProgressPayload `json:"progress"`
}

// WSCompletedMessage carries the terminal LogRecord to live subscribers
type WSCompletedMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"jobId"`
	Result any    `json:"result"`
}
