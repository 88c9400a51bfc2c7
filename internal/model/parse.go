package model

// ParseStatus describes the lifecycle of a ParseResult
type ParseStatus string

const (
	ParseStatusProcessing ParseStatus = "processing"
	ParseStatusCompleted  ParseStatus = "completed"
	ParseStatusError      ParseStatus = "error"
)

// LogError is one ERROR-level line extracted from a log file.
// Details holds the decoded JSON payload, or nil when the payload
// was absent or unrecoverably malformed.
type LogError struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Details   any    `json:"details"`
}

// KeywordHit is one watch-keyword occurrence within a log message
type KeywordHit struct {
	Keyword   string `json:"keyword"`
	Timestamp string `json:"timestamp"`
	Details   any    `json:"details"`
}

// ParseResult is the structured output of running the log parser
// over one file's content.
type ParseResult struct {
	TotalLines   int          `json:"totalLines"`
	ErrorCount   int          `json:"errorCount"`
	Errors       []LogError   `json:"errors"`
	Keywords     []KeywordHit `json:"keywords"`
	IPs          []string     `json:"ips"`
	Status       ParseStatus  `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}
