// Package task defines the batch task records exchanged with the UI and
// persisted by the store.
package task

import "encoding/json"

// Batch task lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// BatchTaskConfig holds the immutable generation parameters of a batch.
type BatchTaskConfig struct {
	Model           string `json:"model"`
	ModelType       string `json:"modelType"`
	ConcurrentLimit int    `json:"concurrentLimit"`
	RetryAttempts   int    `json:"retryAttempts"`
	RetryDelay      int    `json:"retryDelay"`
	AutoDownload    bool   `json:"autoDownload"`
	AspectRatio     string `json:"aspectRatio"`
	Size            string `json:"size"`
	Quality         string `json:"quality"`
	GenerateCount   *int   `json:"generateCount,omitempty"`
	APITimeoutMS    *int   `json:"apiTimeoutMs,omitempty"`
}

// TaskItem is one generation request within a batch. It is owned by its
// parent BatchTask and never persisted on its own.
type TaskItem struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	SourceImage  *string    `json:"sourceImage,omitempty"`
	Mask         *string    `json:"mask,omitempty"`
	Priority     int        `json:"priority"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attemptCount"`
	CreatedAt    string     `json:"createdAt"`
	ProcessedAt  *string    `json:"processedAt,omitempty"`
	Error        *string    `json:"error,omitempty"`
	DebugLogs    []DebugLog `json:"debugLogs,omitempty"`
}

// TaskResult is one produced artifact. TaskItemID is a lookup reference, not
// an ownership relation.
type TaskResult struct {
	ID         string  `json:"id"`
	TaskItemID string  `json:"taskItemId"`
	ImageURL   string  `json:"imageUrl"`
	LocalPath  *string `json:"localPath,omitempty"`
	Downloaded bool    `json:"downloaded"`
	CreatedAt  string  `json:"createdAt"`
	DurationMS *int    `json:"durationMs,omitempty"`
}

// DebugLog is a structured diagnostic entry attached to a task item. Data is
// an opaque payload that round-trips without interpretation.
type DebugLog struct {
	ID         string          `json:"id"`
	TaskItemID string          `json:"taskItemId"`
	Timestamp  string          `json:"timestamp"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	Duration   *int            `json:"duration,omitempty"`
}

// BatchTask is a run of related generation work tracked as one unit.
// Timestamps are RFC3339 strings assigned by the caller; StartedAt and
// CompletedAt are set once the task enters the corresponding phase.
type BatchTask struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Progress       int             `json:"progress"`
	TotalItems     int             `json:"totalItems"`
	CompletedItems int             `json:"completedItems"`
	FailedItems    int             `json:"failedItems"`
	CreatedAt      string          `json:"createdAt"`
	StartedAt      *string         `json:"startedAt,omitempty"`
	CompletedAt    *string         `json:"completedAt,omitempty"`
	Config         BatchTaskConfig `json:"config"`
	Items          []TaskItem      `json:"items"`
	Results        []TaskResult    `json:"results"`
	Error          *string         `json:"error,omitempty"`
}
