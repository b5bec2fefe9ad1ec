package domain

import "time"

// Job status constants. A job only ever moves
// pending -> processing -> {completed, failed}; terminal states are final.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Stage progress checkpoints. Progress is monotonically non-decreasing and
// advances in fixed increments as each stage completes.
const (
	ProgressClaimed    = 20
	ProgressExtracted  = 55
	ProgressValidated  = 65
	ProgressFaceChecks = 85
	ProgressScored     = 100
)

// IsTerminalStatus reports whether status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// JobOptions controls optional pipeline stages for a single job.
type JobOptions struct {
	DetectFace    bool   `json:"detect_face"`
	SelfieID      string `json:"selfie_id,omitempty"`
	AllowDegraded bool   `json:"allow_degraded,omitempty"`
}

// Job is one execution of the verification pipeline against a document.
// Owned exclusively by the worker goroutine that claimed it.
type Job struct {
	JobID        string     `db:"job_id"`
	DocumentID   string     `db:"document_id"`
	DocumentType string     `db:"document_type"`
	Options      string     `db:"options"` // JSON-encoded JobOptions
	Status       string     `db:"status"`
	Progress     int        `db:"progress"`
	Message      string     `db:"message"`
	WorkerID     string     `db:"worker_id"`
	RetryCount   int        `db:"retry_count"`
	MaxRetries   int        `db:"max_retries"`
	CreatedAt    time.Time  `db:"created_at"`
	StartedAt    *time.Time `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	ErrorMessage string     `db:"error_message"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// JobMessage is the queue payload dispatched to the worker pool.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
