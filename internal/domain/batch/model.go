package batch

import (
	"time"

	"github.com/google/uuid"
)

// Job states. Persisted from creation so a restart never loses track of an
// in-flight upload batch.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Per-file states.
const (
	FilePending   = "pending"
	FileCompleted = "completed"
	FileFailed    = "failed"
)

// Job is one multi-file upload batch.
type Job struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DocumentType   string     `db:"document_type" json:"document_type"`
	Status         string     `db:"status" json:"status"`
	TotalFiles     int        `db:"total_files" json:"total_files"`
	ProcessedFiles int        `db:"processed_files" json:"processed_files"`
	FailedFiles    int        `db:"failed_files" json:"failed_files"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// File is one entry in a batch with its processing outcome.
type File struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	JobID      uuid.UUID  `db:"job_id" json:"job_id"`
	FileName   string     `db:"file_name" json:"file_name"`
	Status     string     `db:"status" json:"status"`
	DocumentID *uuid.UUID `db:"document_id" json:"document_id,omitempty"`
	Error      *string    `db:"error" json:"error,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
