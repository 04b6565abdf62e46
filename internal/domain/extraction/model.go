package extraction

import (
	"time"

	"github.com/google/uuid"
)

// Document processing states. A document moves pending → processing → review
// once OCR output is attached, then completed when the reviewer finalizes, or
// failed on an OCR/store error.
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReview     = "review"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document is one uploaded file plus the OCR payload extracted from it. The
// raw sections are never mutated after extraction; review edits are tracked
// on the history row instead.
type Document struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	PatientID    *uuid.UUID             `db:"patient_id" json:"patient_id,omitempty"`
	DocumentType string                 `db:"document_type" json:"document_type"`
	FileName     string                 `db:"file_name" json:"file_name"`
	Status       string                 `db:"status" json:"status"`
	StatusReason *string                `db:"status_reason" json:"status_reason,omitempty"`
	RawSections  map[string]interface{} `db:"raw_sections" json:"raw_sections,omitempty"`
	ExtractedAt  *time.Time             `db:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at" json:"updated_at"`
}

// Extraction run statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// PopulationError is one per-mapping failure recorded on a run.
type PopulationError struct {
	Mapping string `json:"mapping"`
	Reason  string `json:"reason"`
}

// DuplicateNote records one skipped duplicate. Informational, not an error.
type DuplicateNote struct {
	Table  string `json:"table"`
	Detail string `json:"detail"`
}

// ValidationChange is one human edit made during review. Original and new
// values are retained verbatim; they feed model retraining later, so lossy
// summarization is not allowed.
type ValidationChange struct {
	FieldPath        string    `json:"field_path"`
	OriginalValue    string    `json:"original_value"`
	NewValue         string    `json:"new_value"`
	ModificationType string    `json:"modification_type"`
	Timestamp        time.Time `json:"timestamp"`
}

// History is the append-only audit record of one extraction run. Rows are
// never deleted; validated and validation_changes are the only fields mutated
// after creation, by the review step.
type History struct {
	ID                uuid.UUID              `db:"id" json:"id"`
	DocumentID        uuid.UUID              `db:"document_id" json:"document_id"`
	TemplateID        *uuid.UUID             `db:"template_id" json:"template_id,omitempty"`
	Attempt           int                    `db:"attempt" json:"attempt"`
	ExtractionStatus  string                 `db:"extraction_status" json:"extraction_status"`
	TablesPopulated   map[string][]uuid.UUID `db:"tables_populated" json:"tables_populated"`
	PopulationErrors  []PopulationError      `db:"population_errors" json:"population_errors"`
	SkippedDuplicates []DuplicateNote        `db:"skipped_duplicates" json:"skipped_duplicates"`
	FieldsExtracted   int                    `db:"fields_extracted" json:"fields_extracted"`
	RecordsCreated    int                    `db:"records_created" json:"records_created"`
	Validated         bool                   `db:"validated" json:"validated"`
	ValidatedBy       *string                `db:"validated_by" json:"validated_by,omitempty"`
	ValidationNotes   *string                `db:"validation_notes" json:"validation_notes,omitempty"`
	ValidationChanges []ValidationChange     `db:"validation_changes" json:"validation_changes"`
	CreatedAt         time.Time              `db:"created_at" json:"created_at"`
}
