package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// DocumentRepo persists uploaded documents and their OCR payloads.
type DocumentRepo interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// SetStatus moves the document through its processing state machine.
	SetStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error
	// AttachExtraction stores the OCR output. Raw sections are written once
	// and never mutated afterwards.
	AttachExtraction(ctx context.Context, id uuid.UUID, rawSections map[string]interface{}, extractedAt time.Time) error
	LinkPatient(ctx context.Context, id, patientID uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]Document, int, error)
}

// HistoryRepo persists extraction run audit rows. Append-only: rows are never
// deleted, and only the validation fields mutate after creation.
type HistoryRepo interface {
	Create(ctx context.Context, h *History) error
	GetByID(ctx context.Context, id uuid.UUID) (*History, error)
	LatestByDocument(ctx context.Context, documentID uuid.UUID) (*History, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]History, error)
	NextAttempt(ctx context.Context, documentID uuid.UUID) (int, error)
	// AppendValidationChange adds one reviewer edit to the latest run's
	// validation_changes, verbatim.
	AppendValidationChange(ctx context.Context, documentID uuid.UUID, change ValidationChange) error
	Finalize(ctx context.Context, documentID uuid.UUID, reviewer string, notes *string) error
}
