package clinical

import (
	"context"

	"github.com/google/uuid"
)

// Store is the write surface the extraction populator needs for one target
// table: build an empty record, check for a natural-key duplicate, insert.
// Extraction-sourced rows are append-only; there is no Update or Delete.
type Store interface {
	Table() string
	New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record
	// Exists reports whether a record with the same natural key already
	// exists for the patient.
	Exists(ctx context.Context, rec Record) (bool, error)
	Insert(ctx context.Context, rec Record) (uuid.UUID, error)
	// ListByPatient returns records for chart rendering, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error)
}
