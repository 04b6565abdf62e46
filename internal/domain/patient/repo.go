package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient matches a lookup.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByIDNumber looks up a patient by exact national identifier.
	// Returns ErrNotFound on zero hits; id numbers are unique per workspace.
	GetByIDNumber(ctx context.Context, idNumber string) (*Patient, error)
	// FindByNameDOB returns patients whose last name matches case-insensitively
	// and whose birth date matches exactly.
	FindByNameDOB(ctx context.Context, lastName string, birthDate time.Time) ([]*Patient, error)
	// ListActive returns all active patients in the workspace, for fuzzy
	// name scanning.
	ListActive(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
