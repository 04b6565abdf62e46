package template

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("template not found")

type TemplateRepository interface {
	Create(ctx context.Context, t *ExtractionTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*ExtractionTemplate, error)
	Update(ctx context.Context, t *ExtractionTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ExtractionTemplate, int, error)
	// ListByDocumentType returns active templates for a document type,
	// most recently updated first.
	ListByDocumentType(ctx context.Context, documentType string) ([]*ExtractionTemplate, error)
	// ClearDefault clears is_default on every template for a document type.
	ClearDefault(ctx context.Context, documentType string) error
}

type MappingRepository interface {
	Create(ctx context.Context, fm *FieldMapping) error
	GetByID(ctx context.Context, id uuid.UUID) (*FieldMapping, error)
	Update(ctx context.Context, fm *FieldMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListActiveByTemplate returns active mappings ordered by
	// processing_order, then insertion sequence.
	ListActiveByTemplate(ctx context.Context, templateID uuid.UUID) ([]*FieldMapping, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*FieldMapping, error)
}
