package template

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	templates TemplateRepository
	mappings  MappingRepository
	log       zerolog.Logger
}

func NewService(templates TemplateRepository, mappings MappingRepository, log zerolog.Logger) *Service {
	return &Service{templates: templates, mappings: mappings, log: log}
}

// -- Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *ExtractionTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(t.DocumentType) == "" {
		return fmt.Errorf("document_type is required")
	}
	if t.IsDefault {
		if err := s.templates.ClearDefault(ctx, t.DocumentType); err != nil {
			return fmt.Errorf("clear previous default: %w", err)
		}
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*ExtractionTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *ExtractionTemplate) error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("template id is required")
	}
	if t.IsDefault {
		if err := s.templates.ClearDefault(ctx, t.DocumentType); err != nil {
			return fmt.Errorf("clear previous default: %w", err)
		}
	}
	return s.templates.Update(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) ([]*ExtractionTemplate, int, error) {
	return s.templates.List(ctx, limit, offset)
}

// -- Mappings --

func (s *Service) CreateMapping(ctx context.Context, fm *FieldMapping) error {
	if err := fm.Validate(); err != nil {
		return err
	}
	if _, err := s.templates.GetByID(ctx, fm.TemplateID); err != nil {
		return fmt.Errorf("template %s: %w", fm.TemplateID, err)
	}
	return s.mappings.Create(ctx, fm)
}

func (s *Service) UpdateMapping(ctx context.Context, fm *FieldMapping) error {
	if err := fm.Validate(); err != nil {
		return err
	}
	return s.mappings.Update(ctx, fm)
}

func (s *Service) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	return s.mappings.Delete(ctx, id)
}

func (s *Service) ListMappings(ctx context.Context, templateID uuid.UUID) ([]*FieldMapping, error) {
	return s.mappings.ListByTemplate(ctx, templateID)
}

// -- Resolution --

// ResolveMappings returns the ordered, active mappings that apply to a
// document. Workspace scoping comes from the context (the repository layer
// operates inside the workspace schema).
//
// When templateID is nil the default template for documentType is used; if
// none is flagged default, any active template for the type serves as a
// fallback; with no template at all an empty slice is returned and the
// caller proceeds with core-only extraction. Several templates flagged
// default is a configuration error: the most recently updated wins and a
// warning is logged.
func (s *Service) ResolveMappings(ctx context.Context, documentType string, templateID *uuid.UUID) ([]*FieldMapping, error) {
	if templateID != nil {
		t, err := s.templates.GetByID(ctx, *templateID)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", *templateID, err)
		}
		if !t.IsActive {
			return nil, fmt.Errorf("template %s is inactive", *templateID)
		}
		return s.mappings.ListActiveByTemplate(ctx, t.ID)
	}

	candidates, err := s.templates.ListByDocumentType(ctx, documentType)
	if err != nil {
		return nil, fmt.Errorf("list templates for %s: %w", documentType, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var defaults []*ExtractionTemplate
	for _, t := range candidates {
		if t.IsDefault {
			defaults = append(defaults, t)
		}
	}

	var chosen *ExtractionTemplate
	switch {
	case len(defaults) == 1:
		chosen = defaults[0]
	case len(defaults) > 1:
		// Candidates are ordered by updated_at DESC, so the first default
		// is the most recently updated one.
		chosen = defaults[0]
		s.log.Warn().
			Str("document_type", documentType).
			Int("default_count", len(defaults)).
			Str("chosen_template_id", chosen.ID.String()).
			Msg("multiple default templates; most recently updated wins")
	default:
		chosen = candidates[0]
	}

	return s.mappings.ListActiveByTemplate(ctx, chosen.ID)
}
