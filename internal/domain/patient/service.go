package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

var validSources = map[string]bool{
	SourceDocumentExtraction: true,
	SourceManualEntry:        true,
	SourceAIScribe:           true,
	SourceImported:           true,
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("patient name is required")
	}
	if p.Source == "" {
		p.Source = SourceManualEntry
	}
	if !validSources[p.Source] {
		return fmt.Errorf("invalid source: %s", p.Source)
	}
	if p.IDNumber != nil {
		trimmed := strings.TrimSpace(*p.IDNumber)
		if trimmed == "" {
			p.IDNumber = nil
		} else {
			p.IDNumber = &trimmed
			if existing, err := s.patients.GetByIDNumber(ctx, trimmed); err == nil && existing != nil {
				return fmt.Errorf("id number %s already belongs to patient %s", trimmed, existing.ID)
			}
		}
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("patient id is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}
