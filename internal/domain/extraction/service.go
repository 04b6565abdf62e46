package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/domain/template"
	"github.com/chartdesk/chartdesk/internal/platform/ocr"
)

// Service drives a document from upload through OCR, population, and review.
type Service struct {
	docs      DocumentRepo
	history   HistoryRepo
	templates *template.Service
	populator *Populator
	ocr       ocr.Extractor
	log       zerolog.Logger
}

func NewService(docs DocumentRepo, history HistoryRepo, templates *template.Service, populator *Populator, extractor ocr.Extractor, log zerolog.Logger) *Service {
	return &Service{
		docs:      docs,
		history:   history,
		templates: templates,
		populator: populator,
		ocr:       extractor,
		log:       log.With().Str("component", "extraction_service").Logger(),
	}
}

// Upload stores a new document and runs OCR on it. The OCR call is bounded by
// the client's configured timeout; on failure the document lands in the
// failed terminal state with the reason recorded.
func (s *Service) Upload(ctx context.Context, fileName, documentType string, fileBytes []byte) (*Document, error) {
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("file content is required")
	}
	doc := &Document{
		ID:           uuid.New(),
		DocumentType: documentType,
		FileName:     fileName,
		Status:       DocStatusPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.docs.SetStatus(ctx, doc.ID, DocStatusProcessing, nil); err != nil {
		return nil, err
	}
	doc.Status = DocStatusProcessing

	res, err := s.ocr.Extract(ctx, fileBytes, documentType)
	if err != nil {
		reason := err.Error()
		if serr := s.docs.SetStatus(ctx, doc.ID, DocStatusFailed, &reason); serr != nil {
			s.log.Error().Err(serr).Str("document_id", doc.ID.String()).Msg("mark document failed")
		}
		doc.Status = DocStatusFailed
		doc.StatusReason = &reason
		return doc, fmt.Errorf("ocr extraction: %w", err)
	}

	if err := s.docs.AttachExtraction(ctx, doc.ID, res.RawSections, res.ExtractedAt); err != nil {
		return nil, err
	}
	if err := s.docs.SetStatus(ctx, doc.ID, DocStatusReview, nil); err != nil {
		return nil, err
	}
	doc.Status = DocStatusReview
	doc.RawSections = res.RawSections
	doc.ExtractedAt = &res.ExtractedAt
	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.docs.GetByID(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, status string, limit, offset int) ([]Document, int, error) {
	return s.docs.List(ctx, status, limit, offset)
}

// PopulateOutcome reports one populate run plus how many mappings applied;
// zero resolved mappings is the explicit core-only signal, not an error.
type PopulateOutcome struct {
	History          *History `json:"history"`
	MappingsResolved int      `json:"mappings_resolved"`
}

// PopulateDocument resolves the applicable mappings and fans the document's
// extracted sections out across the clinical tables for the given patient.
// Patient identity must already be resolved against human-validated
// demographics before this is called.
func (s *Service) PopulateDocument(ctx context.Context, documentID, patientID uuid.UUID, encounterID, templateID *uuid.UUID) (*PopulateOutcome, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.RawSections == nil {
		return nil, fmt.Errorf("document %s has no extracted sections", documentID)
	}
	if doc.Status == DocStatusFailed {
		return nil, fmt.Errorf("document %s is in a failed state", documentID)
	}

	mappings, err := s.templates.ResolveMappings(ctx, doc.DocumentType, templateID)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		s.log.Warn().
			Str("document_id", documentID.String()).
			Str("document_type", doc.DocumentType).
			Msg("no applicable mappings; core-only extraction")
	}

	if doc.PatientID == nil {
		if err := s.docs.LinkPatient(ctx, documentID, patientID); err != nil {
			return nil, err
		}
	} else if *doc.PatientID != patientID {
		return nil, fmt.Errorf("document %s is already linked to another patient", documentID)
	}

	var resolvedTemplateID *uuid.UUID
	if templateID != nil {
		resolvedTemplateID = templateID
	} else if len(mappings) > 0 {
		resolvedTemplateID = &mappings[0].TemplateID
	}

	h, err := s.populator.Populate(ctx, documentID, patientID, encounterID, resolvedTemplateID, doc.RawSections, mappings)
	if err != nil {
		return nil, err
	}
	return &PopulateOutcome{History: h, MappingsResolved: len(mappings)}, nil
}

// RecordModification appends one reviewer edit to the latest run's audit
// trail. Original and new values are kept verbatim.
func (s *Service) RecordModification(ctx context.Context, documentID uuid.UUID, fieldPath, originalValue, newValue, modificationType string) error {
	if fieldPath == "" {
		return fmt.Errorf("field_path is required")
	}
	change := ValidationChange{
		FieldPath:        fieldPath,
		OriginalValue:    originalValue,
		NewValue:         newValue,
		ModificationType: modificationType,
		Timestamp:        time.Now().UTC(),
	}
	return s.history.AppendValidationChange(ctx, documentID, change)
}

// FinalizeValidation marks the latest run validated and completes the
// document.
func (s *Service) FinalizeValidation(ctx context.Context, documentID uuid.UUID, reviewer string, notes *string) error {
	if err := s.history.Finalize(ctx, documentID, reviewer, notes); err != nil {
		return err
	}
	return s.docs.SetStatus(ctx, documentID, DocStatusCompleted, nil)
}

func (s *Service) HistoryForDocument(ctx context.Context, documentID uuid.UUID) ([]History, error) {
	return s.history.ListByDocument(ctx, documentID)
}
