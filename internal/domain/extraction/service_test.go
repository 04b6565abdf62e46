package extraction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/platform/ocr"
)

type mockDocumentRepo struct {
	docs map[uuid.UUID]*Document
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: map[uuid.UUID]*Document{}}
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *Document) error {
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDocumentRepo) SetStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error {
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.StatusReason = reason
	return nil
}

func (m *mockDocumentRepo) AttachExtraction(ctx context.Context, id uuid.UUID, rawSections map[string]interface{}, extractedAt time.Time) error {
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	if d.RawSections != nil {
		return fmt.Errorf("raw sections already attached")
	}
	d.RawSections = rawSections
	d.ExtractedAt = &extractedAt
	return nil
}

func (m *mockDocumentRepo) LinkPatient(ctx context.Context, id, patientID uuid.UUID) error {
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.PatientID = &patientID
	return nil
}

func (m *mockDocumentRepo) List(ctx context.Context, status string, limit, offset int) ([]Document, int, error) {
	var out []Document
	for _, d := range m.docs {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

type mockExtractor struct {
	sections map[string]interface{}
	err      error
}

func (m *mockExtractor) Extract(ctx context.Context, content []byte, documentType string) (*ocr.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ocr.Result{RawSections: m.sections, ExtractedAt: time.Now().UTC()}, nil
}

func TestUpload_SuccessLandsInReview(t *testing.T) {
	docs := newMockDocumentRepo()
	extractor := &mockExtractor{sections: map[string]interface{}{
		"demographics": map[string]interface{}{"first_name": "Thabo"},
	}}
	svc := NewService(docs, &mockHistoryRepo{}, nil, nil, extractor, zerolog.Nop())

	doc, err := svc.Upload(context.Background(), "referral.pdf", "referral_letter", []byte("%PDF-"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != DocStatusReview {
		t.Errorf("status = %s, want %s", doc.Status, DocStatusReview)
	}
	if doc.RawSections == nil || doc.ExtractedAt == nil {
		t.Error("extraction payload not attached")
	}
	stored, err := docs.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != DocStatusReview || stored.RawSections == nil {
		t.Errorf("persisted doc status=%s sections=%v", stored.Status, stored.RawSections)
	}
}

func TestUpload_OCRFailureIsTerminal(t *testing.T) {
	docs := newMockDocumentRepo()
	extractor := &mockExtractor{err: fmt.Errorf("upstream timeout")}
	svc := NewService(docs, &mockHistoryRepo{}, nil, nil, extractor, zerolog.Nop())

	doc, err := svc.Upload(context.Background(), "scan.pdf", "lab_report", []byte("%PDF-"))
	if err == nil {
		t.Fatal("expected an error from a failed OCR call")
	}
	if doc == nil || doc.Status != DocStatusFailed {
		t.Fatalf("doc = %+v, want failed status", doc)
	}
	if doc.StatusReason == nil || *doc.StatusReason == "" {
		t.Error("failure reason not recorded")
	}
}

func TestUpload_EmptyContentRejected(t *testing.T) {
	svc := NewService(newMockDocumentRepo(), &mockHistoryRepo{}, nil, nil, &mockExtractor{}, zerolog.Nop())
	if _, err := svc.Upload(context.Background(), "empty.pdf", "referral_letter", nil); err == nil {
		t.Fatal("expected an error for empty content")
	}
}

func TestRecordModification_AppendsVerbatim(t *testing.T) {
	history := &mockHistoryRepo{}
	docID := uuid.New()
	history.rows = append(history.rows, &History{
		ID:         uuid.New(),
		DocumentID: docID,
		Attempt:    1,
	})
	svc := NewService(newMockDocumentRepo(), history, nil, nil, &mockExtractor{}, zerolog.Nop())

	edits := []struct{ path, orig, next, kind string }{
		{"vitals.bp_systolic", "120", "118", "corrected"},
		{"diagnoses.name", "Hypertension", "Hypertension", "corrected"},
		{"allergies.severity", "", "severe", "added"},
	}
	for i, e := range edits {
		if err := svc.RecordModification(context.Background(), docID, e.path, e.orig, e.next, e.kind); err != nil {
			t.Fatalf("RecordModification #%d: %v", i, err)
		}
		got := history.rows[0].ValidationChanges
		if len(got) != i+1 {
			t.Fatalf("after edit %d: %d changes recorded, want %d", i, len(got), i+1)
		}
	}

	for i, e := range edits {
		c := history.rows[0].ValidationChanges[i]
		if c.FieldPath != e.path || c.OriginalValue != e.orig || c.NewValue != e.next || c.ModificationType != e.kind {
			t.Errorf("change %d = %+v, want verbatim copy of %+v", i, c, e)
		}
		if c.Timestamp.IsZero() {
			t.Errorf("change %d has no timestamp", i)
		}
	}
}

func TestRecordModification_RequiresFieldPath(t *testing.T) {
	svc := NewService(newMockDocumentRepo(), &mockHistoryRepo{}, nil, nil, &mockExtractor{}, zerolog.Nop())
	if err := svc.RecordModification(context.Background(), uuid.New(), "", "a", "b", "corrected"); err == nil {
		t.Fatal("expected an error for empty field_path")
	}
}

func TestFinalizeValidation_CompletesDocument(t *testing.T) {
	docs := newMockDocumentRepo()
	docID := uuid.New()
	docs.docs[docID] = &Document{ID: docID, Status: DocStatusReview}

	history := &mockHistoryRepo{}
	history.rows = append(history.rows, &History{ID: uuid.New(), DocumentID: docID, Attempt: 1})

	svc := NewService(docs, history, nil, nil, &mockExtractor{}, zerolog.Nop())
	notes := "values confirmed against the scan"
	if err := svc.FinalizeValidation(context.Background(), docID, "dr.naidoo", &notes); err != nil {
		t.Fatalf("FinalizeValidation: %v", err)
	}

	h := history.rows[0]
	if !h.Validated || h.ValidatedBy == nil || *h.ValidatedBy != "dr.naidoo" {
		t.Errorf("history not finalized: %+v", h)
	}
	if h.ValidationNotes == nil || *h.ValidationNotes != notes {
		t.Errorf("notes = %v, want %q", h.ValidationNotes, notes)
	}
	if docs.docs[docID].Status != DocStatusCompleted {
		t.Errorf("document status = %s, want %s", docs.docs[docID].Status, DocStatusCompleted)
	}
}
