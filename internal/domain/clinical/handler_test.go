package clinical

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type memStore struct {
	table   string
	records []Record
}

func (m *memStore) Table() string { return m.table }

func (m *memStore) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Vital{Base: Base{PatientID: patientID, EncounterID: encounterID, Source: source, SourceDocumentID: sourceDocumentID}}
}

func (m *memStore) Exists(ctx context.Context, rec Record) (bool, error) { return false, nil }

func (m *memStore) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	m.records = append(m.records, rec)
	return uuid.New(), nil
}

func (m *memStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return m.records, len(m.records), nil
}

func TestHandlerListByPatient_PaginationEnvelope(t *testing.T) {
	hr := 72.0
	store := &memStore{table: "vitals", records: []Record{
		&Vital{Base: Base{ID: uuid.New(), PatientID: uuid.New()}, HeartRate: &hr},
	}}
	svc := NewService(map[string]Store{"vitals": store}, zerolog.Nop())
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "table")
	c.SetParamValues(uuid.New().String(), "vitals")

	if err := h.listByPatient(c); err != nil {
		t.Fatalf("listByPatient: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data    []Vital `json:"data"`
		Total   int     `json:"total"`
		Limit   int     `json:"limit"`
		Offset  int     `json:"offset"`
		HasMore bool    `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Errorf("total=%d data=%d, want 1/1", resp.Total, len(resp.Data))
	}
	if resp.Limit != 10 || resp.Offset != 0 {
		t.Errorf("limit=%d offset=%d, want 10/0", resp.Limit, resp.Offset)
	}
}

func TestHandlerListByPatient_UnknownTable(t *testing.T) {
	svc := NewService(map[string]Store{}, zerolog.Nop())
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "table")
	c.SetParamValues(uuid.New().String(), "appointments")

	err := h.listByPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown table, got %v", err)
	}
}

func TestHandlerListByPatient_BadPatientID(t *testing.T) {
	svc := NewService(map[string]Store{}, zerolog.Nop())
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "table")
	c.SetParamValues("not-a-uuid", "vitals")

	err := h.listByPatient(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid patient id, got %v", err)
	}
}
