package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chartdesk/chartdesk/internal/domain/patient"
)

type mockDirectory struct {
	byIDNumber map[string]*patient.Patient
	patients   []*patient.Patient
	created    []*patient.Patient

	idLookups   int
	nameLookups int
	scans       int
}

func (m *mockDirectory) GetByIDNumber(ctx context.Context, idNumber string) (*patient.Patient, error) {
	m.idLookups++
	if p, ok := m.byIDNumber[idNumber]; ok {
		return p, nil
	}
	return nil, patient.ErrNotFound
}

func (m *mockDirectory) FindByNameDOB(ctx context.Context, lastName string, birthDate time.Time) ([]*patient.Patient, error) {
	m.nameLookups++
	var hits []*patient.Patient
	for _, p := range m.patients {
		if p.BirthDate == nil {
			continue
		}
		if equalFold(p.LastName, lastName) && p.BirthDate.Equal(birthDate) {
			hits = append(hits, p)
		}
	}
	return hits, nil
}

func (m *mockDirectory) ListActive(ctx context.Context) ([]*patient.Patient, error) {
	m.scans++
	return m.patients, nil
}

func (m *mockDirectory) Create(ctx context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.created = append(m.created, p)
	m.patients = append(m.patients, p)
	return nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func dob(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testPatient(first, last string, birth *time.Time, idNumber string) *patient.Patient {
	p := &patient.Patient{
		ID:        uuid.New(),
		Active:    true,
		FirstName: first,
		LastName:  last,
		BirthDate: birth,
	}
	if idNumber != "" {
		p.IDNumber = &idNumber
	}
	return p
}

func TestMatch_ExactIDNumber(t *testing.T) {
	existing := testPatient("Thabo", "Nkosi", dob("1980-01-01"), "8001015009087")
	dir := &mockDirectory{
		byIDNumber: map[string]*patient.Patient{"8001015009087": existing},
		patients:   []*patient.Patient{existing},
	}
	m := NewMatcher(dir)

	// deliberately wrong name and dob: the identifier still dominates
	cands, err := m.Match(context.Background(), Demographics{
		IDNumber:  "8001015009087",
		FirstName: "Completely",
		LastName:  "Different",
		BirthDate: dob("1999-12-31"),
	}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.PatientID != existing.ID {
		t.Errorf("wrong patient: %s", c.PatientID)
	}
	if c.ConfidenceTier != TierHigh {
		t.Errorf("tier = %s, want HIGH", c.ConfidenceTier)
	}
	if c.Method != MethodIDNumber {
		t.Errorf("method = %s, want ID_NUMBER", c.Method)
	}
	if c.Score < 95 {
		t.Errorf("score = %d, want >= 95", c.Score)
	}
	if dir.nameLookups != 0 || dir.scans != 0 {
		t.Errorf("lower tiers ran after an exact id hit")
	}
}

func TestMatch_NameDOBBeatsFuzzy(t *testing.T) {
	existing := testPatient("John", "Smith", dob("1990-01-01"), "")
	dir := &mockDirectory{patients: []*patient.Patient{existing}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{
		FirstName: "Jon",
		LastName:  "Smith",
		BirthDate: dob("1990-01-01"),
	}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected one candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Method != MethodNameDOB {
		t.Errorf("method = %s, want NAME_DOB", c.Method)
	}
	if c.ConfidenceTier != TierMedium && c.ConfidenceTier != TierHigh {
		t.Errorf("tier = %s, want MEDIUM or HIGH", c.ConfidenceTier)
	}
	if dir.scans != 0 {
		t.Error("fuzzy tier ran although name+dob matched")
	}
}

func TestMatch_NameDOBExactFirstNameIsHigh(t *testing.T) {
	existing := testPatient("John", "Smith", dob("1990-01-01"), "")
	dir := &mockDirectory{patients: []*patient.Patient{existing}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{
		FirstName: "john",
		LastName:  "Smith",
		BirthDate: dob("1990-01-01"),
	}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 1 || cands[0].ConfidenceTier != TierHigh {
		t.Fatalf("expected one HIGH candidate, got %+v", cands)
	}
}

func TestMatch_FuzzyName(t *testing.T) {
	existing := testPatient("Jonathan", "Smith", nil, "")
	dir := &mockDirectory{patients: []*patient.Patient{existing}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{
		FirstName: "Jonathon",
		LastName:  "Smyth",
	}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected one fuzzy candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Method != MethodFuzzyName {
		t.Errorf("method = %s, want FUZZY_NAME", c.Method)
	}
	if c.Score < 75 {
		t.Errorf("score = %d, want >= 75 (similarity >= 0.75)", c.Score)
	}
	if c.ConfidenceTier != TierLow && c.ConfidenceTier != TierMedium {
		t.Errorf("tier = %s, want LOW or MEDIUM", c.ConfidenceTier)
	}
}

func TestMatch_FuzzySortedDescending(t *testing.T) {
	dir := &mockDirectory{patients: []*patient.Patient{
		testPatient("Johan", "Smith", nil, ""),
		testPatient("Jonathan", "Smith", nil, ""),
	}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{FirstName: "Jonathan", LastName: "Smith"}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[i-1].Score {
			t.Fatalf("candidates not sorted descending: %+v", cands)
		}
	}
}

func TestMatch_EmptyDemographics(t *testing.T) {
	dir := &mockDirectory{patients: []*patient.Patient{testPatient("A", "B", nil, "")}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
	if dir.idLookups+dir.nameLookups+dir.scans != 0 {
		t.Error("store was queried for empty demographics")
	}
}

func TestMatch_NoMatchReturnsEmpty(t *testing.T) {
	dir := &mockDirectory{byIDNumber: map[string]*patient.Patient{}}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{IDNumber: "9002026000000"}, Options{})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
}

func TestMatch_AllTiersDeduplicates(t *testing.T) {
	existing := testPatient("John", "Smith", dob("1990-01-01"), "8001015009087")
	dir := &mockDirectory{
		byIDNumber: map[string]*patient.Patient{"8001015009087": existing},
		patients:   []*patient.Patient{existing},
	}
	m := NewMatcher(dir)

	cands, err := m.Match(context.Background(), Demographics{
		IDNumber:  "8001015009087",
		FirstName: "John",
		LastName:  "Smith",
		BirthDate: dob("1990-01-01"),
	}, Options{AllTiers: true})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected deduplicated single candidate, got %d", len(cands))
	}
	if cands[0].Method != MethodIDNumber {
		t.Errorf("highest-priority method should win, got %s", cands[0].Method)
	}
}

func TestResolveSingle_HighWins(t *testing.T) {
	existing := testPatient("John", "Smith", dob("1990-01-01"), "8001015009087")
	dir := &mockDirectory{
		byIDNumber: map[string]*patient.Patient{"8001015009087": existing},
		patients:   []*patient.Patient{existing},
	}
	m := NewMatcher(dir)

	c, err := m.ResolveSingle(context.Background(), Demographics{IDNumber: "8001015009087"})
	if err != nil {
		t.Fatalf("ResolveSingle: %v", err)
	}
	if c == nil || c.PatientID != existing.ID {
		t.Fatalf("expected HIGH candidate auto-link, got %+v", c)
	}
}

func TestResolveSingle_AmbiguousMediumIsError(t *testing.T) {
	dir := &mockDirectory{patients: []*patient.Patient{
		testPatient("Jon", "Smith", dob("1990-01-01"), ""),
		testPatient("Joan", "Smith", dob("1990-01-01"), ""),
	}}
	m := NewMatcher(dir)

	_, err := m.ResolveSingle(context.Background(), Demographics{
		FirstName: "J",
		LastName:  "Smith",
		BirthDate: dob("1990-01-01"),
	})
	if err != ErrAmbiguous {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestConfirmNewPatient_RequiresConfirmation(t *testing.T) {
	dir := &mockDirectory{}
	m := NewMatcher(dir)

	_, err := m.ConfirmNewPatient(context.Background(), Demographics{FirstName: "New", LastName: "Patient"}, nil, false)
	if err == nil {
		t.Fatal("expected an error without explicit confirmation")
	}
	if len(dir.created) != 0 {
		t.Fatal("a patient was created without confirmation")
	}
}

func TestConfirmNewPatient_FromDocument(t *testing.T) {
	dir := &mockDirectory{}
	m := NewMatcher(dir)
	docID := uuid.New()

	p, err := m.ConfirmNewPatient(context.Background(), Demographics{
		IDNumber:  "8001015009087",
		FirstName: "New",
		LastName:  "Patient",
		BirthDate: dob("1980-01-01"),
	}, &docID, true)
	if err != nil {
		t.Fatalf("ConfirmNewPatient: %v", err)
	}
	if p.Source != patient.SourceDocumentExtraction {
		t.Errorf("source = %s, want document_extraction", p.Source)
	}
	if p.CreatedFromDocumentID == nil || *p.CreatedFromDocumentID != docID {
		t.Error("created_from_document_id not set")
	}
	if p.IDNumber == nil || *p.IDNumber != "8001015009087" {
		t.Error("id number not carried over")
	}
}
