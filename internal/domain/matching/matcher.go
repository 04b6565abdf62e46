// Package matching links extracted document demographics to patient records.
//
// Matching must only ever run against demographics a human has validated or
// corrected, never against raw OCR output. The pipeline is: extract, validate
// identifying fields, match, then confirm or create. Matching earlier is the
// known cause of duplicate patient records (a misread digit in an id number
// produces a false "no match" against a real patient).
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chartdesk/chartdesk/internal/domain/patient"
)

// Confidence tiers.
const (
	TierHigh   = "HIGH"
	TierMedium = "MEDIUM"
	TierLow    = "LOW"
	TierNone   = "NONE"
)

// Match methods, in priority order.
const (
	MethodIDNumber  = "ID_NUMBER"
	MethodNameDOB   = "NAME_DOB"
	MethodFuzzyName = "FUZZY_NAME"
)

// FuzzyThreshold is the minimum full-name similarity for a fuzzy candidate.
const FuzzyThreshold = 0.75

// exactIDScore is the fixed score for an exact identifier hit.
const exactIDScore = 98

// ErrAmbiguous is returned by ResolveSingle when several candidates tie and
// no HIGH-confidence winner exists; callers must ask a human to choose.
var ErrAmbiguous = errors.New("ambiguous match: human disambiguation required")

// Demographics are the validated identifying fields extracted from a document.
type Demographics struct {
	IDNumber  string     `json:"id_number,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// Empty reports whether no usable identifying field is present.
func (d Demographics) Empty() bool {
	return strings.TrimSpace(d.IDNumber) == "" &&
		strings.TrimSpace(d.FirstName) == "" &&
		strings.TrimSpace(d.LastName) == "" &&
		d.BirthDate == nil
}

func (d Demographics) fullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// Candidate is one possible patient match. Not persisted.
type Candidate struct {
	PatientID      uuid.UUID `json:"patient_id"`
	ConfidenceTier string    `json:"confidence_tier"`
	Method         string    `json:"method"`
	Score          int       `json:"score"` // 0-100
}

// PatientDirectory is the read surface the matcher needs from the patient
// store. patient.Repository satisfies it.
type PatientDirectory interface {
	GetByIDNumber(ctx context.Context, idNumber string) (*patient.Patient, error)
	FindByNameDOB(ctx context.Context, lastName string, birthDate time.Time) ([]*patient.Patient, error)
	ListActive(ctx context.Context) ([]*patient.Patient, error)
	Create(ctx context.Context, p *patient.Patient) error
}

type Matcher struct {
	patients PatientDirectory
}

func NewMatcher(patients PatientDirectory) *Matcher {
	return &Matcher{patients: patients}
}

// Options controls matching behavior.
type Options struct {
	// AllTiers runs every tier instead of stopping at the first that yields
	// a result, deduplicating by patient id (highest-priority method wins).
	AllTiers bool
}

// Match searches the patient store in strict tier order. It performs no
// writes. An empty Demographics returns an empty slice without touching the
// store.
func (m *Matcher) Match(ctx context.Context, d Demographics, opts Options) ([]Candidate, error) {
	if d.Empty() {
		return nil, nil
	}

	var out []Candidate
	seen := make(map[uuid.UUID]bool)
	add := func(cands ...Candidate) {
		for _, c := range cands {
			if !seen[c.PatientID] {
				seen[c.PatientID] = true
				out = append(out, c)
			}
		}
	}

	// Tier 1: exact identifier.
	if id := strings.TrimSpace(d.IDNumber); id != "" {
		p, err := m.patients.GetByIDNumber(ctx, id)
		switch {
		case err == nil:
			add(Candidate{PatientID: p.ID, ConfidenceTier: TierHigh, Method: MethodIDNumber, Score: exactIDScore})
			if !opts.AllTiers {
				return out, nil
			}
		case errors.Is(err, patient.ErrNotFound):
			// fall through to the next tier
		default:
			return nil, fmt.Errorf("id number lookup: %w", err)
		}
	}

	// Tier 2: last name + date of birth.
	if strings.TrimSpace(d.LastName) != "" && d.BirthDate != nil {
		hits, err := m.patients.FindByNameDOB(ctx, strings.TrimSpace(d.LastName), *d.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("name+dob lookup: %w", err)
		}
		for _, p := range hits {
			add(scoreNameDOB(d, p))
		}
		if len(out) > 0 && !opts.AllTiers {
			return out, nil
		}
	}

	// Tier 3: fuzzy full-name scan.
	if name := d.fullName(); name != "" {
		all, err := m.patients.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("fuzzy name scan: %w", err)
		}
		var fuzzy []Candidate
		for _, p := range all {
			sim := jaroWinkler(name, p.FullName())
			if sim < FuzzyThreshold {
				continue
			}
			tier := TierLow
			if sim >= 0.85 {
				tier = TierMedium
			}
			fuzzy = append(fuzzy, Candidate{
				PatientID:      p.ID,
				ConfidenceTier: tier,
				Method:         MethodFuzzyName,
				Score:          int(sim * 100),
			})
		}
		sort.Slice(fuzzy, func(i, j int) bool { return fuzzy[i].Score > fuzzy[j].Score })
		add(fuzzy...)
	}

	return out, nil
}

// scoreNameDOB grades a name+dob hit: HIGH when the first name also matches
// exactly, MEDIUM otherwise.
func scoreNameDOB(d Demographics, p *patient.Patient) Candidate {
	c := Candidate{PatientID: p.ID, Method: MethodNameDOB, ConfidenceTier: TierMedium, Score: 75}
	if d.FirstName != "" && strings.EqualFold(strings.TrimSpace(d.FirstName), p.FirstName) {
		c.ConfidenceTier = TierHigh
		c.Score = 85
	}
	return c
}

// ResolveSingle picks the auto-linkable candidate, if any: exactly one HIGH
// candidate wins; zero candidates means "new patient" (returns nil, nil); a
// set of MEDIUM/LOW candidates is ErrAmbiguous.
func (m *Matcher) ResolveSingle(ctx context.Context, d Demographics) (*Candidate, error) {
	cands, err := m.Match(ctx, d, Options{})
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}
	if cands[0].ConfidenceTier == TierHigh {
		return &cands[0], nil
	}
	return nil, ErrAmbiguous
}

// ConfirmNewPatient creates a patient record from validated demographics.
// The confirmed flag is the explicit human sign-off required whenever
// matching returned no candidates; creation without it is refused.
func (m *Matcher) ConfirmNewPatient(ctx context.Context, d Demographics, sourceDocumentID *uuid.UUID, confirmed bool) (*patient.Patient, error) {
	if !confirmed {
		return nil, fmt.Errorf("creating a patient requires explicit confirmation")
	}
	if strings.TrimSpace(d.FirstName) == "" && strings.TrimSpace(d.LastName) == "" {
		return nil, fmt.Errorf("a validated name is required to create a patient")
	}

	p := &patient.Patient{
		Active:                true,
		FirstName:             strings.TrimSpace(d.FirstName),
		LastName:              strings.TrimSpace(d.LastName),
		BirthDate:             d.BirthDate,
		Source:                patient.SourceManualEntry,
		CreatedFromDocumentID: sourceDocumentID,
	}
	if sourceDocumentID != nil {
		p.Source = patient.SourceDocumentExtraction
	}
	if id := strings.TrimSpace(d.IDNumber); id != "" {
		p.IDNumber = &id
	}
	if err := m.patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}
