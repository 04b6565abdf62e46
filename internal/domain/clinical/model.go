package clinical

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one row bound for a clinical table. Populated records are built
// field by field from extraction mappings, so every type exposes SetField
// with an explicit column switch; unknown columns and wrong value types are
// per-field errors, not panics.
type Record interface {
	Table() string
	SetField(name string, v interface{}) error
	// FlagReview marks the record for mandatory human review (set when a
	// low-confidence lookup or below-threshold ai_match contributed a field).
	FlagReview()
}

// Base carries the columns every clinical table shares. Extraction-sourced
// rows keep a back-reference to the originating document; extraction never
// updates or deletes an existing row.
type Base struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	EncounterID      *uuid.UUID `db:"encounter_id" json:"encounter_id,omitempty"`
	Source           string     `db:"source" json:"source"`
	SourceDocumentID *uuid.UUID `db:"source_document_id" json:"source_document_id,omitempty"`
	NeedsReview      bool       `db:"needs_review" json:"needs_review"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

func (b *Base) FlagReview() { b.NeedsReview = true }

// Allergy maps to the allergy table. Natural key: substance + status.
type Allergy struct {
	Base
	Substance string     `db:"substance" json:"substance"`
	Reaction  *string    `db:"reaction" json:"reaction,omitempty"`
	Severity  *string    `db:"severity" json:"severity,omitempty"`
	Status    string     `db:"status" json:"status"`
	OnsetDate *time.Time `db:"onset_date" json:"onset_date,omitempty"`
	Note      *string    `db:"note" json:"note,omitempty"`
}

func (a *Allergy) Table() string { return "allergies" }

func (a *Allergy) SetField(name string, v interface{}) error {
	switch name {
	case "substance":
		return setString(&a.Substance, name, v)
	case "reaction":
		return setStringPtr(&a.Reaction, name, v)
	case "severity":
		return setStringPtr(&a.Severity, name, v)
	case "status":
		return setString(&a.Status, name, v)
	case "onset_date":
		return setTimePtr(&a.OnsetDate, name, v)
	case "note":
		return setStringPtr(&a.Note, name, v)
	default:
		return fmt.Errorf("allergies: unknown field %q", name)
	}
}

// Diagnosis maps to the diagnosis table. Natural key: name + code.
type Diagnosis struct {
	Base
	Name          string     `db:"name" json:"name"`
	Code          *string    `db:"code" json:"code,omitempty"`
	CodingSystem  *string    `db:"coding_system" json:"coding_system,omitempty"`
	Status        *string    `db:"status" json:"status,omitempty"`
	DiagnosedDate *time.Time `db:"diagnosed_date" json:"diagnosed_date,omitempty"`
	Note          *string    `db:"note" json:"note,omitempty"`
}

func (d *Diagnosis) Table() string { return "diagnoses" }

func (d *Diagnosis) SetField(name string, v interface{}) error {
	switch name {
	case "name":
		return setString(&d.Name, name, v)
	case "code":
		return setStringPtr(&d.Code, name, v)
	case "coding_system":
		return setStringPtr(&d.CodingSystem, name, v)
	case "status":
		return setStringPtr(&d.Status, name, v)
	case "diagnosed_date":
		return setTimePtr(&d.DiagnosedDate, name, v)
	case "note":
		return setStringPtr(&d.Note, name, v)
	default:
		return fmt.Errorf("diagnoses: unknown field %q", name)
	}
}

// Vital maps to the vital table, one row per set of same-day measurements.
// Natural key: recorded date.
type Vital struct {
	Base
	RecordedAt      *time.Time `db:"recorded_at" json:"recorded_at,omitempty"`
	BPSystolic      *float64   `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic     *float64   `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	HeartRate       *float64   `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate *float64   `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	Temperature     *float64   `db:"temperature" json:"temperature,omitempty"`
	SpO2            *float64   `db:"spo2" json:"spo2,omitempty"`
	WeightKg        *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm        *float64   `db:"height_cm" json:"height_cm,omitempty"`
	BMI             *float64   `db:"bmi" json:"bmi,omitempty"`
}

func (vt *Vital) Table() string { return "vitals" }

func (vt *Vital) SetField(name string, v interface{}) error {
	switch name {
	case "recorded_at":
		return setTimePtr(&vt.RecordedAt, name, v)
	case "bp_systolic":
		return setFloatPtr(&vt.BPSystolic, name, v)
	case "bp_diastolic":
		return setFloatPtr(&vt.BPDiastolic, name, v)
	case "heart_rate":
		return setFloatPtr(&vt.HeartRate, name, v)
	case "respiratory_rate":
		return setFloatPtr(&vt.RespiratoryRate, name, v)
	case "temperature":
		return setFloatPtr(&vt.Temperature, name, v)
	case "spo2":
		return setFloatPtr(&vt.SpO2, name, v)
	case "weight_kg":
		return setFloatPtr(&vt.WeightKg, name, v)
	case "height_cm":
		return setFloatPtr(&vt.HeightCm, name, v)
	case "bmi":
		return setFloatPtr(&vt.BMI, name, v)
	default:
		return fmt.Errorf("vitals: unknown field %q", name)
	}
}

// Immunization maps to the immunization table. Natural key: vaccine +
// administered date.
type Immunization struct {
	Base
	VaccineName      string     `db:"vaccine_name" json:"vaccine_name"`
	VaccineCode      *string    `db:"vaccine_code" json:"vaccine_code,omitempty"`
	AdministeredDate *time.Time `db:"administered_date" json:"administered_date,omitempty"`
	DoseNumber       *float64   `db:"dose_number" json:"dose_number,omitempty"`
	LotNumber        *string    `db:"lot_number" json:"lot_number,omitempty"`
	Site             *string    `db:"site" json:"site,omitempty"`
}

func (im *Immunization) Table() string { return "immunizations" }

func (im *Immunization) SetField(name string, v interface{}) error {
	switch name {
	case "vaccine_name":
		return setString(&im.VaccineName, name, v)
	case "vaccine_code":
		return setStringPtr(&im.VaccineCode, name, v)
	case "administered_date":
		return setTimePtr(&im.AdministeredDate, name, v)
	case "dose_number":
		return setFloatPtr(&im.DoseNumber, name, v)
	case "lot_number":
		return setStringPtr(&im.LotNumber, name, v)
	case "site":
		return setStringPtr(&im.Site, name, v)
	default:
		return fmt.Errorf("immunizations: unknown field %q", name)
	}
}

// LabResult maps to the lab_result table. Natural key: test + collected date.
type LabResult struct {
	Base
	TestName       string     `db:"test_name" json:"test_name"`
	TestCode       *string    `db:"test_code" json:"test_code,omitempty"`
	Value          *string    `db:"value" json:"value,omitempty"`
	ValueNum       *float64   `db:"value_num" json:"value_num,omitempty"`
	Unit           *string    `db:"unit" json:"unit,omitempty"`
	ReferenceRange *string    `db:"reference_range" json:"reference_range,omitempty"`
	CollectedDate  *time.Time `db:"collected_date" json:"collected_date,omitempty"`
}

func (lr *LabResult) Table() string { return "lab_results" }

func (lr *LabResult) SetField(name string, v interface{}) error {
	switch name {
	case "test_name":
		return setString(&lr.TestName, name, v)
	case "test_code":
		return setStringPtr(&lr.TestCode, name, v)
	case "value":
		return setStringPtr(&lr.Value, name, v)
	case "value_num":
		return setFloatPtr(&lr.ValueNum, name, v)
	case "unit":
		return setStringPtr(&lr.Unit, name, v)
	case "reference_range":
		return setStringPtr(&lr.ReferenceRange, name, v)
	case "collected_date":
		return setTimePtr(&lr.CollectedDate, name, v)
	default:
		return fmt.Errorf("lab_results: unknown field %q", name)
	}
}

// Prescription maps to the prescription table. Natural key: medication +
// prescribed date.
type Prescription struct {
	Base
	MedicationName string     `db:"medication_name" json:"medication_name"`
	MedicationCode *string    `db:"medication_code" json:"medication_code,omitempty"`
	Dosage         *string    `db:"dosage" json:"dosage,omitempty"`
	Frequency      *string    `db:"frequency" json:"frequency,omitempty"`
	Duration       *string    `db:"duration" json:"duration,omitempty"`
	Instructions   *string    `db:"instructions" json:"instructions,omitempty"`
	PrescribedDate *time.Time `db:"prescribed_date" json:"prescribed_date,omitempty"`
}

func (p *Prescription) Table() string { return "prescriptions" }

func (p *Prescription) SetField(name string, v interface{}) error {
	switch name {
	case "medication_name":
		return setString(&p.MedicationName, name, v)
	case "medication_code":
		return setStringPtr(&p.MedicationCode, name, v)
	case "dosage":
		return setStringPtr(&p.Dosage, name, v)
	case "frequency":
		return setStringPtr(&p.Frequency, name, v)
	case "duration":
		return setStringPtr(&p.Duration, name, v)
	case "instructions":
		return setStringPtr(&p.Instructions, name, v)
	case "prescribed_date":
		return setTimePtr(&p.PrescribedDate, name, v)
	default:
		return fmt.Errorf("prescriptions: unknown field %q", name)
	}
}

// Procedure maps to the procedure table. Natural key: name + performed date.
type Procedure struct {
	Base
	Name          string     `db:"name" json:"name"`
	Code          *string    `db:"code" json:"code,omitempty"`
	PerformedDate *time.Time `db:"performed_date" json:"performed_date,omitempty"`
	Note          *string    `db:"note" json:"note,omitempty"`
}

func (pr *Procedure) Table() string { return "procedures" }

func (pr *Procedure) SetField(name string, v interface{}) error {
	switch name {
	case "name":
		return setString(&pr.Name, name, v)
	case "code":
		return setStringPtr(&pr.Code, name, v)
	case "performed_date":
		return setTimePtr(&pr.PerformedDate, name, v)
	case "note":
		return setStringPtr(&pr.Note, name, v)
	default:
		return fmt.Errorf("procedures: unknown field %q", name)
	}
}

// -- typed setter helpers --

func setString(dst *string, name string, v interface{}) error {
	s, err := asString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = s
	return nil
}

func setStringPtr(dst **string, name string, v interface{}) error {
	s, err := asString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = &s
	return nil
}

func setFloatPtr(dst **float64, name string, v interface{}) error {
	switch val := v.(type) {
	case float64:
		*dst = &val
		return nil
	case int:
		f := float64(val)
		*dst = &f
		return nil
	default:
		return fmt.Errorf("%s: expected number, got %T", name, v)
	}
}

func setTimePtr(dst **time.Time, name string, v interface{}) error {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("%s: expected date, got %T", name, v)
	}
	*dst = &t
	return nil
}

func asString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case float64:
		return fmt.Sprintf("%v", val), nil
	case json.RawMessage:
		return string(val), nil
	default:
		return "", fmt.Errorf("expected text, got %T", v)
	}
}
