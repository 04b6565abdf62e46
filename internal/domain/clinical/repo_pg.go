package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chartdesk/chartdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type pgBase struct{ pool *pgxpool.Pool }

func (r pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func newBase(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Base {
	return Base{
		PatientID:        patientID,
		EncounterID:      encounterID,
		Source:           source,
		SourceDocumentID: sourceDocumentID,
	}
}

// Stores returns one Store per target table, keyed by table name.
func Stores(pool *pgxpool.Pool) map[string]Store {
	stores := map[string]Store{}
	for _, s := range []Store{
		NewAllergyStorePG(pool),
		NewDiagnosisStorePG(pool),
		NewVitalStorePG(pool),
		NewImmunizationStorePG(pool),
		NewLabResultStorePG(pool),
		NewPrescriptionStorePG(pool),
		NewProcedureStorePG(pool),
	} {
		stores[s.Table()] = s
	}
	return stores
}

// =========== Allergies ===========

type allergyStorePG struct{ pgBase }

func NewAllergyStorePG(pool *pgxpool.Pool) Store { return &allergyStorePG{pgBase{pool}} }

func (s *allergyStorePG) Table() string { return "allergies" }

func (s *allergyStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Allergy{Base: newBase(patientID, encounterID, sourceDocumentID, source), Status: "active"}
}

func (s *allergyStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	a, ok := rec.(*Allergy)
	if !ok {
		return false, fmt.Errorf("allergies: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM allergies
			WHERE patient_id = $1 AND LOWER(substance) = LOWER($2) AND status = $3)`,
		a.PatientID, a.Substance, a.Status).Scan(&exists)
	return exists, err
}

func (s *allergyStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	a, ok := rec.(*Allergy)
	if !ok {
		return uuid.Nil, fmt.Errorf("allergies: wrong record type %T", rec)
	}
	a.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO allergies (id, patient_id, encounter_id, source, source_document_id,
			needs_review, substance, reaction, severity, status, onset_date, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.PatientID, a.EncounterID, a.Source, a.SourceDocumentID,
		a.NeedsReview, a.Substance, a.Reaction, a.Severity, a.Status, a.OnsetDate, a.Note)
	return a.ID, err
}

const allergyCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	substance, reaction, severity, status, onset_date, note, created_at`

func (s *allergyStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), allergyCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var a Allergy
		err := rows.Scan(&a.ID, &a.PatientID, &a.EncounterID, &a.Source, &a.SourceDocumentID, &a.NeedsReview,
			&a.Substance, &a.Reaction, &a.Severity, &a.Status, &a.OnsetDate, &a.Note, &a.CreatedAt)
		return &a, err
	})
}

// =========== Diagnoses ===========

type diagnosisStorePG struct{ pgBase }

func NewDiagnosisStorePG(pool *pgxpool.Pool) Store { return &diagnosisStorePG{pgBase{pool}} }

func (s *diagnosisStorePG) Table() string { return "diagnoses" }

func (s *diagnosisStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Diagnosis{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *diagnosisStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	d, ok := rec.(*Diagnosis)
	if !ok {
		return false, fmt.Errorf("diagnoses: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM diagnoses
			WHERE patient_id = $1 AND LOWER(name) = LOWER($2) AND code IS NOT DISTINCT FROM $3)`,
		d.PatientID, d.Name, d.Code).Scan(&exists)
	return exists, err
}

func (s *diagnosisStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	d, ok := rec.(*Diagnosis)
	if !ok {
		return uuid.Nil, fmt.Errorf("diagnoses: wrong record type %T", rec)
	}
	d.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO diagnoses (id, patient_id, encounter_id, source, source_document_id,
			needs_review, name, code, coding_system, status, diagnosed_date, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.PatientID, d.EncounterID, d.Source, d.SourceDocumentID,
		d.NeedsReview, d.Name, d.Code, d.CodingSystem, d.Status, d.DiagnosedDate, d.Note)
	return d.ID, err
}

const diagnosisCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	name, code, coding_system, status, diagnosed_date, note, created_at`

func (s *diagnosisStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), diagnosisCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var d Diagnosis
		err := rows.Scan(&d.ID, &d.PatientID, &d.EncounterID, &d.Source, &d.SourceDocumentID, &d.NeedsReview,
			&d.Name, &d.Code, &d.CodingSystem, &d.Status, &d.DiagnosedDate, &d.Note, &d.CreatedAt)
		return &d, err
	})
}

// =========== Vitals ===========

type vitalStorePG struct{ pgBase }

func NewVitalStorePG(pool *pgxpool.Pool) Store { return &vitalStorePG{pgBase{pool}} }

func (s *vitalStorePG) Table() string { return "vitals" }

func (s *vitalStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Vital{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *vitalStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	vt, ok := rec.(*Vital)
	if !ok {
		return false, fmt.Errorf("vitals: wrong record type %T", rec)
	}
	// Same-day vitals from the same document are duplicates; manual entries
	// on the same day are not.
	if vt.RecordedAt == nil || vt.SourceDocumentID == nil {
		return false, nil
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vitals
			WHERE patient_id = $1 AND recorded_at::date = $2::date AND source_document_id = $3)`,
		vt.PatientID, vt.RecordedAt, vt.SourceDocumentID).Scan(&exists)
	return exists, err
}

func (s *vitalStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	vt, ok := rec.(*Vital)
	if !ok {
		return uuid.Nil, fmt.Errorf("vitals: wrong record type %T", rec)
	}
	vt.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO vitals (id, patient_id, encounter_id, source, source_document_id, needs_review,
			recorded_at, bp_systolic, bp_diastolic, heart_rate, respiratory_rate,
			temperature, spo2, weight_kg, height_cm, bmi)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		vt.ID, vt.PatientID, vt.EncounterID, vt.Source, vt.SourceDocumentID, vt.NeedsReview,
		vt.RecordedAt, vt.BPSystolic, vt.BPDiastolic, vt.HeartRate, vt.RespiratoryRate,
		vt.Temperature, vt.SpO2, vt.WeightKg, vt.HeightCm, vt.BMI)
	return vt.ID, err
}

const vitalCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	recorded_at, bp_systolic, bp_diastolic, heart_rate, respiratory_rate,
	temperature, spo2, weight_kg, height_cm, bmi, created_at`

func (s *vitalStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), vitalCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var vt Vital
		err := rows.Scan(&vt.ID, &vt.PatientID, &vt.EncounterID, &vt.Source, &vt.SourceDocumentID, &vt.NeedsReview,
			&vt.RecordedAt, &vt.BPSystolic, &vt.BPDiastolic, &vt.HeartRate, &vt.RespiratoryRate,
			&vt.Temperature, &vt.SpO2, &vt.WeightKg, &vt.HeightCm, &vt.BMI, &vt.CreatedAt)
		return &vt, err
	})
}

// =========== Immunizations ===========

type immunizationStorePG struct{ pgBase }

func NewImmunizationStorePG(pool *pgxpool.Pool) Store { return &immunizationStorePG{pgBase{pool}} }

func (s *immunizationStorePG) Table() string { return "immunizations" }

func (s *immunizationStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Immunization{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *immunizationStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	im, ok := rec.(*Immunization)
	if !ok {
		return false, fmt.Errorf("immunizations: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM immunizations
			WHERE patient_id = $1 AND LOWER(vaccine_name) = LOWER($2)
			  AND administered_date IS NOT DISTINCT FROM $3)`,
		im.PatientID, im.VaccineName, im.AdministeredDate).Scan(&exists)
	return exists, err
}

func (s *immunizationStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	im, ok := rec.(*Immunization)
	if !ok {
		return uuid.Nil, fmt.Errorf("immunizations: wrong record type %T", rec)
	}
	im.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO immunizations (id, patient_id, encounter_id, source, source_document_id,
			needs_review, vaccine_name, vaccine_code, administered_date, dose_number, lot_number, site)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		im.ID, im.PatientID, im.EncounterID, im.Source, im.SourceDocumentID,
		im.NeedsReview, im.VaccineName, im.VaccineCode, im.AdministeredDate, im.DoseNumber, im.LotNumber, im.Site)
	return im.ID, err
}

const immunizationCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	vaccine_name, vaccine_code, administered_date, dose_number, lot_number, site, created_at`

func (s *immunizationStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), immunizationCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var im Immunization
		err := rows.Scan(&im.ID, &im.PatientID, &im.EncounterID, &im.Source, &im.SourceDocumentID, &im.NeedsReview,
			&im.VaccineName, &im.VaccineCode, &im.AdministeredDate, &im.DoseNumber, &im.LotNumber, &im.Site, &im.CreatedAt)
		return &im, err
	})
}

// =========== Lab results ===========

type labResultStorePG struct{ pgBase }

func NewLabResultStorePG(pool *pgxpool.Pool) Store { return &labResultStorePG{pgBase{pool}} }

func (s *labResultStorePG) Table() string { return "lab_results" }

func (s *labResultStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &LabResult{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *labResultStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	lr, ok := rec.(*LabResult)
	if !ok {
		return false, fmt.Errorf("lab_results: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM lab_results
			WHERE patient_id = $1 AND LOWER(test_name) = LOWER($2)
			  AND collected_date IS NOT DISTINCT FROM $3)`,
		lr.PatientID, lr.TestName, lr.CollectedDate).Scan(&exists)
	return exists, err
}

func (s *labResultStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	lr, ok := rec.(*LabResult)
	if !ok {
		return uuid.Nil, fmt.Errorf("lab_results: wrong record type %T", rec)
	}
	lr.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO lab_results (id, patient_id, encounter_id, source, source_document_id,
			needs_review, test_name, test_code, value, value_num, unit, reference_range, collected_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		lr.ID, lr.PatientID, lr.EncounterID, lr.Source, lr.SourceDocumentID,
		lr.NeedsReview, lr.TestName, lr.TestCode, lr.Value, lr.ValueNum, lr.Unit, lr.ReferenceRange, lr.CollectedDate)
	return lr.ID, err
}

const labResultCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	test_name, test_code, value, value_num, unit, reference_range, collected_date, created_at`

func (s *labResultStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), labResultCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var lr LabResult
		err := rows.Scan(&lr.ID, &lr.PatientID, &lr.EncounterID, &lr.Source, &lr.SourceDocumentID, &lr.NeedsReview,
			&lr.TestName, &lr.TestCode, &lr.Value, &lr.ValueNum, &lr.Unit, &lr.ReferenceRange, &lr.CollectedDate, &lr.CreatedAt)
		return &lr, err
	})
}

// =========== Prescriptions ===========

type prescriptionStorePG struct{ pgBase }

func NewPrescriptionStorePG(pool *pgxpool.Pool) Store { return &prescriptionStorePG{pgBase{pool}} }

func (s *prescriptionStorePG) Table() string { return "prescriptions" }

func (s *prescriptionStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Prescription{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *prescriptionStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	p, ok := rec.(*Prescription)
	if !ok {
		return false, fmt.Errorf("prescriptions: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM prescriptions
			WHERE patient_id = $1 AND LOWER(medication_name) = LOWER($2)
			  AND prescribed_date IS NOT DISTINCT FROM $3)`,
		p.PatientID, p.MedicationName, p.PrescribedDate).Scan(&exists)
	return exists, err
}

func (s *prescriptionStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	p, ok := rec.(*Prescription)
	if !ok {
		return uuid.Nil, fmt.Errorf("prescriptions: wrong record type %T", rec)
	}
	p.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, encounter_id, source, source_document_id,
			needs_review, medication_name, medication_code, dosage, frequency, duration,
			instructions, prescribed_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.PatientID, p.EncounterID, p.Source, p.SourceDocumentID,
		p.NeedsReview, p.MedicationName, p.MedicationCode, p.Dosage, p.Frequency, p.Duration,
		p.Instructions, p.PrescribedDate)
	return p.ID, err
}

const prescriptionCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	medication_name, medication_code, dosage, frequency, duration, instructions, prescribed_date, created_at`

func (s *prescriptionStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), prescriptionCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var p Prescription
		err := rows.Scan(&p.ID, &p.PatientID, &p.EncounterID, &p.Source, &p.SourceDocumentID, &p.NeedsReview,
			&p.MedicationName, &p.MedicationCode, &p.Dosage, &p.Frequency, &p.Duration, &p.Instructions, &p.PrescribedDate, &p.CreatedAt)
		return &p, err
	})
}

// =========== Procedures ===========

type procedureStorePG struct{ pgBase }

func NewProcedureStorePG(pool *pgxpool.Pool) Store { return &procedureStorePG{pgBase{pool}} }

func (s *procedureStorePG) Table() string { return "procedures" }

func (s *procedureStorePG) New(patientID uuid.UUID, encounterID, sourceDocumentID *uuid.UUID, source string) Record {
	return &Procedure{Base: newBase(patientID, encounterID, sourceDocumentID, source)}
}

func (s *procedureStorePG) Exists(ctx context.Context, rec Record) (bool, error) {
	pr, ok := rec.(*Procedure)
	if !ok {
		return false, fmt.Errorf("procedures: wrong record type %T", rec)
	}
	var exists bool
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM procedures
			WHERE patient_id = $1 AND LOWER(name) = LOWER($2)
			  AND performed_date IS NOT DISTINCT FROM $3)`,
		pr.PatientID, pr.Name, pr.PerformedDate).Scan(&exists)
	return exists, err
}

func (s *procedureStorePG) Insert(ctx context.Context, rec Record) (uuid.UUID, error) {
	pr, ok := rec.(*Procedure)
	if !ok {
		return uuid.Nil, fmt.Errorf("procedures: wrong record type %T", rec)
	}
	pr.ID = uuid.New()
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO procedures (id, patient_id, encounter_id, source, source_document_id,
			needs_review, name, code, performed_date, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		pr.ID, pr.PatientID, pr.EncounterID, pr.Source, pr.SourceDocumentID,
		pr.NeedsReview, pr.Name, pr.Code, pr.PerformedDate, pr.Note)
	return pr.ID, err
}

const procedureCols = `id, patient_id, encounter_id, source, source_document_id, needs_review,
	name, code, performed_date, note, created_at`

func (s *procedureStorePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	return listRecords(ctx, s.conn(ctx), s.Table(), procedureCols, patientID, limit, offset, func(rows pgx.Rows) (Record, error) {
		var pr Procedure
		err := rows.Scan(&pr.ID, &pr.PatientID, &pr.EncounterID, &pr.Source, &pr.SourceDocumentID, &pr.NeedsReview,
			&pr.Name, &pr.Code, &pr.PerformedDate, &pr.Note, &pr.CreatedAt)
		return &pr, err
	})
}

// listRecords runs the shared count+page query for a table.
func listRecords(ctx context.Context, q queryable, table, cols string, patientID uuid.UUID, limit, offset int, scan func(pgx.Rows) (Record, error)) ([]Record, int, error) {
	var total int
	if err := q.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE patient_id = $1`, table), patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, cols, table), patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
