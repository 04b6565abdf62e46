package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

func connFrom(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// ---- documents ----

type documentRepoPG struct {
	pool *pgxpool.Pool
}

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepo {
	return &documentRepoPG{pool: pool}
}

const documentCols = `id, patient_id, document_type, file_name, status, status_reason,
	raw_sections, extracted_at, created_at, updated_at`

func (r *documentRepoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DocStatusPending
	}
	_, err := connFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO extracted_document (id, patient_id, document_type, file_name, status, status_reason, raw_sections, extracted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.PatientID, d.DocumentType, d.FileName, d.Status, d.StatusReason, d.RawSections, d.ExtractedAt)
	return err
}

func (r *documentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := connFrom(ctx, r.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM extracted_document WHERE id = $1`, documentCols), id)
	return scanDocument(row)
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.DocumentType, &d.FileName, &d.Status, &d.StatusReason,
		&d.RawSections, &d.ExtractedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *documentRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string, reason *string) error {
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE extracted_document SET status = $2, status_reason = $3, updated_at = now()
		WHERE id = $1`, id, status, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepoPG) AttachExtraction(ctx context.Context, id uuid.UUID, rawSections map[string]interface{}, extractedAt time.Time) error {
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE extracted_document SET raw_sections = $2, extracted_at = $3, updated_at = now()
		WHERE id = $1 AND raw_sections IS NULL`, id, rawSections, extractedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found or already extracted", id)
	}
	return nil
}

func (r *documentRepoPG) LinkPatient(ctx context.Context, id, patientID uuid.UUID) error {
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE extracted_document SET patient_id = $2, updated_at = now() WHERE id = $1`, id, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepoPG) List(ctx context.Context, status string, limit, offset int) ([]Document, int, error) {
	q := connFrom(ctx, r.pool)
	where, args := "", []interface{}{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM extracted_document`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM extracted_document%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		documentCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.PatientID, &d.DocumentType, &d.FileName, &d.Status, &d.StatusReason,
			&d.RawSections, &d.ExtractedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

// ---- histories ----

type historyRepoPG struct {
	pool *pgxpool.Pool
}

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepo {
	return &historyRepoPG{pool: pool}
}

const historyCols = `id, document_id, template_id, attempt, extraction_status,
	tables_populated, population_errors, skipped_duplicates, fields_extracted, records_created,
	validated, validated_by, validation_notes, validation_changes, created_at`

func (r *historyRepoPG) Create(ctx context.Context, h *History) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := connFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO extraction_history (id, document_id, template_id, attempt, extraction_status,
			tables_populated, population_errors, skipped_duplicates, fields_extracted, records_created,
			validated, validated_by, validation_notes, validation_changes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		h.ID, h.DocumentID, h.TemplateID, h.Attempt, h.ExtractionStatus,
		h.TablesPopulated, h.PopulationErrors, h.SkippedDuplicates, h.FieldsExtracted, h.RecordsCreated,
		h.Validated, h.ValidatedBy, h.ValidationNotes, h.ValidationChanges)
	return err
}

func (r *historyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*History, error) {
	row := connFrom(ctx, r.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM extraction_history WHERE id = $1`, historyCols), id)
	return scanHistory(row)
}

func (r *historyRepoPG) LatestByDocument(ctx context.Context, documentID uuid.UUID) (*History, error) {
	row := connFrom(ctx, r.pool).QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM extraction_history WHERE document_id = $1 ORDER BY attempt DESC LIMIT 1`,
		historyCols), documentID)
	return scanHistory(row)
}

func scanHistory(row pgx.Row) (*History, error) {
	var h History
	err := row.Scan(&h.ID, &h.DocumentID, &h.TemplateID, &h.Attempt, &h.ExtractionStatus,
		&h.TablesPopulated, &h.PopulationErrors, &h.SkippedDuplicates, &h.FieldsExtracted, &h.RecordsCreated,
		&h.Validated, &h.ValidatedBy, &h.ValidationNotes, &h.ValidationChanges, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *historyRepoPG) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]History, error) {
	rows, err := connFrom(ctx, r.pool).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM extraction_history WHERE document_id = $1 ORDER BY attempt ASC`,
		historyCols), documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.TemplateID, &h.Attempt, &h.ExtractionStatus,
			&h.TablesPopulated, &h.PopulationErrors, &h.SkippedDuplicates, &h.FieldsExtracted, &h.RecordsCreated,
			&h.Validated, &h.ValidatedBy, &h.ValidationNotes, &h.ValidationChanges, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *historyRepoPG) NextAttempt(ctx context.Context, documentID uuid.UUID) (int, error) {
	var next int
	err := connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt), 0) + 1 FROM extraction_history WHERE document_id = $1`,
		documentID).Scan(&next)
	return next, err
}

func (r *historyRepoPG) AppendValidationChange(ctx context.Context, documentID uuid.UUID, change ValidationChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE extraction_history
		SET validation_changes = COALESCE(validation_changes, '[]'::jsonb) || $2::jsonb
		WHERE id = (SELECT id FROM extraction_history WHERE document_id = $1 ORDER BY attempt DESC LIMIT 1)`,
		documentID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *historyRepoPG) Finalize(ctx context.Context, documentID uuid.UUID, reviewer string, notes *string) error {
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE extraction_history
		SET validated = true, validated_by = $2, validation_notes = $3
		WHERE id = (SELECT id FROM extraction_history WHERE document_id = $1 ORDER BY attempt DESC LIMIT 1)`,
		documentID, reviewer, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
