package template

import (
	"context"

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

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const tmplCols = `id, name, document_type, is_active, is_default, created_at, updated_at`

func scanTemplate(row pgx.Row) (*ExtractionTemplate, error) {
	var t ExtractionTemplate
	err := row.Scan(&t.ID, &t.Name, &t.DocumentType, &t.IsActive, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *ExtractionTemplate) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO extraction_template (id, name, document_type, is_active, is_default)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.DocumentType, t.IsActive, t.IsDefault)
	return err
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ExtractionTemplate, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx, `SELECT `+tmplCols+` FROM extraction_template WHERE id = $1`, id))
}

func (r *templateRepoPG) Update(ctx context.Context, t *ExtractionTemplate) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE extraction_template SET name=$2, document_type=$3, is_active=$4, is_default=$5, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.DocumentType, t.IsActive, t.IsDefault)
	return err
}

func (r *templateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM extraction_template WHERE id = $1`, id)
	return err
}

func (r *templateRepoPG) List(ctx context.Context, limit, offset int) ([]*ExtractionTemplate, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM extraction_template`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+tmplCols+` FROM extraction_template ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ExtractionTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *templateRepoPG) ListByDocumentType(ctx context.Context, documentType string) ([]*ExtractionTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tmplCols+` FROM extraction_template
		WHERE document_type = $1 AND is_active
		ORDER BY updated_at DESC`, documentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ExtractionTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) ClearDefault(ctx context.Context, documentType string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE extraction_template SET is_default = FALSE, updated_at = NOW() WHERE document_type = $1 AND is_default`,
		documentType)
	return err
}

// =========== Mapping Repository ===========

type mappingRepoPG struct{ pool *pgxpool.Pool }

func NewMappingRepoPG(pool *pgxpool.Pool) MappingRepository {
	return &mappingRepoPG{pool: pool}
}

func (r *mappingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const mappingCols = `id, template_id, source_section, source_field_path, target_table,
	target_field, field_type, transformation_type, transformation_config,
	is_required, default_value, processing_order, is_active, insertion_seq,
	created_at, updated_at`

func scanMapping(row pgx.Row) (*FieldMapping, error) {
	var fm FieldMapping
	err := row.Scan(&fm.ID, &fm.TemplateID, &fm.SourceSection, &fm.SourceFieldPath, &fm.TargetTable,
		&fm.TargetField, &fm.FieldType, &fm.TransformationType, &fm.TransformationConfig,
		&fm.IsRequired, &fm.DefaultValue, &fm.ProcessingOrder, &fm.IsActive, &fm.InsertionSeq,
		&fm.CreatedAt, &fm.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return &fm, err
}

func (r *mappingRepoPG) Create(ctx context.Context, fm *FieldMapping) error {
	fm.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO field_mapping (id, template_id, source_section, source_field_path,
			target_table, target_field, field_type, transformation_type,
			transformation_config, is_required, default_value, processing_order, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING insertion_seq`,
		fm.ID, fm.TemplateID, fm.SourceSection, fm.SourceFieldPath,
		fm.TargetTable, fm.TargetField, fm.FieldType, fm.TransformationType,
		fm.TransformationConfig, fm.IsRequired, fm.DefaultValue, fm.ProcessingOrder, fm.IsActive).
		Scan(&fm.InsertionSeq)
}

func (r *mappingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*FieldMapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx, `SELECT `+mappingCols+` FROM field_mapping WHERE id = $1`, id))
}

func (r *mappingRepoPG) Update(ctx context.Context, fm *FieldMapping) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE field_mapping SET source_section=$2, source_field_path=$3, target_table=$4,
			target_field=$5, field_type=$6, transformation_type=$7, transformation_config=$8,
			is_required=$9, default_value=$10, processing_order=$11, is_active=$12, updated_at=NOW()
		WHERE id = $1`,
		fm.ID, fm.SourceSection, fm.SourceFieldPath, fm.TargetTable,
		fm.TargetField, fm.FieldType, fm.TransformationType, fm.TransformationConfig,
		fm.IsRequired, fm.DefaultValue, fm.ProcessingOrder, fm.IsActive)
	return err
}

func (r *mappingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM field_mapping WHERE id = $1`, id)
	return err
}

func (r *mappingRepoPG) ListActiveByTemplate(ctx context.Context, templateID uuid.UUID) ([]*FieldMapping, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+mappingCols+` FROM field_mapping
		WHERE template_id = $1 AND is_active
		ORDER BY processing_order, insertion_seq`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMappings(rows)
}

func (r *mappingRepoPG) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*FieldMapping, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+mappingCols+` FROM field_mapping
		WHERE template_id = $1
		ORDER BY processing_order, insertion_seq`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMappings(rows)
}

func collectMappings(rows pgx.Rows) ([]*FieldMapping, error) {
	var items []*FieldMapping
	for rows.Next() {
		fm, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fm)
	}
	return items, rows.Err()
}
