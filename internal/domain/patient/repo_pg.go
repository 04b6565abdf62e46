package patient

import (
	"context"
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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, active, id_number, first_name, middle_name, last_name,
	birth_date, gender, phone_mobile, email, address_line1, city, postal_code,
	medical_aid_scheme, medical_aid_number, source, created_from_document_id,
	created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Active, &p.IDNumber, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.BirthDate, &p.Gender, &p.PhoneMobile, &p.Email, &p.AddressLine1, &p.City, &p.PostalCode,
		&p.MedicalAidScheme, &p.MedicalAidNumber, &p.Source, &p.CreatedFromDocumentID,
		&p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, active, id_number, first_name, middle_name, last_name,
			birth_date, gender, phone_mobile, email, address_line1, city, postal_code,
			medical_aid_scheme, medical_aid_number, source, created_from_document_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.Active, p.IDNumber, p.FirstName, p.MiddleName, p.LastName,
		p.BirthDate, p.Gender, p.PhoneMobile, p.Email, p.AddressLine1, p.City, p.PostalCode,
		p.MedicalAidScheme, p.MedicalAidNumber, p.Source, p.CreatedFromDocumentID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByIDNumber(ctx context.Context, idNumber string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id_number = $1`, idNumber))
}

func (r *repoPG) FindByNameDOB(ctx context.Context, lastName string, birthDate time.Time) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE LOWER(last_name) = LOWER($1) AND birth_date = $2
		ORDER BY created_at`, lastName, birthDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET active=$2, id_number=$3, first_name=$4, middle_name=$5,
			last_name=$6, birth_date=$7, gender=$8, phone_mobile=$9, email=$10,
			address_line1=$11, city=$12, postal_code=$13, medical_aid_scheme=$14,
			medical_aid_number=$15, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Active, p.IDNumber, p.FirstName, p.MiddleName,
		p.LastName, p.BirthDate, p.Gender, p.PhoneMobile, p.Email,
		p.AddressLine1, p.City, p.PostalCode, p.MedicalAidScheme, p.MedicalAidNumber)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectPatients(rows)
	return items, total, err
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
