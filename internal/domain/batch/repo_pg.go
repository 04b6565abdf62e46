package batch

import (
	"context"
	"errors"

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

type repoPG struct {
	pool *pgxpool.Pool
}

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

func (r *repoPG) CreateJob(ctx context.Context, job *Job, files []File) error {
	q := r.conn(ctx)
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.TotalFiles = len(files)
	_, err := q.Exec(ctx, `
		INSERT INTO batch_job (id, document_type, status, total_files, processed_files, failed_files, created_by)
		VALUES ($1,$2,$3,$4,0,0,$5)`,
		job.ID, job.DocumentType, job.Status, job.TotalFiles, job.CreatedBy)
	if err != nil {
		return err
	}
	for i := range files {
		f := &files[i]
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.JobID = job.ID
		if _, err := q.Exec(ctx, `
			INSERT INTO batch_file (id, job_id, file_name, status)
			VALUES ($1,$2,$3,$4)`,
			f.ID, f.JobID, f.FileName, FilePending); err != nil {
			return err
		}
	}
	return nil
}

const jobCols = `id, document_type, status, total_files, processed_files, failed_files,
	created_by, created_at, updated_at, completed_at`

func (r *repoPG) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+jobCols+` FROM batch_job WHERE id = $1`, id).
		Scan(&j.ID, &j.DocumentType, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles,
			&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *repoPG) ListJobs(ctx context.Context, limit, offset int) ([]Job, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM batch_job`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx,
		`SELECT `+jobCols+` FROM batch_job ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.DocumentType, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles,
			&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt); err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (r *repoPG) ListFiles(ctx context.Context, jobID uuid.UUID) ([]File, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, job_id, file_name, status, document_id, error, updated_at
		FROM batch_file WHERE job_id = $1 ORDER BY file_name`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.JobID, &f.FileName, &f.Status, &f.DocumentID, &f.Error, &f.UpdatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *repoPG) SetJobStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE batch_job SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateFile(ctx context.Context, f *File) error {
	q := r.conn(ctx)
	_, err := q.Exec(ctx, `
		UPDATE batch_file SET status = $2, document_id = $3, error = $4, updated_at = now()
		WHERE id = $1`, f.ID, f.Status, f.DocumentID, f.Error)
	if err != nil {
		return err
	}
	failedDelta := 0
	if f.Status == FileFailed {
		failedDelta = 1
	}
	_, err = q.Exec(ctx, `
		UPDATE batch_job SET processed_files = processed_files + 1,
			failed_files = failed_files + $2, updated_at = now()
		WHERE id = $1`, f.JobID, failedDelta)
	return err
}

func (r *repoPG) FinishJob(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE batch_job SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
