package batch

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("batch job not found")

type Repository interface {
	CreateJob(ctx context.Context, job *Job, files []File) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]Job, int, error)
	ListFiles(ctx context.Context, jobID uuid.UUID) ([]File, error)
	SetJobStatus(ctx context.Context, id uuid.UUID, status string) error
	// UpdateFile records one file's outcome and bumps the job counters.
	UpdateFile(ctx context.Context, f *File) error
	FinishJob(ctx context.Context, id uuid.UUID, status string) error
}
