package batch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/domain/extraction"
)

// Uploader is the slice of the extraction service a batch run needs.
type Uploader interface {
	Upload(ctx context.Context, fileName, documentType string, fileBytes []byte) (*extraction.Document, error)
}

// FileInput is one file submitted with a batch.
type FileInput struct {
	FileName string
	Content  []byte
}

// Service runs multi-file uploads as a persisted job: every state change is
// written before processing continues, so a crashed run is visible as a
// processing job with per-file outcomes rather than silently lost.
type Service struct {
	repo     Repository
	uploader Uploader
	log      zerolog.Logger
}

func NewService(repo Repository, uploader Uploader, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
		log:      log.With().Str("component", "batch_service").Logger(),
	}
}

// Run creates the job and processes every file in order. A file failure marks
// that file failed and moves on; the job fails only when every file failed.
func (s *Service) Run(ctx context.Context, documentType, createdBy string, inputs []FileInput) (*Job, error) {
	job := &Job{ID: uuid.New(), DocumentType: documentType, Status: JobPending, CreatedBy: createdBy}
	files := make([]File, len(inputs))
	for i, in := range inputs {
		files[i] = File{ID: uuid.New(), FileName: in.FileName, Status: FilePending}
	}
	if err := s.repo.CreateJob(ctx, job, files); err != nil {
		return nil, err
	}
	if err := s.repo.SetJobStatus(ctx, job.ID, JobProcessing); err != nil {
		return nil, err
	}

	failed := 0
	for i, in := range inputs {
		f := &files[i]
		doc, err := s.uploader.Upload(ctx, in.FileName, documentType, in.Content)
		if err != nil {
			reason := err.Error()
			f.Status = FileFailed
			f.Error = &reason
			if doc != nil {
				f.DocumentID = &doc.ID
			}
			failed++
			s.log.Warn().Err(err).Str("job_id", job.ID.String()).Str("file", in.FileName).Msg("batch file failed")
		} else {
			f.Status = FileCompleted
			f.DocumentID = &doc.ID
		}
		if err := s.repo.UpdateFile(ctx, f); err != nil {
			return nil, err
		}
	}

	status := JobCompleted
	if failed == len(inputs) && len(inputs) > 0 {
		status = JobFailed
	}
	if err := s.repo.FinishJob(ctx, job.ID, status); err != nil {
		return nil, err
	}
	return s.repo.GetJob(ctx, job.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Job, []File, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.repo.ListFiles(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return job, files, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Job, int, error) {
	return s.repo.ListJobs(ctx, limit, offset)
}
