package batch

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/domain/extraction"
)

type mockRepo struct {
	jobs     map[uuid.UUID]*Job
	files    map[uuid.UUID][]File
	statuses []string // job status transitions in order
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: map[uuid.UUID]*Job{}, files: map[uuid.UUID][]File{}}
}

func (m *mockRepo) CreateJob(ctx context.Context, job *Job, files []File) error {
	cp := *job
	cp.TotalFiles = len(files)
	m.jobs[job.ID] = &cp
	for i := range files {
		files[i].JobID = job.ID
	}
	m.files[job.ID] = append([]File(nil), files...)
	m.statuses = append(m.statuses, job.Status)
	return nil
}

func (m *mockRepo) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (m *mockRepo) ListJobs(ctx context.Context, limit, offset int) ([]Job, int, error) {
	var out []Job
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListFiles(ctx context.Context, jobID uuid.UUID) ([]File, error) {
	return m.files[jobID], nil
}

func (m *mockRepo) SetJobStatus(ctx context.Context, id uuid.UUID, status string) error {
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRepo) UpdateFile(ctx context.Context, f *File) error {
	j, ok := m.jobs[f.JobID]
	if !ok {
		return ErrNotFound
	}
	files := m.files[f.JobID]
	for i := range files {
		if files[i].ID == f.ID {
			files[i] = *f
		}
	}
	j.ProcessedFiles++
	if f.Status == FileFailed {
		j.FailedFiles++
	}
	return nil
}

func (m *mockRepo) FinishJob(ctx context.Context, id uuid.UUID, status string) error {
	return m.SetJobStatus(ctx, id, status)
}

type mockUploader struct {
	failNames map[string]bool
	calls     int
}

func (m *mockUploader) Upload(ctx context.Context, fileName, documentType string, fileBytes []byte) (*extraction.Document, error) {
	m.calls++
	if m.failNames[fileName] {
		return nil, fmt.Errorf("ocr extraction: upstream timeout")
	}
	return &extraction.Document{ID: uuid.New(), FileName: fileName, Status: extraction.DocStatusReview}, nil
}

func inputs(names ...string) []FileInput {
	out := make([]FileInput, len(names))
	for i, n := range names {
		out[i] = FileInput{FileName: n, Content: []byte("%PDF-")}
	}
	return out
}

func TestRun_AllFilesSucceed(t *testing.T) {
	repo := newMockRepo()
	up := &mockUploader{}
	svc := NewService(repo, up, zerolog.Nop())

	job, err := svc.Run(context.Background(), "lab_report", "dr.naidoo", inputs("a.pdf", "b.pdf", "c.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != JobCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if job.ProcessedFiles != 3 || job.FailedFiles != 0 {
		t.Errorf("processed=%d failed=%d, want 3/0", job.ProcessedFiles, job.FailedFiles)
	}
	if up.calls != 3 {
		t.Errorf("uploader called %d times, want 3", up.calls)
	}
	want := strings.Join([]string{JobPending, JobProcessing, JobCompleted}, ",")
	if got := strings.Join(repo.statuses, ","); got != want {
		t.Errorf("status transitions = %s, want %s", got, want)
	}
	for _, f := range repo.files[job.ID] {
		if f.Status != FileCompleted || f.DocumentID == nil {
			t.Errorf("file %s: status=%s doc=%v", f.FileName, f.Status, f.DocumentID)
		}
	}
}

func TestRun_MixedFailuresCompleteJob(t *testing.T) {
	repo := newMockRepo()
	up := &mockUploader{failNames: map[string]bool{"bad.pdf": true}}
	svc := NewService(repo, up, zerolog.Nop())

	job, err := svc.Run(context.Background(), "referral_letter", "admin", inputs("good.pdf", "bad.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != JobCompleted {
		t.Errorf("status = %s, want completed (one file still succeeded)", job.Status)
	}
	if job.FailedFiles != 1 || job.ProcessedFiles != 2 {
		t.Errorf("processed=%d failed=%d, want 2/1", job.ProcessedFiles, job.FailedFiles)
	}
	for _, f := range repo.files[job.ID] {
		switch f.FileName {
		case "bad.pdf":
			if f.Status != FileFailed || f.Error == nil {
				t.Errorf("bad.pdf: status=%s error=%v", f.Status, f.Error)
			}
		case "good.pdf":
			if f.Status != FileCompleted {
				t.Errorf("good.pdf: status=%s", f.Status)
			}
		}
	}
}

func TestRun_AllFailedFailsJob(t *testing.T) {
	repo := newMockRepo()
	up := &mockUploader{failNames: map[string]bool{"x.pdf": true, "y.pdf": true}}
	svc := NewService(repo, up, zerolog.Nop())

	job, err := svc.Run(context.Background(), "lab_report", "admin", inputs("x.pdf", "y.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != JobFailed {
		t.Errorf("status = %s, want failed when every file failed", job.Status)
	}
}

func TestRun_EmptyBatchCompletes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockUploader{}, zerolog.Nop())

	job, err := svc.Run(context.Background(), "lab_report", "admin", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != JobCompleted || job.TotalFiles != 0 {
		t.Errorf("empty batch: status=%s total=%d", job.Status, job.TotalFiles)
	}
}

func TestGet_ReturnsJobWithFiles(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockUploader{}, zerolog.Nop())

	created, err := svc.Run(context.Background(), "lab_report", "admin", inputs("a.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	job, files, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.ID != created.ID || len(files) != 1 {
		t.Errorf("job=%v files=%d", job.ID, len(files))
	}
}
