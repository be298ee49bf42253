package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/internal/repository"
	"github.com/vnpt-kd/kpi-plan-api/pkg/jobs"
)

type fakeReportStore struct {
	jobs      map[string]*models.ReportJob
	createErr error
	updates   []repository.UpdateReportJobParams
}

func newFakeReportStore(jobs ...*models.ReportJob) *fakeReportStore {
	store := &fakeReportStore{jobs: map[string]*models.ReportJob{}}
	for _, job := range jobs {
		store.jobs[job.ID] = job
	}
	return store
}

func (f *fakeReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *fakeReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (f *fakeReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	f.updates = append(f.updates, params)
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		url := *params.ResultURL
		job.ResultURL = &url
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

func (f *fakeReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range f.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (f *fakeReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type fakeDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeFileStore struct {
	dir     string
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newFakeFileStore(t *testing.T) *fakeFileStore {
	return &fakeFileStore{dir: t.TempDir(), saved: map[string][]byte{}}
}

func (f *fakeFileStore) Save(filename string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved[filename] = data
	full := filepath.Join(f.dir, filename)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", err
	}
	return full, nil
}

func (f *fakeFileStore) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(f.dir, filename))
}

func (f *fakeFileStore) Delete(filename string) error {
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeFileStore) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type fakeSigner struct {
	parseErr error
}

func (f *fakeSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	return "tok|" + jobID + "|" + strings.ReplaceAll(relPath, string(os.PathSeparator), "_"),
		time.Now().Add(time.Hour), nil
}

func (f *fakeSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	if f.parseErr != nil {
		return "", "", time.Time{}, f.parseErr
	}
	trimmed := strings.TrimPrefix(token, "tok|")
	parts := strings.SplitN(trimmed, "|", 2)
	if len(parts) != 2 {
		return "", "", time.Time{}, errors.New("malformed token")
	}
	relPath := strings.ReplaceAll(parts[1], "_", string(os.PathSeparator))
	return parts[0], relPath, time.Now().Add(time.Hour), nil
}

type fakeRenderer struct {
	result    *dto.ExportResult
	err       error
	csvCalls  int
	lastReq   dto.ExportRequest
	lastCSV   dto.ExportFilter
	callCount int
}

func (f *fakeRenderer) Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error) {
	f.callCount++
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeRenderer) GenerateCSV(ctx context.Context, filter dto.ExportFilter) (*dto.ExportResult, error) {
	f.csvCalls++
	f.lastCSV = filter
	return f.result, f.err
}

func newReportServiceForTest(store *fakeReportStore, queue *fakeDispatcher) *ReportService {
	return NewReportService(store, queue, nil, &fakeSigner{}, zap.NewNop(), ReportServiceConfig{
		APIPrefix: "/api/v1",
	})
}

func TestReportServiceCreateJobQueuesWithDefaults(t *testing.T) {
	store := newFakeReportStore()
	queue := &fakeDispatcher{}
	svc := newReportServiceForTest(store, queue)

	resp, err := svc.CreateJob(context.Background(), dto.ReportJobRequest{}, models.UserInfo{ID: "u2", Role: models.RoleManager})
	require.NoError(t, err)
	require.Equal(t, string(models.ReportStatusQueued), resp.Status)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, resp.ID, queue.enqueued[0].ID)
	require.Equal(t, string(dto.ExportXLSX), store.jobs[resp.ID].Params.Format)
}

func TestReportServiceCreateJobPinsEmployeeFilter(t *testing.T) {
	store := newFakeReportStore()
	svc := newReportServiceForTest(store, &fakeDispatcher{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportJobRequest{
		Filter: dto.ExportFilter{EmployeeID: "NV999"},
	}, models.UserInfo{ID: "u1", EmployeeID: "NV001", Role: models.RoleEmployee})
	require.NoError(t, err)
	require.Equal(t, "NV001", store.jobs[resp.ID].Params.EmployeeID)
}

func TestReportServiceCreateJobRejectsUnknownFormat(t *testing.T) {
	store := newFakeReportStore()
	svc := newReportServiceForTest(store, &fakeDispatcher{})

	_, err := svc.CreateJob(context.Background(), dto.ReportJobRequest{Format: "docx"}, models.UserInfo{Role: models.RoleManager})
	require.Error(t, err)
	require.Empty(t, store.jobs)
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newFakeReportStore()
	svc := newReportServiceForTest(store, &fakeDispatcher{err: errors.New("queue full")})

	_, err := svc.CreateJob(context.Background(), dto.ReportJobRequest{}, models.UserInfo{ID: "u2", Role: models.RoleManager})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}

func TestReportServiceGetStatusEnforcesOwnership(t *testing.T) {
	store := newFakeReportStore(&models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued, CreatedBy: "u2"})
	svc := newReportServiceForTest(store, &fakeDispatcher{})

	_, err := svc.GetStatus(context.Background(), "job-1", models.UserInfo{ID: "u1", Role: models.RoleEmployee})
	require.Error(t, err)

	status, err := svc.GetStatus(context.Background(), "job-1", models.UserInfo{ID: "u9", Role: models.RoleManager})
	require.NoError(t, err)
	require.Equal(t, string(models.ReportStatusQueued), status.Status)
}

func TestReportServiceGetStatusNotFound(t *testing.T) {
	svc := newReportServiceForTest(newFakeReportStore(), &fakeDispatcher{})

	_, err := svc.GetStatus(context.Background(), "missing", models.UserInfo{Role: models.RoleManager})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestReportServiceRecoverPendingJobsRequeues(t *testing.T) {
	store := newFakeReportStore(
		&models.ReportJob{ID: "job-1", Status: models.ReportStatusQueued},
		&models.ReportJob{ID: "job-2", Status: models.ReportStatusFinished},
	)
	queue := &fakeDispatcher{}
	svc := newReportServiceForTest(store, queue)

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, "job-1", queue.enqueued[0].ID)
}

func TestReportWorkerHandleFinishesJob(t *testing.T) {
	store := newFakeReportStore(&models.ReportJob{
		ID:     "job-1",
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: "pdf", Week: "Tuần 23"},
	})
	files := newFakeFileStore(t)
	renderer := &fakeRenderer{result: &dto.ExportResult{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Content:     []byte("pdf-bytes"),
		RowCount:    2,
	}}
	worker := NewReportWorker(store, renderer, files, &fakeSigner{}, "/api/v1", 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "report"})
	require.NoError(t, err)

	job := store.jobs["job-1"]
	require.Equal(t, models.ReportStatusFinished, job.Status)
	require.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	require.True(t, strings.HasPrefix(*job.ResultURL, "/api/v1/reports/download/"))
	require.Contains(t, files.saved, filepath.Join("job-1", "report.pdf"))
	require.Equal(t, "Tuần 23", renderer.lastReq.Filter.Week)
}

func TestReportWorkerRoutesCSVToCSVRenderer(t *testing.T) {
	store := newFakeReportStore(&models.ReportJob{
		ID:     "job-1",
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: "csv", EmployeeID: "NV001"},
	})
	renderer := &fakeRenderer{result: &dto.ExportResult{Filename: "report.csv", Content: []byte("a,b")}}
	worker := NewReportWorker(store, renderer, newFakeFileStore(t), &fakeSigner{}, "/api/v1", 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	require.Equal(t, 1, renderer.csvCalls)
	require.Zero(t, renderer.callCount)
	require.Equal(t, "NV001", renderer.lastCSV.EmployeeID)
}

func TestReportWorkerRetriesBeforeFailing(t *testing.T) {
	store := newFakeReportStore(&models.ReportJob{
		ID:     "job-1",
		Status: models.ReportStatusProcessing,
		Params: models.ReportJobParams{Format: "xlsx"},
	})
	renderer := &fakeRenderer{err: errors.New("render blew up")}
	worker := NewReportWorker(store, renderer, newFakeFileStore(t), &fakeSigner{}, "/api/v1", 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)
	require.Equal(t, "render blew up", *store.jobs["job-1"].ErrorMessage)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	require.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
	require.NotNil(t, store.jobs["job-1"].FinishedAt)
}

func TestReportServiceResolveDownload(t *testing.T) {
	files := newFakeFileStore(t)
	relPath := filepath.Join("job-1", "report.pdf")
	_, err := files.Save(relPath, []byte("pdf-bytes"))
	require.NoError(t, err)

	signer := &fakeSigner{}
	token, _, err := signer.Generate("job-1", relPath)
	require.NoError(t, err)

	url := "/api/v1/reports/download/" + token
	store := newFakeReportStore(&models.ReportJob{
		ID:        "job-1",
		Status:    models.ReportStatusFinished,
		Params:    models.ReportJobParams{Format: "pdf"},
		ResultURL: &url,
	})
	svc := NewReportService(store, &fakeDispatcher{}, files, signer, zap.NewNop(), ReportServiceConfig{APIPrefix: "/api/v1"})

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	require.Equal(t, "report.pdf", download.Filename)
	require.Equal(t, "application/pdf", download.ContentType)
}

func TestReportServiceResolveDownloadRejectsUnfinishedJob(t *testing.T) {
	files := newFakeFileStore(t)
	signer := &fakeSigner{}
	relPath := filepath.Join("job-1", "report.pdf")
	token, _, err := signer.Generate("job-1", relPath)
	require.NoError(t, err)

	url := "/api/v1/reports/download/" + token
	store := newFakeReportStore(&models.ReportJob{
		ID:        "job-1",
		Status:    models.ReportStatusProcessing,
		ResultURL: &url,
	})
	svc := NewReportService(store, &fakeDispatcher{}, files, signer, zap.NewNop(), ReportServiceConfig{APIPrefix: "/api/v1"})

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not ready")
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	signer := &fakeSigner{parseErr: errors.New("signature mismatch")}
	svc := NewReportService(newFakeReportStore(), &fakeDispatcher{}, newFakeFileStore(t), signer, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.ResolveDownload(context.Background(), "forged")
	require.Error(t, err)
}
