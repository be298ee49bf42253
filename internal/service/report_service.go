package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vnpt-kd/kpi-plan-api/internal/dto"
	"github.com/vnpt-kd/kpi-plan-api/internal/models"
	"github.com/vnpt-kd/kpi-plan-api/internal/repository"
	appErrors "github.com/vnpt-kd/kpi-plan-api/pkg/errors"
	"github.com/vnpt-kd/kpi-plan-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportRenderer interface {
	Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error)
	GenerateCSV(ctx context.Context, filter dto.ExportFilter) (*dto.ExportResult, error)
}

type reportFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// ReportService orchestrates background report jobs: large exports render off
// the request path and are fetched later through a signed download link.
type ReportService struct {
	repo   reportJobStore
	queue  jobDispatcher
	files  reportFileStore
	signer downloadSigner
	logger *zap.Logger
	cfg    ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
	APIPrefix       string
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, files reportFileStore, signer downloadSigner, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:   repo,
		queue:  queue,
		files:  files,
		signer: signer,
		logger: logger,
		cfg:    cfg,
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
// Employees are pinned to their own plans regardless of the requested filter.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportJobRequest, actor models.UserInfo) (*dto.ReportJobResponse, error) {
	format := req.Format
	if format == "" {
		format = dto.ExportXLSX
	}
	switch format {
	case dto.ExportXLSX, dto.ExportPDF, dto.ExportCSV:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	filter := req.Filter
	if actor.Role == models.RoleEmployee {
		filter.EmployeeID = actor.EmployeeID
	}

	job := &models.ReportJob{
		Params: models.ReportJobParams{
			Format:     string(format),
			Week:       filter.Week,
			Date:       filter.Date,
			EmployeeID: filter.EmployeeID,
			Status:     filter.Status,
		},
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: string(job.Status), Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to clients, enforcing ownership for employees.
func (s *ReportService) GetStatus(ctx context.Context, id string, actor models.UserInfo) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if actor.Role == models.RoleEmployee && job.CreatedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report job belongs to another user")
	}
	resp := &dto.ReportStatusResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
	}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentTypeForFormat(job.Params.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		stale, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(stale) == 0 {
			break
		}
		for _, job := range stale {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.signer.Parse(token, true)
			if err != nil {
				continue
			}
			if err := s.files.Delete(relPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(stale) < 100 {
			break
		}
	}
	if _, err := s.files.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func contentTypeForFormat(format string) string {
	switch format {
	case string(dto.ExportPDF):
		return "application/pdf"
	case string(dto.ExportCSV):
		return "text/csv"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to the synchronous export renderer.
type ReportWorker struct {
	repo       reportJobStore
	renderer   reportRenderer
	files      reportFileStore
	signer     downloadSigner
	apiPrefix  string
	maxRetries int
	logger     *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, renderer reportRenderer, files reportFileStore, signer downloadSigner, apiPrefix string, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		renderer:   renderer,
		files:      files,
		signer:     signer,
		apiPrefix:  apiPrefix,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle renders one queued report and stores the result.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.render(ctx, record)
	if err != nil {
		w.recordFailure(ctx, job, err)
		return err
	}

	relPath := filepath.Join(record.ID, result.Filename)
	if _, err := w.files.Save(relPath, result.Content); err != nil {
		w.recordFailure(ctx, job, err)
		return err
	}
	token, _, err := w.signer.Generate(record.ID, relPath)
	if err != nil {
		w.recordFailure(ctx, job, err)
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := w.apiPrefix + "/reports/download/" + token
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

func (w *ReportWorker) render(ctx context.Context, record *models.ReportJob) (*dto.ExportResult, error) {
	filter := dto.ExportFilter{
		Week:       record.Params.Week,
		Date:       record.Params.Date,
		EmployeeID: record.Params.EmployeeID,
		Status:     record.Params.Status,
	}
	if record.Params.Format == string(dto.ExportCSV) {
		return w.renderer.GenerateCSV(ctx, filter)
	}
	return w.renderer.Generate(ctx, dto.ExportRequest{
		Format: dto.ExportFormat(record.Params.Format),
		Filter: filter,
	})
}

func (w *ReportWorker) recordFailure(ctx context.Context, job jobs.Job, cause error) {
	msg := cause.Error()
	if job.Attempt >= w.maxRetries {
		failed := models.ReportStatusFailed
		progress := 100
		now := time.Now().UTC()
		if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); err != nil {
			w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		return
	}
	queued := models.ReportStatusQueued
	reset := 0
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &queued,
		Progress:     &reset,
		ErrorMessage: &msg,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", err)
	}
}
