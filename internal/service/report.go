package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goi18n "github.com/nicksnyder/go-i18n/i18n"
	"github.com/webitel/bot-report-exporter/internal/archive"
	"github.com/webitel/bot-report-exporter/internal/cache"
	"github.com/webitel/bot-report-exporter/internal/delivery"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/export"
	"github.com/webitel/bot-report-exporter/internal/model/options"
	"github.com/webitel/bot-report-exporter/internal/store"
)

type ReportService interface {
	Options(now time.Time) *report.FilterOptions
	Records(ctx context.Context, table report.Table, filter report.RecordFilter) ([]report.UploadRecord, error)
	// Export encodes a table and hands it to d. Encoding completes before d is called.
	Export(ctx context.Context, job report.ExportJob, d delivery.Deliverer) (*Delivered, error)
	// Package archives the documents of one EHR and hands the zip to d.
	Package(opts *options.CreateOptions, req report.ArchiveRequest, d delivery.Deliverer) (*Delivered, error)
	Enqueue(opts *options.CreateOptions, req *report.ExportRequest) (*report.ExportMetadata, error)
	Process(ctx context.Context, task report.ExportTask) error
	Status(ctx context.Context, taskID string) (*report.ExportMetadata, error)
	History(opts *options.SearchOptions) (*report.HistoryResponse, error)
}

// Delivered describes a file handed to a delivery backend.
type Delivered struct {
	Name     string            `json:"name"`
	MimeType string            `json:"mime_type"`
	Location string            `json:"location"`
	Size     int64             `json:"size"`
	Skipped  []archive.Skipped `json:"skipped,omitempty"`
}

type ReportServiceImpl struct {
	uploads   store.UploadStore
	history   store.HistoryStore
	cache     cache.Cache
	deliverer delivery.Deliverer
	encoder   *export.Encoder
	packager  *archive.Packager
	translate goi18n.TranslateFunc
	log       *slog.Logger
}

type Option func(*ReportServiceImpl)

func WithEncoder(e *export.Encoder) Option {
	return func(s *ReportServiceImpl) { s.encoder = e }
}

func WithPackager(p *archive.Packager) Option {
	return func(s *ReportServiceImpl) { s.packager = p }
}

// WithTranslator sets the translation of notices recorded on failed tasks.
func WithTranslator(T goi18n.TranslateFunc) Option {
	return func(s *ReportServiceImpl) { s.translate = T }
}

// NewReportService wires the report operations. d receives the output of queued tasks.
func NewReportService(u store.UploadStore, h store.HistoryStore, c cache.Cache, d delivery.Deliverer, log *slog.Logger, opts ...Option) (*ReportServiceImpl, error) {
	if u == nil || h == nil || c == nil || d == nil {
		return nil, errors.Internal("store, cache or deliverer is nil in ReportService")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &ReportServiceImpl{
		uploads:   u,
		history:   h,
		cache:     c,
		deliverer: d,
		encoder:   export.NewEncoder(export.WithLogger(log)),
		packager:  archive.NewPackager(archive.WithLogger(log)),
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ReportServiceImpl) Options(now time.Time) *report.FilterOptions {
	return report.Catalogue(now)
}

func (s *ReportServiceImpl) Records(ctx context.Context, table report.Table, filter report.RecordFilter) ([]report.UploadRecord, error) {
	return s.uploads.ListUploads(ctx, table, filter)
}

func (s *ReportServiceImpl) Export(ctx context.Context, job report.ExportJob, d delivery.Deliverer) (*Delivered, error) {
	uploads, err := s.uploads.ListUploads(ctx, job.Table, report.RecordFilter{})
	if err != nil {
		return nil, err
	}
	payload, err := s.encoder.EncodeUploads(job, uploads)
	if err != nil {
		return nil, err
	}
	location, err := d.Deliver(ctx, payload.Name, payload.MimeType, payload.Data)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "report_exporter.export.delivered",
		slog.String("name", payload.Name),
		slog.String("backend", string(d.Backend())),
		slog.Int64("size", payload.Size()),
	)
	return &Delivered{Name: payload.Name, MimeType: payload.MimeType, Location: location, Size: payload.Size()}, nil
}

func (s *ReportServiceImpl) Package(opts *options.CreateOptions, req report.ArchiveRequest, d delivery.Deliverer) (*Delivered, error) {
	filter := report.RecordFilter{EHR: req.SelectionKey}
	failed, err := s.uploads.ListUploads(opts, report.TableFailed, filter)
	if err != nil {
		return nil, err
	}
	successful, err := s.uploads.ListUploads(opts, report.TableSuccessful, filter)
	if err != nil {
		return nil, err
	}

	a, err := s.packager.Package(opts, successful, failed, req)
	if err != nil {
		return nil, err
	}
	location, err := d.Deliver(opts, a.Name, a.MimeType(), a.Data)
	if err != nil {
		return nil, err
	}
	return &Delivered{Name: a.Name, MimeType: a.MimeType(), Location: location, Size: a.Size(), Skipped: a.Skipped}, nil
}

// Enqueue validates req and queues it. An identical task still pending or
// processing makes Enqueue fail with AlreadyExists.
func (s *ReportServiceImpl) Enqueue(opts *options.CreateOptions, req *report.ExportRequest) (*report.ExportMetadata, error) {
	task, name, mime, err := s.newTask(opts, req)
	if err != nil {
		return nil, err
	}

	if err := s.claim(opts, task); err != nil {
		return nil, err
	}

	historyID, err := s.history.InsertExportHistory(opts, &report.NewExportHistory{
		TaskID:    task.TaskID,
		Type:      task.Type,
		Name:      name,
		Mime:      mime,
		Status:    report.ExportStatusPending,
		CreatedAt: opts.Time.UnixMilli(),
		Selection: task.SelectionKey,
	})
	if err != nil {
		s.release(opts, task)
		return nil, err
	}

	if err := s.cache.SetExportHistoryID(opts, task.TaskID, historyID); err != nil {
		s.release(opts, task)
		return nil, errors.Internal("failed to set history id in cache", errors.WithCause(err), errors.WithID("report.enqueue.cache"))
	}
	if err := s.cache.SetExportStatus(opts, task.TaskID, report.ExportStatusPending); err != nil {
		s.release(opts, task)
		return nil, errors.Internal("failed to set task status", errors.WithCause(err), errors.WithID("report.enqueue.cache"))
	}
	if err := s.cache.PushExportTask(opts, task); err != nil {
		s.release(opts, task)
		return nil, errors.Internal("failed to push task to queue", errors.WithCause(err), errors.WithID("report.enqueue.queue"))
	}

	s.log.InfoContext(opts, "report_exporter.task.enqueued",
		slog.String("task_id", task.TaskID),
		slog.String("type", string(task.Type)),
		slog.String("name", name),
	)
	return &report.ExportMetadata{
		TaskID:   task.TaskID,
		FileName: name,
		MimeType: mime,
		Status:   report.ExportStatusPending,
	}, nil
}

func (s *ReportServiceImpl) newTask(opts *options.CreateOptions, req *report.ExportRequest) (report.ExportTask, string, string, error) {
	task := report.ExportTask{
		TaskID:      uuid.NewString(),
		Type:        req.Type,
		RequestedAt: opts.Time.UnixMilli(),
	}
	switch req.Type {
	case report.TaskTypeExport:
		table, err := report.ParseTable(req.Table)
		if err != nil {
			return task, "", "", err
		}
		format, err := report.ParseFormat(req.Format)
		if err != nil {
			return task, "", "", err
		}
		task.Table, task.Format = table, format
		job := report.ExportJob{Table: table, Format: format}
		return task, job.FileName(), format.MimeType(), nil
	case report.TaskTypeArchive:
		if req.EHR == "" {
			return task, "", "", errors.InvalidArgument("ehr is required", errors.WithID("report.enqueue.ehr"))
		}
		task.SelectionKey = req.EHR
		return task, archive.FolderName(req.EHR, opts.Time) + ".zip", archive.MimeType, nil
	default:
		return task, "", "", errors.InvalidArgument(
			fmt.Sprintf("unknown task type %q", req.Type),
			errors.WithID("report.enqueue.type"),
		)
	}
}

// claim takes the dedup key of task. A key left behind by a finished task is reclaimed.
func (s *ReportServiceImpl) claim(ctx context.Context, task report.ExportTask) error {
	key := task.DedupKey()
	for attempt := 0; attempt < 2; attempt++ {
		holder, ok, err := s.cache.ClaimTask(ctx, key, task.TaskID)
		if err != nil {
			return errors.Internal("failed to claim task", errors.WithCause(err), errors.WithID("report.enqueue.claim"))
		}
		if ok {
			return nil
		}
		status, err := s.cache.GetExportStatus(ctx, holder)
		if err != nil {
			return errors.Internal("failed to get task status", errors.WithCause(err), errors.WithID("report.enqueue.claim"))
		}
		if status.InProgress() {
			return errors.AlreadyExists(
				fmt.Sprintf("task already in progress: %s", holder),
				errors.WithID("report.enqueue.in_progress"),
			)
		}
		if err := s.cache.ReleaseTask(ctx, key); err != nil {
			return errors.Internal("failed to release stale task", errors.WithCause(err), errors.WithID("report.enqueue.claim"))
		}
	}
	return errors.AlreadyExists("task already in progress", errors.WithID("report.enqueue.in_progress"))
}

func (s *ReportServiceImpl) release(ctx context.Context, task report.ExportTask) {
	if err := s.cache.ReleaseTask(ctx, task.DedupKey()); err != nil {
		s.log.WarnContext(ctx, "report_exporter.task.release_failed",
			slog.String("task_id", task.TaskID),
			slog.String("error", err.Error()),
		)
	}
}

// Process runs a queued task and records its outcome in the cache and history.
func (s *ReportServiceImpl) Process(ctx context.Context, task report.ExportTask) error {
	defer s.release(ctx, task)
	defer func() {
		if err := s.cache.ClearExportTask(ctx, task.TaskID); err != nil {
			s.log.WarnContext(ctx, "report_exporter.task.clear_failed", slog.String("task_id", task.TaskID), slog.String("error", err.Error()))
		}
	}()

	historyID, err := s.cache.GetExportHistoryID(ctx, task.TaskID)
	if err != nil {
		s.log.WarnContext(ctx, "report_exporter.task.history_id_missing",
			slog.String("task_id", task.TaskID),
			slog.String("error", err.Error()),
		)
	}
	s.setStatus(ctx, historyID, task.TaskID, &report.UpdateExportStatus{Status: report.ExportStatusProcessing})

	delivered, err := s.run(ctx, task)
	if err != nil {
		msg := s.failureMessage(err)
		s.setStatus(ctx, historyID, task.TaskID, &report.UpdateExportStatus{Status: report.ExportStatusFailed, Error: &msg})
		return err
	}

	if err := s.cache.SetExportLocation(ctx, task.TaskID, delivered.Location); err != nil {
		s.log.WarnContext(ctx, "report_exporter.task.location_not_cached", slog.String("task_id", task.TaskID), slog.String("error", err.Error()))
	}
	s.setStatus(ctx, historyID, task.TaskID, &report.UpdateExportStatus{
		Status:   report.ExportStatusDone,
		Location: &delivered.Location,
		Size:     delivered.Size,
	})
	return nil
}

func (s *ReportServiceImpl) run(ctx context.Context, task report.ExportTask) (*Delivered, error) {
	switch task.Type {
	case report.TaskTypeExport:
		return s.Export(ctx, report.ExportJob{Table: task.Table, Format: task.Format}, s.deliverer)
	case report.TaskTypeArchive:
		opts := options.NewCreateOptionsAt(ctx, time.UnixMilli(task.RequestedAt))
		return s.Package(opts, report.ArchiveRequest{SelectionKey: task.SelectionKey}, s.deliverer)
	default:
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown task type %q", task.Type), errors.WithID("report.process.type"))
	}
}

// setStatus updates the cached status and, when the history row is known, the history.
func (s *ReportServiceImpl) setStatus(ctx context.Context, historyID int64, taskID string, update *report.UpdateExportStatus) {
	if err := s.cache.SetExportStatus(ctx, taskID, update.Status); err != nil {
		s.log.ErrorContext(ctx, "report_exporter.task.status_not_cached", slog.String("task_id", taskID), slog.String("error", err.Error()))
	}
	if historyID == 0 {
		return
	}
	update.ID = historyID
	if err := s.history.UpdateExportStatus(ctx, update); err != nil {
		s.log.ErrorContext(ctx, "report_exporter.task.history_not_updated",
			slog.String("task_id", taskID),
			slog.String("status", string(update.Status)),
			slog.String("error", errors.Details(err)),
		)
	}
}

// failureMessage prefers the user-facing notice of expected conditions.
func (s *ReportServiceImpl) failureMessage(err error) string {
	if n, ok := errors.NoticeFrom(err, s.translate); ok {
		return n.GetDetailedError()
	}
	return err.Error()
}

func (s *ReportServiceImpl) Status(ctx context.Context, taskID string) (*report.ExportMetadata, error) {
	status, err := s.cache.GetExportStatus(ctx, taskID)
	if err != nil {
		return nil, errors.Internal("failed to get task status", errors.WithCause(err), errors.WithID("report.status.cache"))
	}
	if status == "" {
		return nil, errors.NotFound(fmt.Sprintf("task %s not found", taskID), errors.WithID("report.status.not_found"))
	}
	meta := &report.ExportMetadata{TaskID: taskID, Status: status}
	if status == report.ExportStatusDone {
		if meta.Location, err = s.cache.GetExportLocation(ctx, taskID); err != nil {
			return nil, errors.Internal("failed to get task location", errors.WithCause(err), errors.WithID("report.status.cache"))
		}
	}
	return meta, nil
}

func (s *ReportServiceImpl) History(opts *options.SearchOptions) (*report.HistoryResponse, error) {
	return s.history.GetExportHistory(opts)
}
