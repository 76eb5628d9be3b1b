package cache

import (
	"context"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
)

// Cache is the export task queue together with per-task state.
type Cache interface {
	Exists(ctx context.Context, taskID string) (bool, error)
	PushExportTask(ctx context.Context, task report.ExportTask) error
	// PopExportTask blocks until a task is queued. It returns ErrQueueEmpty
	// when nothing arrives within the pop timeout.
	PopExportTask(ctx context.Context) (report.ExportTask, error)
	SetExportStatus(ctx context.Context, taskID string, status report.ExportStatus) error
	GetExportStatus(ctx context.Context, taskID string) (report.ExportStatus, error)
	SetExportLocation(ctx context.Context, taskID, location string) error
	GetExportLocation(ctx context.Context, taskID string) (string, error)
	SetExportHistoryID(ctx context.Context, taskID string, historyID int64) error
	GetExportHistoryID(ctx context.Context, taskID string) (int64, error)
	// ClaimTask maps a dedup key to a task id while the task is in flight.
	// It returns the id of the task already holding the key, if any.
	ClaimTask(ctx context.Context, dedupKey, taskID string) (holder string, claimed bool, err error)
	ReleaseTask(ctx context.Context, dedupKey string) error
	ClearExportTask(ctx context.Context, taskID string) error

	// Clear wipes the selected database. Tests only.
	Clear(ctx context.Context) error
}
