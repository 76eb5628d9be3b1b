package store

import (
	"context"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/model/options"
)

type Store interface {
	History() HistoryStore
	Uploads() UploadStore

	// ------------ Database Management ------------ //
	Open() error  // Return custom DB error
	Close() error // Return custom DB error
}

type HistoryStore interface {
	InsertExportHistory(ctx context.Context, input *report.NewExportHistory) (int64, error)
	UpdateExportStatus(ctx context.Context, input *report.UpdateExportStatus) error
	GetExportHistory(opts *options.SearchOptions) (*report.HistoryResponse, error)
}

// UploadStore lists upload records. Listings are read-only snapshots.
type UploadStore interface {
	ListUploads(ctx context.Context, table report.Table, filter report.RecordFilter) ([]report.UploadRecord, error)
}
