package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	dberr "github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/model/options"
)

const historyTable = schema + ".export_history"

type History struct {
	storage *Store
}

func (h *History) InsertExportHistory(ctx context.Context, input *report.NewExportHistory) (int64, error) {
	db, err := h.storage.Database()
	if err != nil {
		return 0, dberr.NewDBInternalError("insert_export_history", err)
	}

	query, args, err := insertHistoryQuery(input).ToSql()
	if err != nil {
		return 0, dberr.NewDBInternalError("insert_export_history", err)
	}

	var id int64
	if err := db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapPgError("insert_export_history", err)
	}
	return id, nil
}

func (h *History) UpdateExportStatus(ctx context.Context, input *report.UpdateExportStatus) error {
	db, err := h.storage.Database()
	if err != nil {
		return dberr.NewDBInternalError("update_export_status", err)
	}

	query, args, err := updateStatusQuery(input, time.Now().UnixMilli()).ToSql()
	if err != nil {
		return dberr.NewDBInternalError("update_export_status", err)
	}

	cmd, err := db.Exec(ctx, query, args...)
	if err != nil {
		return dberr.NewDBInternalError("update_export_status", err)
	}
	if cmd.RowsAffected() == 0 {
		return dberr.NewDBNotFoundError("update_export_status",
			fmt.Sprintf("no export history record found for id=%d", input.ID))
	}
	return nil
}

func (h *History) GetExportHistory(opts *options.SearchOptions) (*report.HistoryResponse, error) {
	db, err := h.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_export_history", err)
	}

	query, args, err := historyQuery(opts).ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_export_history", err)
	}

	rows, err := db.Query(opts, query, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("get_export_history", err)
	}
	defer rows.Close()

	records := make([]*report.HistoryRecord, 0, opts.Size)
	for rows.Next() {
		var r report.HistoryRecord
		if err := rows.Scan(
			&r.ID,
			&r.TaskID,
			&r.Type,
			&r.Name,
			&r.Mime,
			&r.Status,
			&r.Location,
			&r.Size,
			&r.Error,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, dberr.NewDBInternalError("get_export_history", err)
		}
		records = append(records, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("get_export_history", err)
	}

	// Check has_next
	hasNext := false
	if int64(len(records)) > opts.Size {
		hasNext = true
		records = records[:opts.Size]
	}

	return &report.HistoryResponse{
		Page: int32(opts.Page),
		Next: hasNext,
		Data: records,
	}, nil
}

func insertHistoryQuery(input *report.NewExportHistory) sq.InsertBuilder {
	return psql.Insert(historyTable).
		Columns("task_id", "type", "name", "mime", "status", "selection_key", "created_at", "updated_at").
		Values(input.TaskID, input.Type, input.Name, input.Mime, input.Status, input.Selection, input.CreatedAt, input.CreatedAt).
		Suffix("RETURNING id")
}

func updateStatusQuery(input *report.UpdateExportStatus, now int64) sq.UpdateBuilder {
	q := psql.Update(historyTable).
		Set("status", input.Status).
		Set("updated_at", now).
		Where(sq.Eq{"id": input.ID})
	if input.Location != nil {
		q = q.Set("location", *input.Location).Set("size", input.Size)
	}
	if input.Error != nil {
		q = q.Set("error", *input.Error)
	}
	return q
}

func historyQuery(opts *options.SearchOptions) sq.SelectBuilder {
	return psql.
		Select(
			"id",
			"task_id",
			"type",
			"name",
			"mime",
			"status",
			"location",
			"size",
			"error",
			"created_at",
			"updated_at",
		).
		From(historyTable).
		OrderBy("created_at DESC", "id DESC").
		Offset(opts.Offset()).
		Limit(opts.Limit())
}
