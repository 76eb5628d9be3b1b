package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	dberr "github.com/webitel/bot-report-exporter/internal/errors"
)

const uploadsTable = schema + ".document_uploads"

type Uploads struct {
	storage *Store
}

func (u *Uploads) ListUploads(ctx context.Context, table report.Table, filter report.RecordFilter) ([]report.UploadRecord, error) {
	db, err := u.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_uploads", err)
	}

	query, args, err := uploadsQuery(table, filter).ToSql()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_uploads", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_uploads", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[report.UploadRecord])
	if err != nil {
		return nil, dberr.NewDBInternalError("list_uploads", err)
	}
	return records, nil
}

func uploadsQuery(table report.Table, filter report.RecordFilter) sq.SelectBuilder {
	q := psql.
		Select(
			"ehr",
			"account",
			"to_char(uploaded_on, 'YYYY-MM-DD') AS date",
			"order_number",
			"document_id",
			"remarks",
			"status",
			"coalesce(document_link, '') AS document_link",
		).
		From(uploadsTable).
		Where(sq.Eq{"status": string(table.Status())}).
		OrderBy("uploaded_on", "id")

	if filter.EHR != "" {
		q = q.Where(sq.Eq{"ehr": filter.EHR})
	}
	if len(filter.Accounts) > 0 {
		q = q.Where(sq.Eq{"account": filter.Accounts})
	}
	if filter.Range != nil {
		q = q.Where(sq.GtOrEq{"uploaded_on": filter.Range.Start.Format(report.DateLayout)}).
			Where(sq.LtOrEq{"uploaded_on": filter.Range.End.Format(report.DateLayout)})
	}
	return q
}
