package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	dberr "github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/model/options"
	"google.golang.org/grpc/codes"
)

func TestUploadsQuery(t *testing.T) {
	day := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)
	q, args, err := uploadsQuery(report.TableFailed, report.RecordFilter{
		EHR:      "Athena",
		Accounts: []string{"Account A", "Account B"},
		Range:    &report.DateRange{Start: day, End: day.AddDate(0, 0, 7)},
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT ehr, account, to_char(uploaded_on, 'YYYY-MM-DD') AS date, order_number, document_id, remarks, status, "+
		"coalesce(document_link, '') AS document_link FROM bot_report.document_uploads "+
		"WHERE status = $1 AND ehr = $2 AND account IN ($3,$4) AND uploaded_on >= $5 AND uploaded_on <= $6 "+
		"ORDER BY uploaded_on, id", q)
	assert.Equal(t, []any{"Failed", "Athena", "Account A", "Account B", "2024-11-22", "2024-11-29"}, args)
}

func TestUploadsQueryWithoutFilter(t *testing.T) {
	q, args, err := uploadsQuery(report.TableSuccessful, report.RecordFilter{}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, q, "WHERE status = $1 ORDER BY")
	assert.Equal(t, []any{"Successful"}, args)
}

func TestHistoryQueryPaging(t *testing.T) {
	opts := options.NewSearchOptions(context.Background(), 3, 10)
	q, _, err := historyQuery(opts).ToSql()
	require.NoError(t, err)
	assert.Contains(t, q, "FROM bot_report.export_history ORDER BY created_at DESC, id DESC LIMIT 11 OFFSET 20")
}

func TestUpdateStatusQuery(t *testing.T) {
	loc := "memory://failed_document_uploads.csv"
	q, args, err := updateStatusQuery(&report.UpdateExportStatus{ID: 7, Status: report.ExportStatusDone, Location: &loc, Size: 12}, 1000).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE bot_report.export_history SET status = $1, updated_at = $2, location = $3, size = $4 WHERE id = $5", q)
	assert.Equal(t, []any{report.ExportStatusDone, int64(1000), loc, int64(12), int64(7)}, args)

	msg := "boom"
	q, _, err = updateStatusQuery(&report.UpdateExportStatus{ID: 7, Status: report.ExportStatusFailed, Error: &msg}, 1000).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE bot_report.export_history SET status = $1, updated_at = $2, error = $3 WHERE id = $4", q)
}

func TestInsertHistoryQuery(t *testing.T) {
	q, args, err := insertHistoryQuery(&report.NewExportHistory{
		TaskID:    "t1",
		Type:      report.TaskTypeArchive,
		Name:      "Athena-2024-11-22.zip",
		Mime:      "application/zip",
		Status:    report.ExportStatusPending,
		CreatedAt: 1,
		Selection: "Athena",
	}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO bot_report.export_history (task_id,type,name,mime,status,selection_key,created_at,updated_at) "+
		"VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id", q)
	assert.Len(t, args, 8)
}

func TestMapPgError(t *testing.T) {
	unique := mapPgError("insert_export_history", &pgconn.PgError{Code: "23505", Message: "duplicate", ConstraintName: "export_history_task_id_key"})
	var uv *dberr.DBUniqueViolationError
	require.ErrorAs(t, unique, &uv)
	assert.Equal(t, "export_history_task_id_key", uv.Column)
	assert.Equal(t, codes.AlreadyExists, dberr.Code(unique))

	fk := mapPgError("insert_export_history", &pgconn.PgError{Code: "23503", TableName: "document_uploads"})
	assert.Equal(t, codes.FailedPrecondition, dberr.Code(fk))

	other := mapPgError("insert_export_history", errors.New("conn reset"))
	assert.Equal(t, codes.Internal, dberr.Code(other))
}

func TestDatabaseNotOpened(t *testing.T) {
	s := New(nil)
	_, err := s.History().InsertExportHistory(context.Background(), &report.NewExportHistory{})
	assert.Error(t, err)
	_, err = s.Uploads().ListUploads(context.Background(), report.TableFailed, report.RecordFilter{})
	assert.Error(t, err)
}
