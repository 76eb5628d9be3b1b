package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/webitel/bot-report-exporter/internal/delivery"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/model/options"
	"github.com/webitel/bot-report-exporter/internal/store/sample"
	"google.golang.org/grpc/codes"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Exists(ctx context.Context, taskID string) (bool, error) {
	args := m.Called(ctx, taskID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) PushExportTask(ctx context.Context, task report.ExportTask) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockCache) PopExportTask(ctx context.Context) (report.ExportTask, error) {
	args := m.Called(ctx)
	return args.Get(0).(report.ExportTask), args.Error(1)
}

func (m *mockCache) SetExportStatus(ctx context.Context, taskID string, status report.ExportStatus) error {
	return m.Called(ctx, taskID, status).Error(0)
}

func (m *mockCache) GetExportStatus(ctx context.Context, taskID string) (report.ExportStatus, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(report.ExportStatus), args.Error(1)
}

func (m *mockCache) SetExportLocation(ctx context.Context, taskID, location string) error {
	return m.Called(ctx, taskID, location).Error(0)
}

func (m *mockCache) GetExportLocation(ctx context.Context, taskID string) (string, error) {
	args := m.Called(ctx, taskID)
	return args.String(0), args.Error(1)
}

func (m *mockCache) SetExportHistoryID(ctx context.Context, taskID string, historyID int64) error {
	return m.Called(ctx, taskID, historyID).Error(0)
}

func (m *mockCache) GetExportHistoryID(ctx context.Context, taskID string) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) ClaimTask(ctx context.Context, dedupKey, taskID string) (string, bool, error) {
	args := m.Called(ctx, dedupKey, taskID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCache) ReleaseTask(ctx context.Context, dedupKey string) error {
	return m.Called(ctx, dedupKey).Error(0)
}

func (m *mockCache) ClearExportTask(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockCache) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) InsertExportHistory(ctx context.Context, input *report.NewExportHistory) (int64, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockHistory) UpdateExportStatus(ctx context.Context, input *report.UpdateExportStatus) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockHistory) GetExportHistory(opts *options.SearchOptions) (*report.HistoryResponse, error) {
	args := m.Called(opts)
	return args.Get(0).(*report.HistoryResponse), args.Error(1)
}

var requestedAt = time.Date(2024, 11, 25, 10, 0, 0, 0, time.Local)

func newService(t *testing.T) (*ReportServiceImpl, *mockCache, *mockHistory, *delivery.Memory) {
	t.Helper()
	c, h, mem := &mockCache{}, &mockHistory{}, delivery.NewMemory()
	s, err := NewReportService(sample.New(), h, c, mem, nil)
	require.NoError(t, err)
	return s, c, h, mem
}

func createOptions() *options.CreateOptions {
	return options.NewCreateOptionsAt(context.Background(), requestedAt)
}

func TestNewReportServiceRequiresDependencies(t *testing.T) {
	_, err := NewReportService(nil, &mockHistory{}, &mockCache{}, delivery.NewMemory(), nil)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	s, _, _, _ := newService(t)
	mem := delivery.NewMemory()

	d, err := s.Export(context.Background(), report.ExportJob{Table: report.TableSuccessful, Format: report.FormatCSV}, mem)
	require.NoError(t, err)

	assert.Equal(t, "successful_document_uploads.csv", d.Name)
	f, ok := mem.Get("successful_document_uploads.csv")
	require.True(t, ok)
	assert.Equal(t, "ehr,account,date,orderNumber,documentId,remarks,status\n"+
		"Kinnser,Account C,2024-11-22,11223,66789,Upload successful,Successful\n"+
		"Axxess,Account D,2024-11-23,44556,77890,Uploaded on first attempt,Successful", string(f.Data))
	assert.Equal(t, int64(len(f.Data)), d.Size)
}

func TestExportEmptyTableDeliversNothing(t *testing.T) {
	c, h, mem := &mockCache{}, &mockHistory{}, delivery.NewMemory()
	s, err := NewReportService(sample.NewWith(report.RecordSet{}), h, c, mem, nil)
	require.NoError(t, err)

	_, err = s.Export(context.Background(), report.ExportJob{Table: report.TableFailed, Format: report.FormatJSON}, mem)

	var empty *errors.EmptyExportError
	require.ErrorAs(t, err, &empty)
	_, ok := mem.Get("failed_document_uploads.json")
	assert.False(t, ok)
}

func TestPackage(t *testing.T) {
	s, _, _, _ := newService(t)
	mem := delivery.NewMemory()

	d, err := s.Package(createOptions(), report.ArchiveRequest{SelectionKey: "Athena"}, mem)
	require.NoError(t, err)
	assert.Equal(t, "Athena-2024-11-25.zip", d.Name)
	assert.Equal(t, "application/zip", d.MimeType)
	assert.Equal(t, "memory://Athena-2024-11-25.zip", d.Location)
}

func TestPackageNoDocuments(t *testing.T) {
	s, _, _, _ := newService(t)
	mem := delivery.NewMemory()

	_, err := s.Package(createOptions(), report.ArchiveRequest{SelectionKey: "Kantime"}, mem)
	assert.Equal(t, codes.NotFound, errors.Code(err))
	_, ok := mem.Get("Kantime-2024-11-25.zip")
	assert.False(t, ok)
}

func TestEnqueueExport(t *testing.T) {
	s, c, h, _ := newService(t)
	opts := createOptions()

	c.On("ClaimTask", opts, "export:failed:xlsx", mock.AnythingOfType("string")).Return("", true, nil)
	h.On("InsertExportHistory", opts, mock.MatchedBy(func(in *report.NewExportHistory) bool {
		return in.Name == "failed_document_uploads.xlsx" && in.Status == report.ExportStatusPending && in.CreatedAt == requestedAt.UnixMilli()
	})).Return(int64(7), nil)
	c.On("SetExportHistoryID", opts, mock.AnythingOfType("string"), int64(7)).Return(nil)
	c.On("SetExportStatus", opts, mock.AnythingOfType("string"), report.ExportStatusPending).Return(nil)
	c.On("PushExportTask", opts, mock.MatchedBy(func(task report.ExportTask) bool {
		return task.Table == report.TableFailed && task.Format == report.FormatXLSX && task.RequestedAt == requestedAt.UnixMilli()
	})).Return(nil)

	meta, err := s.Enqueue(opts, &report.ExportRequest{Type: report.TaskTypeExport, Table: "failed", Format: "xlsx"})
	require.NoError(t, err)

	assert.NotEmpty(t, meta.TaskID)
	assert.Equal(t, "failed_document_uploads.xlsx", meta.FileName)
	assert.Equal(t, report.ExportStatusPending, meta.Status)
	c.AssertExpectations(t)
	h.AssertExpectations(t)
}

func TestEnqueueRejectsInvalidRequests(t *testing.T) {
	s, _, _, _ := newService(t)

	tests := map[string]struct {
		req  report.ExportRequest
		code codes.Code
	}{
		"unsupported format":  {req: report.ExportRequest{Type: report.TaskTypeExport, Table: "failed", Format: "pdf"}, code: codes.InvalidArgument},
		"unknown table":       {req: report.ExportRequest{Type: report.TaskTypeExport, Table: "pending", Format: "csv"}, code: codes.InvalidArgument},
		"archive without ehr": {req: report.ExportRequest{Type: report.TaskTypeArchive}, code: codes.InvalidArgument},
		"unknown type":        {req: report.ExportRequest{Type: "report"}, code: codes.InvalidArgument},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Enqueue(createOptions(), &tc.req)
			assert.Equal(t, tc.code, errors.Code(err))
		})
	}
}

func TestEnqueueDuplicateInProgress(t *testing.T) {
	s, c, h, _ := newService(t)
	opts := createOptions()

	c.On("ClaimTask", opts, "archive:Athena", mock.AnythingOfType("string")).Return("older", false, nil)
	c.On("GetExportStatus", opts, "older").Return(report.ExportStatusProcessing, nil)

	_, err := s.Enqueue(opts, &report.ExportRequest{Type: report.TaskTypeArchive, EHR: "Athena"})
	assert.Equal(t, codes.AlreadyExists, errors.Code(err))
	h.AssertNotCalled(t, "InsertExportHistory", mock.Anything, mock.Anything)
}

func TestEnqueueReclaimsFinishedKey(t *testing.T) {
	s, c, h, _ := newService(t)
	opts := createOptions()

	c.On("ClaimTask", opts, "archive:Athena", mock.AnythingOfType("string")).Return("older", false, nil).Once()
	c.On("GetExportStatus", opts, "older").Return(report.ExportStatusDone, nil)
	c.On("ReleaseTask", opts, "archive:Athena").Return(nil)
	c.On("ClaimTask", opts, "archive:Athena", mock.AnythingOfType("string")).Return("", true, nil).Once()
	h.On("InsertExportHistory", opts, mock.Anything).Return(int64(8), nil)
	c.On("SetExportHistoryID", opts, mock.Anything, int64(8)).Return(nil)
	c.On("SetExportStatus", opts, mock.Anything, report.ExportStatusPending).Return(nil)
	c.On("PushExportTask", opts, mock.Anything).Return(nil)

	meta, err := s.Enqueue(opts, &report.ExportRequest{Type: report.TaskTypeArchive, EHR: "Athena"})
	require.NoError(t, err)
	assert.Equal(t, "Athena-2024-11-25.zip", meta.FileName)
	assert.Equal(t, "application/zip", meta.MimeType)
}

func TestProcessExportTask(t *testing.T) {
	s, c, h, mem := newService(t)
	ctx := context.Background()
	task := report.ExportTask{TaskID: "t1", Type: report.TaskTypeExport, Table: report.TableFailed, Format: report.FormatJSON}

	c.On("GetExportHistoryID", ctx, "t1").Return(int64(3), nil)
	c.On("SetExportStatus", ctx, "t1", report.ExportStatusProcessing).Return(nil)
	c.On("SetExportStatus", ctx, "t1", report.ExportStatusDone).Return(nil)
	c.On("SetExportLocation", ctx, "t1", "memory://failed_document_uploads.json").Return(nil)
	c.On("ClearExportTask", ctx, "t1").Return(nil)
	c.On("ReleaseTask", ctx, "export:failed:json").Return(nil)
	h.On("UpdateExportStatus", ctx, mock.MatchedBy(func(u *report.UpdateExportStatus) bool {
		return u.ID == 3 && u.Status == report.ExportStatusProcessing
	})).Return(nil)
	h.On("UpdateExportStatus", ctx, mock.MatchedBy(func(u *report.UpdateExportStatus) bool {
		return u.ID == 3 && u.Status == report.ExportStatusDone && u.Location != nil && u.Size > 0
	})).Return(nil)

	require.NoError(t, s.Process(ctx, task))

	_, ok := mem.Get("failed_document_uploads.json")
	assert.True(t, ok)
	c.AssertExpectations(t)
	h.AssertExpectations(t)
}

func TestProcessArchiveWithoutDocumentsFails(t *testing.T) {
	s, c, h, _ := newService(t)
	ctx := context.Background()
	task := report.ExportTask{TaskID: "t2", Type: report.TaskTypeArchive, SelectionKey: "Kantime", RequestedAt: requestedAt.UnixMilli()}

	c.On("GetExportHistoryID", ctx, "t2").Return(int64(4), nil)
	c.On("SetExportStatus", ctx, "t2", mock.Anything).Return(nil)
	c.On("ClearExportTask", ctx, "t2").Return(nil)
	c.On("ReleaseTask", ctx, "archive:Kantime").Return(nil)
	h.On("UpdateExportStatus", ctx, mock.MatchedBy(func(u *report.UpdateExportStatus) bool {
		return u.Status == report.ExportStatusProcessing
	})).Return(nil)
	h.On("UpdateExportStatus", ctx, mock.MatchedBy(func(u *report.UpdateExportStatus) bool {
		return u.Status == report.ExportStatusFailed && u.Error != nil
	})).Return(nil)

	err := s.Process(ctx, task)
	assert.Equal(t, codes.NotFound, errors.Code(err))
	c.AssertCalled(t, "SetExportStatus", ctx, "t2", report.ExportStatusFailed)
	h.AssertExpectations(t)
}

func TestFailureMessageTranslatesNotice(t *testing.T) {
	T, err := errors.Translator(errors.DefaultLanguage)
	require.NoError(t, err)
	s, _, _, _ := newService(t)
	WithTranslator(T)(s)

	msg := s.failureMessage(&errors.NoMatchingRecordsError{SelectionKey: "Kantime"})
	assert.Equal(t, "No documents available for the selected EHR.", msg)
}

func TestStatus(t *testing.T) {
	s, c, _, _ := newService(t)
	ctx := context.Background()

	c.On("GetExportStatus", ctx, "missing").Return(report.ExportStatus(""), nil)
	c.On("GetExportStatus", ctx, "done").Return(report.ExportStatusDone, nil)
	c.On("GetExportLocation", ctx, "done").Return("memory://failed_document_uploads.csv", nil)

	_, err := s.Status(ctx, "missing")
	assert.Equal(t, codes.NotFound, errors.Code(err))

	meta, err := s.Status(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, "memory://failed_document_uploads.csv", meta.Location)
}

func TestHistory(t *testing.T) {
	s, _, h, _ := newService(t)
	opts := options.NewSearchOptions(context.Background(), 1, 10)
	want := &report.HistoryResponse{Page: 1, Data: []*report.HistoryRecord{{ID: 1, Name: "failed_document_uploads.csv"}}}
	h.On("GetExportHistory", opts).Return(want, nil)

	got, err := s.History(opts)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
