package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/webitel/bot-report-exporter/internal/delivery"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/model/options"
	"github.com/webitel/bot-report-exporter/internal/server/interceptor"
	"github.com/webitel/bot-report-exporter/internal/service"
)

type ReportHandler struct {
	service service.ReportService
	errors  *interceptor.ErrorResponder
	now     func() time.Time
}

func NewReportHandler(svc service.ReportService, responder *interceptor.ErrorResponder) (*ReportHandler, error) {
	if svc == nil || responder == nil {
		return nil, errors.Internal("ReportService or ErrorResponder is nil")
	}
	return &ReportHandler{service: svc, errors: responder, now: time.Now}, nil
}

// Register mounts the report API under /api/v1.
func (h *ReportHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/options", h.errors.Wrap(h.GetOptions)).Methods(http.MethodGet)
	api.Handle("/selections", h.errors.Wrap(h.ResolveSelection)).Methods(http.MethodPost)
	api.Handle("/reports/{table}", h.errors.Wrap(h.ListRecords)).Methods(http.MethodGet)
	api.Handle("/reports/{table}/export", h.errors.Wrap(h.DownloadExport)).Methods(http.MethodGet)
	api.Handle("/archives", h.errors.Wrap(h.DownloadArchive)).Methods(http.MethodGet)
	api.Handle("/exports", h.errors.Wrap(h.CreateExport)).Methods(http.MethodPost)
	api.Handle("/exports", h.errors.Wrap(h.GetExportHistory)).Methods(http.MethodGet)
	api.Handle("/exports/{id}", h.errors.Wrap(h.GetExportStatus)).Methods(http.MethodGet)
}

func (h *ReportHandler) GetOptions(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, h.service.Options(h.now()))
}

type SelectionResponse struct {
	Selection report.Selection `json:"selection"`
	Start     string           `json:"start"`
	End       string           `json:"end"`
}

// ResolveSelection checks that every filter is set and resolves the date range.
func (h *ReportHandler) ResolveSelection(w http.ResponseWriter, r *http.Request) error {
	var sel report.Selection
	if err := decodeBody(r, &sel); err != nil {
		return err
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	rng, err := sel.Range(h.now())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &SelectionResponse{
		Selection: sel,
		Start:     rng.Start.Format(report.DateLayout),
		End:       rng.End.Format(report.DateLayout),
	})
}

type RecordsResponse struct {
	Table report.Table          `json:"table"`
	Items []report.UploadRecord `json:"items"`
}

// ListRecords lists one table, narrowed by ehr, account and the from/to days.
func (h *ReportHandler) ListRecords(w http.ResponseWriter, r *http.Request) error {
	table, err := report.ParseTable(mux.Vars(r)["table"])
	if err != nil {
		return err
	}
	filter, err := h.recordFilter(r)
	if err != nil {
		return err
	}
	items, err := h.service.Records(r.Context(), table, filter)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &RecordsResponse{Table: table, Items: items})
}

func (h *ReportHandler) recordFilter(r *http.Request) (report.RecordFilter, error) {
	q := r.URL.Query()
	filter := report.RecordFilter{EHR: q.Get("ehr"), Accounts: q["account"]}

	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return filter, nil
	}
	now := h.now()
	rng := report.DateRange{Start: time.Time{}.In(now.Location()), End: now}
	var err error
	if from != "" {
		if rng.Start, err = time.ParseInLocation(report.DateLayout, from, now.Location()); err != nil {
			return filter, errors.InvalidArgument("invalid from date", errors.WithCause(err), errors.WithID("api.reports.from"))
		}
	}
	if to != "" {
		if rng.End, err = time.ParseInLocation(report.DateLayout, to, now.Location()); err != nil {
			return filter, errors.InvalidArgument("invalid to date", errors.WithCause(err), errors.WithID("api.reports.to"))
		}
	}
	if rng.End.Before(rng.Start) {
		return filter, errors.InvalidArgument("to date is before from date", errors.WithID("api.reports.range"))
	}
	filter.Range = &rng
	return filter, nil
}

// DownloadExport encodes the table and answers with the file as an attachment.
func (h *ReportHandler) DownloadExport(w http.ResponseWriter, r *http.Request) error {
	table, err := report.ParseTable(mux.Vars(r)["table"])
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return err
	}
	_, err = h.service.Export(r.Context(), report.ExportJob{Table: table, Format: format}, delivery.NewAttachment(w))
	return err
}

// DownloadArchive packages the documents of the ehr query parameter as a zip attachment.
func (h *ReportHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) error {
	ehr := r.URL.Query().Get("ehr")
	if ehr == "" {
		return &errors.IncompleteSelectionError{Missing: []string{"ehr"}}
	}
	opts := options.NewCreateOptionsAt(r.Context(), h.now())
	_, err := h.service.Package(opts, report.ArchiveRequest{SelectionKey: ehr}, delivery.NewAttachment(w))
	return err
}

// CreateExport queues an export or archive task.
func (h *ReportHandler) CreateExport(w http.ResponseWriter, r *http.Request) error {
	var req report.ExportRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	meta, err := h.service.Enqueue(options.NewCreateOptionsAt(r.Context(), h.now()), &req)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/api/v1/exports/"+meta.TaskID)
	return writeJSON(w, http.StatusAccepted, meta)
}

func (h *ReportHandler) GetExportStatus(w http.ResponseWriter, r *http.Request) error {
	meta, err := h.service.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, meta)
}

func (h *ReportHandler) GetExportHistory(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		return err
	}
	size, err := queryInt(q.Get("size"), "size")
	if err != nil {
		return err
	}
	res, err := h.service.History(options.NewSearchOptions(r.Context(), page, size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

func queryInt(v, name string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.InvalidArgument(
			fmt.Sprintf("invalid %s %q", name, v),
			errors.WithCause(err),
			errors.WithID("api.query."+name),
		)
	}
	return n, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.InvalidArgument("invalid request body", errors.WithCause(err), errors.WithID("api.body.decode"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
