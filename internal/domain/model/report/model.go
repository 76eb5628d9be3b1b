package report

import (
	"fmt"
	"strings"

	"github.com/webitel/bot-report-exporter/internal/errors"
)

type UploadStatus string

const (
	StatusFailed     UploadStatus = "Failed"
	StatusSuccessful UploadStatus = "Successful"
)

// UploadRecord is the outcome of one bot document upload against an EHR.
type UploadRecord struct {
	EHR          string       `json:"ehr" db:"ehr"`
	Account      string       `json:"account" db:"account"`
	Date         string       `json:"date" db:"date"` // YYYY-MM-DD
	OrderNumber  string       `json:"orderNumber" db:"order_number"`
	DocumentID   string       `json:"documentId" db:"document_id"`
	Remarks      string       `json:"remarks" db:"remarks"`
	Status       UploadStatus `json:"status" db:"status"`
	DocumentLink string       `json:"documentLink,omitempty" db:"document_link"`
}

// Record flattens u in column order. Only failed uploads carry documentLink.
func (u UploadRecord) Record() Record {
	r := Record{
		{Name: "ehr", Value: u.EHR},
		{Name: "account", Value: u.Account},
		{Name: "date", Value: u.Date},
		{Name: "orderNumber", Value: u.OrderNumber},
		{Name: "documentId", Value: u.DocumentID},
		{Name: "remarks", Value: u.Remarks},
		{Name: "status", Value: string(u.Status)},
	}
	if u.Status == StatusFailed {
		r = append(r, Field{Name: "documentLink", Value: u.DocumentLink})
	}
	return r
}

func Records(uploads []UploadRecord) []Record {
	out := make([]Record, len(uploads))
	for i, u := range uploads {
		out[i] = u.Record()
	}
	return out
}

// RecordSet holds the two read-only partitions of upload outcomes.
type RecordSet struct {
	Failed     []UploadRecord
	Successful []UploadRecord
}

func (s RecordSet) Table(t Table) []UploadRecord {
	if t == TableFailed {
		return s.Failed
	}
	return s.Successful
}

type Table string

const (
	TableFailed     Table = "failed"
	TableSuccessful Table = "successful"
)

func ParseTable(s string) (Table, error) {
	switch t := Table(strings.ToLower(strings.TrimSpace(s))); t {
	case TableFailed, TableSuccessful:
		return t, nil
	default:
		return "", errors.InvalidArgument(
			fmt.Sprintf("unknown table %q", s),
			errors.WithID("report.table.invalid"),
		)
	}
}

func (t Table) Status() UploadStatus {
	if t == TableFailed {
		return StatusFailed
	}
	return StatusSuccessful
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var Formats = []Format{FormatCSV, FormatTXT, FormatXLSX, FormatJSON}

func ParseFormat(token string) (Format, error) {
	switch f := Format(token); f {
	case FormatCSV, FormatTXT, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", &errors.UnsupportedFormatError{Format: token}
	}
}

func (f Format) Extension() string { return string(f) }

func (f Format) MimeType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain"
	}
}

// ExportJob selects one table and one output format.
type ExportJob struct {
	Table  Table
	Format Format
}

func (j ExportJob) FileName() string {
	return fmt.Sprintf("%s_document_uploads.%s", j.Table, j.Format.Extension())
}

// ArchiveRequest selects the EHR whose documents are packaged.
type ArchiveRequest struct {
	SelectionKey string
}
