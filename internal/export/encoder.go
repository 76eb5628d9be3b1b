package export

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
)

// SheetName is the only sheet of an XLSX export.
const SheetName = "Sheet1"

// Payload is an encoded export, ready to be handed to a delivery backend.
type Payload struct {
	Name     string
	MimeType string
	Data     []byte
}

func (p *Payload) Size() int64 { return int64(len(p.Data)) }

type Encoder struct {
	quoting bool
	log     *slog.Logger
}

type Option func(*Encoder)

// WithQuoting escapes delimited output per RFC 4180. Off by default, which
// writes values verbatim and assumes they contain no delimiter or newline.
func WithQuoting(enabled bool) Option {
	return func(e *Encoder) { e.quoting = enabled }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Encoder) { e.log = log }
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode renders records of table in format. Nothing is produced unless the
// whole list encodes.
func (e *Encoder) Encode(table report.Table, format report.Format, records []report.Record) (*Payload, error) {
	if !slices.Contains(report.Formats, format) {
		return nil, &errors.UnsupportedFormatError{Format: string(format)}
	}
	if err := validate(table, records); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case report.FormatCSV, report.FormatTXT:
		data, err = e.encodeDelimited(records)
	case report.FormatXLSX:
		data, err = e.encodeXLSX(records)
	case report.FormatJSON:
		data, err = encodeJSON(records)
	}
	if err != nil {
		return nil, errors.Internal(
			fmt.Sprintf("unable to encode %s export of %s", format, table),
			errors.WithCause(err),
			errors.WithID("export.encode.error"),
		)
	}

	job := report.ExportJob{Table: table, Format: format}
	e.log.Debug("export.encoder.encoded",
		slog.String("table", string(table)),
		slog.String("format", string(format)),
		slog.Int("records", len(records)),
		slog.Int("bytes", len(data)),
	)
	return &Payload{Name: job.FileName(), MimeType: format.MimeType(), Data: data}, nil
}

// EncodeUploads is Encode over typed upload records.
func (e *Encoder) EncodeUploads(job report.ExportJob, uploads []report.UploadRecord) (*Payload, error) {
	return e.Encode(job.Table, job.Format, report.Records(uploads))
}

// validate enforces a non-empty list whose records share the first record's fields.
func validate(table report.Table, records []report.Record) error {
	if len(records) == 0 {
		return &errors.EmptyExportError{Table: string(table)}
	}
	for i := 1; i < len(records); i++ {
		if !records[i].SameFields(records[0]) {
			return &errors.MismatchedFieldsError{Table: string(table), Index: i}
		}
	}
	return nil
}

// formatValue renders a field value as delimited or cell text.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
