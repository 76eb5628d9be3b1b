package errors

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
)

// EmptyExportError is returned when a table with zero records is exported.
type EmptyExportError struct {
	Table string
}

func (e *EmptyExportError) Error() string {
	return fmt.Sprintf("export %s: no records to export", e.Table)
}

func (e *EmptyExportError) ID() string       { return "export.encode.empty" }
func (e *EmptyExportError) Code() codes.Code { return codes.InvalidArgument }

func (e *EmptyExportError) MessageID() string { return e.ID() }
func (e *EmptyExportError) TranslationParams() map[string]any {
	return map[string]any{"Table": e.Table}
}

// UnsupportedFormatError is returned for a format token outside csv, txt, xlsx and json.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("export: unsupported format %q", e.Format)
}

func (e *UnsupportedFormatError) ID() string       { return "export.format.unsupported" }
func (e *UnsupportedFormatError) Code() codes.Code { return codes.InvalidArgument }

func (e *UnsupportedFormatError) MessageID() string { return e.ID() }
func (e *UnsupportedFormatError) TranslationParams() map[string]any {
	return map[string]any{"Format": e.Format}
}

// MismatchedFieldsError reports a record whose field names differ from the first record.
type MismatchedFieldsError struct {
	Table string
	Index int
}

func (e *MismatchedFieldsError) Error() string {
	return fmt.Sprintf("export %s: record %d does not match the header fields", e.Table, e.Index)
}

func (e *MismatchedFieldsError) ID() string       { return "export.encode.mismatched_fields" }
func (e *MismatchedFieldsError) Code() codes.Code { return codes.InvalidArgument }

// NoMatchingRecordsError is the non-fatal outcome of packaging a selection with no documents.
type NoMatchingRecordsError struct {
	SelectionKey string
}

func (e *NoMatchingRecordsError) Error() string {
	return fmt.Sprintf("archive: no documents for %q", e.SelectionKey)
}

func (e *NoMatchingRecordsError) ID() string       { return "report.archive.no_documents" }
func (e *NoMatchingRecordsError) Code() codes.Code { return codes.NotFound }

func (e *NoMatchingRecordsError) MessageID() string { return e.ID() }
func (e *NoMatchingRecordsError) TranslationParams() map[string]any {
	return map[string]any{"EHR": e.SelectionKey}
}

// DocumentFetchError is returned when none of the selected documents could be read.
type DocumentFetchError struct {
	SelectionKey string
	Failed       int
	Err          error
}

func (e *DocumentFetchError) Error() string {
	return fmt.Sprintf("archive %s: %d document(s) could not be fetched: %v", e.SelectionKey, e.Failed, e.Err)
}

func (e *DocumentFetchError) Unwrap() error    { return e.Err }
func (e *DocumentFetchError) ID() string       { return "archive.documents.fetch" }
func (e *DocumentFetchError) Code() codes.Code { return codes.Internal }

// DeliveryError wraps a failure of the file delivery backend.
type DeliveryError struct {
	Name    string
	Backend string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s via %s: %v", e.Name, e.Backend, e.Err)
}

func (e *DeliveryError) Unwrap() error    { return e.Err }
func (e *DeliveryError) ID() string       { return "delivery.save.error" }
func (e *DeliveryError) Code() codes.Code { return codes.Unavailable }

// IncompleteSelectionError lists the dashboard filters left unset.
type IncompleteSelectionError struct {
	Missing []string
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("selection: missing filters: %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteSelectionError) ID() string       { return "report.filters.incomplete" }
func (e *IncompleteSelectionError) Code() codes.Code { return codes.InvalidArgument }

func (e *IncompleteSelectionError) MessageID() string { return e.ID() }
func (e *IncompleteSelectionError) TranslationParams() map[string]any {
	return map[string]any{"Missing": strings.Join(e.Missing, ", ")}
}
