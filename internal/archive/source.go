package archive

import (
	"context"
	"fmt"
	"path"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/util/pdf/maroto"
)

// PlaceholderContent stands in for a document when no document store is configured.
const PlaceholderContent = "PDF content for demonstration"

type SourceKind string

const (
	SourcePlaceholder SourceKind = "placeholder"
	SourceRendered    SourceKind = "rendered"
	SourceStorage     SourceKind = "storage"
)

// DocumentSource supplies the bytes of the document behind an upload record.
type DocumentSource interface {
	Document(ctx context.Context, rec report.UploadRecord, name string) ([]byte, error)
}

// ObjectReader reads a stored object by name.
type ObjectReader interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// Compile-time check to verify implements interface.
var (
	_ DocumentSource = PlaceholderSource{}
	_ DocumentSource = RenderedSource{}
	_ DocumentSource = (*StorageSource)(nil)
)

type PlaceholderSource struct{}

func (PlaceholderSource) Document(context.Context, report.UploadRecord, string) ([]byte, error) {
	return []byte(PlaceholderContent), nil
}

// RenderedSource draws a summary PDF of the record.
type RenderedSource struct{}

func (RenderedSource) Document(_ context.Context, rec report.UploadRecord, _ string) ([]byte, error) {
	return maroto.GenerateUploadPDF(rec)
}

// StorageSource reads <Prefix>/<name> from a document bucket.
type StorageSource struct {
	Reader ObjectReader
	Prefix string
}

// Document refuses names that are not a single path element.
func (s *StorageSource) Document(ctx context.Context, _ report.UploadRecord, name string) ([]byte, error) {
	if !ValidEntryName(name) {
		return nil, fmt.Errorf("document name %q escapes prefix %s", name, s.Prefix)
	}
	return s.Reader.Read(ctx, path.Join(s.Prefix, name))
}
