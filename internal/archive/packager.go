package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/model/options"
	"golang.org/x/sync/errgroup"
)

const (
	MimeType = "application/zip"

	defaultConcurrency = 4
	defaultRetries     = 2
	defaultBackoff     = 200 * time.Millisecond
)

// Archive is a packaged selection.
type Archive struct {
	Name    string
	Folder  string
	Entries []string
	Skipped []Skipped
	Data    []byte
}

func (a *Archive) MimeType() string { return MimeType }
func (a *Archive) Size() int64      { return int64(len(a.Data)) }

// Skipped is an entry left out because its document could not be fetched.
type Skipped struct {
	Entry string `json:"entry"`
	Error string `json:"error"`
}

type Packager struct {
	source      DocumentSource
	concurrency int
	retries     uint64
	backoff     time.Duration
	log         *slog.Logger
}

type Option func(*Packager)

func WithSource(src DocumentSource) Option {
	return func(p *Packager) { p.source = src }
}

// WithConcurrency bounds the number of documents fetched at once.
func WithConcurrency(n int) Option {
	return func(p *Packager) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRetries sets how many times a failed fetch is retried and the pause between attempts.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(p *Packager) {
		p.retries = n
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Packager) { p.log = log }
}

func NewPackager(opts ...Option) *Packager {
	p := &Packager{
		source:      PlaceholderSource{},
		concurrency: defaultConcurrency,
		retries:     defaultRetries,
		backoff:     defaultBackoff,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type entry struct {
	path   string
	name   string
	record report.UploadRecord
	data   []byte
	err    error
}

// Package zips one document per upload record of the selected EHR into a
// folder named after the EHR and the request date. A selection without
// records is reported as NoMatchingRecordsError and produces nothing.
func (p *Packager) Package(opts *options.CreateOptions, success, failed []report.UploadRecord, req report.ArchiveRequest) (*Archive, error) {
	matched := append(matching(failed, req.SelectionKey), matching(success, req.SelectionKey)...)
	if len(matched) == 0 {
		return nil, &errors.NoMatchingRecordsError{SelectionKey: req.SelectionKey}
	}

	day := truncateDay(opts.RequestTime())
	folder := FolderName(req.SelectionKey, day)
	entries := p.plan(folder, matched)

	if err := p.fetch(opts, entries); err != nil {
		return nil, err
	}

	var (
		fetched []*entry
		skipped []Skipped
		lastErr error
	)
	for _, e := range entries {
		if e.err != nil {
			skipped = append(skipped, Skipped{Entry: e.path, Error: e.err.Error()})
			lastErr = e.err
			continue
		}
		fetched = append(fetched, e)
	}
	if len(fetched) == 0 {
		return nil, &errors.DocumentFetchError{SelectionKey: req.SelectionKey, Failed: len(skipped), Err: lastErr}
	}

	data, err := write(fetched, day)
	if err != nil {
		return nil, errors.Internal(
			fmt.Sprintf("unable to build archive %s", folder),
			errors.WithCause(err),
			errors.WithID("archive.zip.error"),
		)
	}

	a := &Archive{
		Name:    folder + ".zip",
		Folder:  folder,
		Entries: make([]string, 0, len(fetched)),
		Skipped: skipped,
		Data:    data,
	}
	for _, e := range fetched {
		a.Entries = append(a.Entries, e.path)
	}
	p.log.InfoContext(opts, "archive.packager.packaged",
		slog.String("ehr", req.SelectionKey),
		slog.String("name", a.Name),
		slog.Int("entries", len(a.Entries)),
		slog.Int("skipped", len(a.Skipped)),
	)
	return a, nil
}

// FolderName is <key>-<YYYY-MM-DD> in the calendar of day's location.
func FolderName(key string, day time.Time) string {
	return fmt.Sprintf("%s-%s", key, day.Format(report.DateLayout))
}

// EntryName is the record's document link or, when the link is missing or is
// not a plain file name, a name derived from the order number.
func EntryName(rec report.UploadRecord) string {
	if ValidEntryName(rec.DocumentLink) {
		return rec.DocumentLink
	}
	return fmt.Sprintf("Order%s.pdf", rec.OrderNumber)
}

// ValidEntryName reports whether name is a single path element, so the entry
// stays inside the archive folder and the document prefix.
func ValidEntryName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		path.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// plan lays out one entry per record. A later record with the same path
// replaces the earlier one in place. Records whose name cannot be used are
// planned as failed entries.
func (p *Packager) plan(folder string, records []report.UploadRecord) []*entry {
	index := make(map[string]int, len(records))
	entries := make([]*entry, 0, len(records))
	for _, rec := range records {
		if rec.DocumentLink != "" && !ValidEntryName(rec.DocumentLink) {
			p.log.Warn("archive.packager.invalid_link",
				slog.String("link", rec.DocumentLink),
				slog.String("order", rec.OrderNumber),
			)
		}
		name := EntryName(rec)
		e := &entry{path: folder + "/" + name, name: name, record: rec}
		if !ValidEntryName(name) {
			e.path = name
			e.err = fmt.Errorf("invalid document name %q", name)
			entries = append(entries, e)
			continue
		}
		if i, dup := index[e.path]; dup {
			p.log.Warn("archive.packager.duplicate_entry",
				slog.String("entry", e.path),
				slog.String("replaced_order", entries[i].record.OrderNumber),
				slog.String("order", rec.OrderNumber),
			)
			entries[i] = e
			continue
		}
		index[e.path] = len(entries)
		entries = append(entries, e)
	}
	return entries
}

// fetch loads every entry's document. Per-entry failures are recorded on the
// entry; only cancellation of ctx aborts the whole fetch.
func (p *Packager) fetch(ctx context.Context, entries []*entry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, e := range entries {
		if e.err != nil {
			continue
		}
		g.Go(func() error {
			e.data, e.err = p.fetchOne(gctx, e)
			if e.err != nil {
				p.log.WarnContext(gctx, "archive.packager.fetch_failed",
					slog.String("entry", e.path),
					slog.String("error", e.err.Error()),
				)
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Internal("archive fetch canceled", errors.WithCause(err), errors.WithID("archive.fetch.canceled"))
	}
	return nil
}

func (p *Packager) fetchOne(ctx context.Context, e *entry) ([]byte, error) {
	b := retry.WithMaxRetries(p.retries, retry.NewConstant(p.backoff))

	var data []byte
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		d, err := p.source.Document(ctx, e.record, e.name)
		if err != nil {
			return retry.RetryableError(err)
		}
		data = d
		return nil
	})
	return data, err
}

func write(entries []*entry, modified time.Time) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.path,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to create zip entry %s: %w", e.path, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("unable to write zip entry %s: %w", e.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("unable to close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func matching(records []report.UploadRecord, key string) []report.UploadRecord {
	var out []report.UploadRecord
	for _, r := range records {
		if r.EHR == key {
			out = append(out, r)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
