package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
)

const (
	delimiter = ","
	newline   = "\n"
)

func (e *Encoder) encodeDelimited(records []report.Record) ([]byte, error) {
	if e.quoting {
		return encodeQuoted(records)
	}
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(records[0].Names(), delimiter))
	for _, r := range records {
		lines = append(lines, strings.Join(rowOf(r), delimiter))
	}
	return []byte(strings.Join(lines, newline)), nil
}

func encodeQuoted(records []report.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(records[0].Names()); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(rowOf(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte(newline)), nil
}

func rowOf(r report.Record) []string {
	row := make([]string, len(r))
	for i, f := range r {
		row[i] = formatValue(f.Value)
	}
	return row
}
