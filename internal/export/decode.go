package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/xuri/excelize/v2"
)

// Decode reads a payload produced by Encode back into records. Delimited and
// XLSX values come back as strings; JSON numbers come back as json.Number.
func (e *Encoder) Decode(format report.Format, data []byte) ([]report.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case report.FormatCSV, report.FormatTXT:
		rows, err = e.decodeDelimited(data)
	case report.FormatXLSX:
		rows, err = decodeXLSX(data)
	case report.FormatJSON:
		var records []report.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, decodeError(format, err)
		}
		return records, nil
	default:
		return nil, &errors.UnsupportedFormatError{Format: string(format)}
	}
	if err != nil {
		return nil, decodeError(format, err)
	}
	return fromRows(rows), nil
}

func (e *Encoder) decodeDelimited(data []byte) ([][]string, error) {
	if e.quoting {
		r := csv.NewReader(bytes.NewReader(data))
		return r.ReadAll()
	}
	if len(data) == 0 {
		return nil, nil
	}
	lines := strings.Split(string(data), newline)
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = strings.Split(line, delimiter)
	}
	return rows, nil
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(SheetName)
}

// fromRows pairs every row with the header row. Trailing empty cells are
// dropped by spreadsheet readers, so short rows are padded.
func fromRows(rows [][]string) []report.Record {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0]
	records := make([]report.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := make(report.Record, len(header))
		for i, name := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			r[i] = report.Field{Name: name, Value: value}
		}
		records = append(records, r)
	}
	return records
}

func decodeError(format report.Format, err error) error {
	return errors.InvalidArgument(
		fmt.Sprintf("unable to decode %s payload", format),
		errors.WithCause(err),
		errors.WithID("export.decode.error"),
	)
}
