package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/xuri/excelize/v2"
)

func (e *Encoder) encodeXLSX(records []report.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer e.closeWorkbook(f)

	header := make([]any, 0, len(records[0]))
	for _, name := range records[0].Names() {
		header = append(header, name)
	}
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, r := range records {
		row := make([]any, len(r))
		for j, field := range r {
			row[j] = cellValue(field.Value)
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Encoder) closeWorkbook(c io.Closer) {
	if err := c.Close(); err != nil {
		e.log.Warn("export.xlsx.close_failed", slog.String("error", err.Error()))
	}
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("unable to set row %d: %w", row, err)
	}
	return nil
}

// cellValue keeps numbers and booleans typed and renders everything else as text.
func cellValue(v any) any {
	switch v := v.(type) {
	case nil:
		return ""
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	default:
		return formatValue(v)
	}
}
