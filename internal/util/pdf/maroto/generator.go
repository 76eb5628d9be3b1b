package maroto

import (
	"fmt"

	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
)

const (
	rowHeight   = 8.0
	labelWidth  = 4
	valueWidth  = 8
	titleHeight = 14.0
)

// GenerateUploadPDF renders a one-page summary of an upload record, used when
// the real document is not available.
func GenerateUploadPDF(rec report.UploadRecord) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetBorder(false)

	m.Row(titleHeight, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Order %s", rec.OrderNumber), props.Text{
				Size:  16,
				Style: consts.Bold,
				Align: consts.Left,
			})
		})
	})

	for _, line := range summaryLines(rec) {
		addLine(m, line[0], line[1])
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to generate output: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryLines(rec report.UploadRecord) [][2]string {
	lines := [][2]string{
		{"EHR", rec.EHR},
		{"Account", rec.Account},
		{"Date", rec.Date},
		{"Order number", rec.OrderNumber},
		{"Document ID", rec.DocumentID},
		{"Status", string(rec.Status)},
		{"Remarks", rec.Remarks},
	}
	if rec.DocumentLink != "" {
		lines = append(lines, [2]string{"Document", rec.DocumentLink})
	}
	return lines
}

func addLine(m pdf.Maroto, label, value string) {
	m.Row(rowHeight, func() {
		m.Col(labelWidth, func() {
			m.Text(label, props.Text{Style: consts.Bold, Size: 10})
		})
		m.Col(valueWidth, func() {
			m.Text(value, props.Text{Size: 10})
		})
	})
}
