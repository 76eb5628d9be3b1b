package maroto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
)

func TestGenerateUploadPDF(t *testing.T) {
	data, err := GenerateUploadPDF(report.UploadRecord{
		EHR:          "Athena",
		Account:      "Account A",
		Date:         "2024-09-01",
		OrderNumber:  "12345",
		DocumentID:   "DOC001",
		Remarks:      "Signature missing",
		Status:       report.StatusFailed,
		DocumentLink: "Order12345.pdf",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestSummaryLinesSkipMissingLink(t *testing.T) {
	lines := summaryLines(report.UploadRecord{EHR: "HCHB", Status: report.StatusSuccessful})
	for _, l := range lines {
		assert.NotEqual(t, "Document", l[0])
	}
	assert.Len(t, lines, 7)
}
