// Package sample serves the fixed upload records shown on the dashboard.
package sample

import (
	"context"
	"slices"

	"github.com/webitel/bot-report-exporter/internal/domain/model/report"
	"github.com/webitel/bot-report-exporter/internal/store"
)

// Compile-time check to verify implements interface.
var _ store.UploadStore = (*Uploads)(nil)

var (
	failedUploads = []report.UploadRecord{
		{
			EHR:          "Athena",
			Account:      "Account A",
			Date:         "2024-11-22",
			OrderNumber:  "12345",
			DocumentID:   "98765",
			Remarks:      "Patient record not found",
			Status:       report.StatusFailed,
			DocumentLink: "Order12345.pdf",
		},
		{
			EHR:          "HCHB",
			Account:      "Account B",
			Date:         "2024-11-23",
			OrderNumber:  "67890",
			DocumentID:   "54321",
			Remarks:      "Invalid document format",
			Status:       report.StatusFailed,
			DocumentLink: "Order67890.pdf",
		},
	}
	successfulUploads = []report.UploadRecord{
		{
			EHR:         "Kinnser",
			Account:     "Account C",
			Date:        "2024-11-22",
			OrderNumber: "11223",
			DocumentID:  "66789",
			Remarks:     "Upload successful",
			Status:      report.StatusSuccessful,
		},
		{
			EHR:         "Axxess",
			Account:     "Account D",
			Date:        "2024-11-23",
			OrderNumber: "44556",
			DocumentID:  "77890",
			Remarks:     "Uploaded on first attempt",
			Status:      report.StatusSuccessful,
		},
	}
)

// RecordSet returns a copy of the fixtures.
func RecordSet() report.RecordSet {
	return report.RecordSet{
		Failed:     slices.Clone(failedUploads),
		Successful: slices.Clone(successfulUploads),
	}
}

type Uploads struct {
	set report.RecordSet
}

func New() *Uploads {
	return &Uploads{set: RecordSet()}
}

// NewWith serves the given records instead of the fixtures.
func NewWith(set report.RecordSet) *Uploads {
	return &Uploads{set: set}
}

func (u *Uploads) ListUploads(_ context.Context, table report.Table, filter report.RecordFilter) ([]report.UploadRecord, error) {
	return filter.Apply(u.set.Table(table)), nil
}
