package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/webitel/bot-report-exporter/internal/errors"
)

const DateLayout = "2006-01-02"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	EHROptions = []Option{
		{Value: "Athena", Label: "Athena"},
		{Value: "HCHB", Label: "HCHB"},
		{Value: "Kinnser", Label: "Kinnser"},
		{Value: "Kantime", Label: "Kantime"},
		{Value: "Axxess", Label: "Axxess"},
	}
	BotTypeOptions = []Option{
		{Value: "signed", Label: "Signed"},
		{Value: "unsigned", Label: "Unsigned"},
		{Value: "patient", Label: "Patient"},
		{Value: "reverse_sync", Label: "Reverse Sync"},
	}
	GraphTypeOptions = []Option{
		{Value: "bar", Label: "Bar Graph"},
		{Value: "pie", Label: "Pie Chart"},
		{Value: "line", Label: "Line Graph"},
	}
)

type DateRangeKind string

const (
	RangeDaily   DateRangeKind = "daily"
	RangeWeekly  DateRangeKind = "weekly"
	RangeMonthly DateRangeKind = "monthly"
	RangeCustom  DateRangeKind = "custom"
)

// FilterOptions is the catalogue behind the dashboard filter dropdowns.
type FilterOptions struct {
	EHRs       []Option `json:"ehrs"`
	BotTypes   []Option `json:"bot_types"`
	GraphTypes []Option `json:"graph_types"`
	DateRanges []Option `json:"date_ranges"`
}

func Catalogue(now time.Time) *FilterOptions {
	return &FilterOptions{
		EHRs:       EHROptions,
		BotTypes:   BotTypeOptions,
		GraphTypes: GraphTypeOptions,
		DateRanges: DateOptions(now),
	}
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(truncateDay(r.Start)) && !day.After(truncateDay(r.End))
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s - %s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// Ranges computes the preset ranges ending at now.
func Ranges(now time.Time) map[DateRangeKind]DateRange {
	return map[DateRangeKind]DateRange{
		RangeDaily:   {Start: now, End: now},
		RangeWeekly:  {Start: now.AddDate(0, 0, -7), End: now},
		RangeMonthly: {Start: now.AddDate(0, -1, 0), End: now},
	}
}

func DateOptions(now time.Time) []Option {
	ranges := Ranges(now)
	return []Option{
		{Value: string(RangeDaily), Label: fmt.Sprintf("Daily (%s)", ranges[RangeDaily].Start.Format(DateLayout))},
		{Value: string(RangeWeekly), Label: fmt.Sprintf("Weekly (%s)", ranges[RangeWeekly])},
		{Value: string(RangeMonthly), Label: fmt.Sprintf("Monthly (%s)", ranges[RangeMonthly])},
		{Value: string(RangeCustom), Label: "Custom Range"},
	}
}

// Selection is the dashboard filter state passed explicitly to report operations.
type Selection struct {
	EHR         string        `json:"ehr"`
	Agencies    []string      `json:"agencies"`
	BotType     string        `json:"bot_type"`
	DateRange   DateRangeKind `json:"date_range"`
	CustomStart string        `json:"custom_start,omitempty"`
	CustomEnd   string        `json:"custom_end,omitempty"`
}

// Validate requires every filter the dashboard asks for before loading graphs.
func (s Selection) Validate() error {
	var missing []string
	if s.EHR == "" {
		missing = append(missing, "ehr")
	}
	if len(s.Agencies) == 0 {
		missing = append(missing, "agencies")
	}
	if s.BotType == "" {
		missing = append(missing, "bot_type")
	}
	if s.DateRange == "" {
		missing = append(missing, "date_range")
	}
	if len(missing) > 0 {
		return &errors.IncompleteSelectionError{Missing: missing}
	}
	return nil
}

// Range resolves the selected date range relative to now.
func (s Selection) Range(now time.Time) (DateRange, error) {
	if s.DateRange != RangeCustom {
		r, ok := Ranges(now)[s.DateRange]
		if !ok {
			return DateRange{}, errors.InvalidArgument(
				fmt.Sprintf("unknown date range %q", s.DateRange),
				errors.WithID("report.selection.date_range"),
			)
		}
		return r, nil
	}
	start, err := time.ParseInLocation(DateLayout, s.CustomStart, now.Location())
	if err != nil {
		return DateRange{}, errors.InvalidArgument("invalid custom start date", errors.WithCause(err), errors.WithID("report.selection.custom_start"))
	}
	end, err := time.ParseInLocation(DateLayout, s.CustomEnd, now.Location())
	if err != nil {
		return DateRange{}, errors.InvalidArgument("invalid custom end date", errors.WithCause(err), errors.WithID("report.selection.custom_end"))
	}
	if end.Before(start) {
		return DateRange{}, errors.InvalidArgument("custom range ends before it starts", errors.WithID("report.selection.custom_order"))
	}
	return DateRange{Start: start, End: end}, nil
}

// RecordFilter narrows a table listing. Zero values match everything.
type RecordFilter struct {
	EHR      string
	Accounts []string
	Range    *DateRange
}

func (f RecordFilter) Apply(records []UploadRecord) []UploadRecord {
	out := make([]UploadRecord, 0, len(records))
	for _, r := range records {
		if f.EHR != "" && r.EHR != f.EHR {
			continue
		}
		if len(f.Accounts) > 0 && !slices.Contains(f.Accounts, r.Account) {
			continue
		}
		if f.Range != nil {
			day, err := time.ParseInLocation(DateLayout, r.Date, f.Range.Start.Location())
			if err != nil || !f.Range.Contains(day) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
