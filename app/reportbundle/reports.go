package reportbundle

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/samplebundle"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "2.1.2006"
	PreviewRows   = 50
	emptyValue    = "-"
)

// ParseFilter reads lab, date_from and date_to (YYYY-MM-DD in core.DayLocation).
func ParseFilter(values url.Values, cat *catalog.Catalog) (Filter, error) {
	filter := Filter{}
	if lab := strings.TrimSpace(values.Get("lab")); !cat.IsAllLabs(lab) {
		filter.Lab = lab
	}
	if val := values.Get("date_from"); val != "" {
		t, err := core.ParseDay(val)
		if err != nil {
			return filter, fmt.Errorf("invalid date_from %q", val)
		}
		filter.DateFrom = t
	}
	if val := values.Get("date_to"); val != "" {
		t, err := core.ParseDayEnd(val)
		if err != nil {
			return filter, fmt.Errorf("invalid date_to %q", val)
		}
		filter.DateTo = t
	}
	return filter, nil
}

// ParseSheets reads sheets=A,B (or repeated). SAMPLES_FULL is always the first
// sheet, duplicates are dropped. Without a selection every sheet allowed for
// the role is returned.
func ParseSheets(values url.Values, admin bool) ([]SheetType, error) {
	requested := []SheetType{}
	for _, val := range values["sheets"] {
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				requested = append(requested, SheetType(strings.ToUpper(part)))
			}
		}
	}
	if len(requested) == 0 {
		for _, sheet := range AllSheets {
			if admin || !sheet.AdminOnly() {
				requested = append(requested, sheet)
			}
		}
	}

	sheets := []SheetType{Sheet_SamplesFull}
	seen := map[SheetType]bool{Sheet_SamplesFull: true}
	for _, sheet := range requested {
		if !sheet.Valid() {
			return nil, fmt.Errorf("unknown sheet %q", sheet)
		}
		if sheet.AdminOnly() && !admin {
			return nil, core.ErrNotAuthorized
		}
		if seen[sheet] {
			continue
		}
		seen[sheet] = true
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (f Filter) Matches(sample *samplebundle.Sample) bool {
	if f.Lab != "" && sample.Lab != f.Lab {
		return false
	}
	if f.DateFrom.IsZero() && f.DateTo.IsZero() {
		return true
	}
	if !sample.Date.Valid {
		return false
	}
	if !f.DateFrom.IsZero() && sample.Date.Time.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && !sample.Date.Time.Before(f.DateTo) {
		return false
	}
	return true
}

func FilterSamples(samples samplebundle.Samples, filter Filter) samplebundle.Samples {
	out := samplebundle.Samples{}
	for i := range samples {
		if filter.Matches(&samples[i]) {
			out = append(out, samples[i])
		}
	}
	return out
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyValue
	}
	return s
}

func formatDate(t core.NullTime) string {
	if !t.Valid {
		return emptyValue
	}
	return t.Time.Local().Format(displayLayout)
}

func samplesFullRows(samples samplebundle.Samples, cat *catalog.Catalog) [][]string {
	rows := [][]string{}
	for i := range samples {
		sample := &samples[i]
		received := emptyValue
		if t, ok := sample.LabConfirmationDate(); ok {
			received = t.Local().Format(displayLayout)
		}
		rows = append(rows, []string{
			sample.InternalId,
			cat.StatusLabel(string(sample.Status)),
			formatDate(sample.Date),
			received,
			sample.CollectorName,
			sample.CollectorPhone,
			sample.CollectorEmail,
			sample.Region,
			orEmpty(sample.Municipality),
			orEmpty(sample.PlotName),
			fmt.Sprintf("%.4f, %.4f", sample.Lat, sample.Lng),
			sample.Crop,
			orEmpty(sample.Variety),
			sample.Pathogen,
			sample.Lab,
			strconv.Itoa(len(sample.PesticideHistory)),
			strconv.Itoa(len(sample.Results)),
			string(samplebundle.WorstCategory(sample.Results)),
		})
	}
	return rows
}

func labResultsRows(samples samplebundle.Samples) [][]string {
	rows := [][]string{}
	for _, sample := range samples {
		for _, test := range sample.Results {
			rows = append(rows, []string{
				sample.InternalId,
				test.Material,
				test.Dosage,
				string(test.Category),
				formatDate(test.Date),
				test.User,
				orEmpty(test.Notes),
			})
		}
	}
	return rows
}

func pesticidesRows(samples samplebundle.Samples) [][]string {
	rows := [][]string{}
	for _, sample := range samples {
		for _, treatment := range sample.PesticideHistory {
			rows = append(rows, []string{
				sample.InternalId,
				formatDate(treatment.Date),
				treatment.Material,
				treatment.Dosage,
				treatment.Method,
			})
		}
	}
	return rows
}

type summaryGroup struct {
	lab       string
	region    string
	crop      string
	total     int
	resistant int
}

// summaryRows groups by lab, region and crop in order of first appearance.
func summaryRows(samples samplebundle.Samples) [][]string {
	groups := []*summaryGroup{}
	byKey := map[string]*summaryGroup{}
	for _, sample := range samples {
		key := sample.Lab + "|" + sample.Region + "|" + sample.Crop
		group, ok := byKey[key]
		if !ok {
			group = &summaryGroup{lab: sample.Lab, region: sample.Region, crop: sample.Crop}
			byKey[key] = group
			groups = append(groups, group)
		}
		group.total++
		if samplebundle.HasResistance(sample.Results) {
			group.resistant++
		}
	}

	rows := [][]string{}
	for _, group := range groups {
		rows = append(rows, []string{
			group.lab,
			group.region,
			group.crop,
			strconv.Itoa(group.total),
			strconv.Itoa(group.resistant),
			fmt.Sprintf("%.1f%%", samplebundle.ResistanceRate(group.resistant, group.total)),
		})
	}
	return rows
}

func BuildSheet(sheetType SheetType, samples samplebundle.Samples, cat *catalog.Catalog) Sheet {
	sheet := Sheet{Type: sheetType, Title: sheetType.Title()}
	switch sheetType {
	case Sheet_SamplesFull:
		sheet.Headers, sheet.Rows = SamplesFullHeaders, samplesFullRows(samples, cat)
	case Sheet_LabResults:
		sheet.Headers, sheet.Rows = LabResultsHeaders, labResultsRows(samples)
	case Sheet_Pesticides:
		sheet.Headers, sheet.Rows = PesticidesHeaders, pesticidesRows(samples)
	case Sheet_Summary:
		sheet.Headers, sheet.Rows = SummaryHeaders, summaryRows(samples)
	}
	return sheet
}

func BuildReport(samples samplebundle.Samples, sheets []SheetType, cat *catalog.Catalog) Report {
	report := Report{}
	for _, sheetType := range sheets {
		report.Sheets = append(report.Sheets, BuildSheet(sheetType, samples, cat))
	}
	return report
}

// Preview cuts every sheet to PreviewRows rows and keeps the full count.
func (r Report) Preview() []SheetPreview {
	previews := []SheetPreview{}
	for _, sheet := range r.Sheets {
		preview := SheetPreview{Sheet: sheet, TotalRows: len(sheet.Rows)}
		if len(preview.Rows) > PreviewRows {
			preview.Rows = preview.Rows[:PreviewRows]
		}
		previews = append(previews, preview)
	}
	return previews
}

// SheetNames returns the workbook sheet names in order.
func (r Report) SheetNames() []string {
	names := []string{}
	for _, sheet := range r.Sheets {
		names = append(names, sheet.Title)
	}
	return names
}

func (r Report) ExportXLSX() ([]byte, error) {
	file := xlsx.NewFile()
	for _, sheet := range r.Sheets {
		if _, err := core.AddTableSheet(file, sheet.Title, sheet.Headers, sheet.Rows); err != nil {
			return nil, fmt.Errorf("writing sheet %s: %w", sheet.Type, err)
		}
	}
	return core.WorkbookBytes(file)
}

func ExportFilename(appName string, t time.Time) string {
	return fmt.Sprintf("%s_Reports_%s.xlsx", appName, t.Format(dateLayout))
}
