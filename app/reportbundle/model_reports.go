package reportbundle

import (
	"time"
)

type SheetType string

const (
	Sheet_SamplesFull SheetType = "SAMPLES_FULL"
	Sheet_LabResults  SheetType = "LAB_RESULTS"
	Sheet_Pesticides  SheetType = "PESTICIDES"
	Sheet_Summary     SheetType = "SUMMARY"
)

// AllSheets in workbook order.
var AllSheets = []SheetType{Sheet_SamplesFull, Sheet_LabResults, Sheet_Pesticides, Sheet_Summary}

func (s SheetType) Valid() bool {
	for _, sheet := range AllSheets {
		if s == sheet {
			return true
		}
	}
	return false
}

// AdminOnly sheets carry treatment details.
func (s SheetType) AdminOnly() bool {
	return s == Sheet_Pesticides
}

var sheetTitles = map[SheetType]string{
	Sheet_SamplesFull: "דגימות - פירוט מלא",
	Sheet_LabResults:  "תוצאות מעבדה",
	Sheet_Pesticides:  "טיפולי הדברה",
	Sheet_Summary:     "סיכום מנהלים",
}

func (s SheetType) Title() string {
	return sheetTitles[s]
}

var (
	SamplesFullHeaders = []string{"מזהה דגימה", "סטטוס", "תאריך דיגום", "תאריך קבלה", "דוגם", "טלפון דוגם", "דוא״ל דוגם", "אזור", "יישוב", "חלקה", "נ.צ.", "גידול", "זן", "פתוגן", "מעבדה", "מספר טיפולים", "מספר בדיקות", "עמידות חמורה"}
	LabResultsHeaders  = []string{"מזהה דגימה", "חומר", "מינון (PPM)", "קטגוריה", "תאריך בדיקה", "מבצע", "הערות"}
	PesticidesHeaders  = []string{"מזהה דגימה", "תאריך טיפול", "חומר", "מינון", "שיטה"}
	SummaryHeaders     = []string{"מעבדה", "אזור", "גידול", "סה״כ דגימות", "דגימות עם עמידות", "אחוז עמידות"}
)

// Filter narrows the samples of a report. An empty Lab selects every lab,
// DateTo is exclusive and already includes the whole last day.
type Filter struct {
	Lab      string
	DateFrom time.Time
	DateTo   time.Time
}

// swagger:model
type Sheet struct {
	Type    SheetType  `json:"type"`
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// swagger:model
type SheetPreview struct {
	Sheet
	TotalRows int `json:"total_rows"`
}

type Report struct {
	Sheets []Sheet
}
