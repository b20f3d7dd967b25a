package samplebundle

import (
	"time"

	"onlab_backend/app/core"
)

type SampleStatus string

const (
	StatusSent                   SampleStatus = "SENT"
	StatusPendingLabConfirmation SampleStatus = "PENDING_LAB_CONFIRMATION"
	StatusReceivedLab            SampleStatus = "RECEIVED_LAB"
	StatusInTesting              SampleStatus = "IN_TESTING"
	StatusResultsEntered         SampleStatus = "RESULTS_ENTERED"
)

var AllStatuses = []SampleStatus{StatusSent, StatusPendingLabConfirmation, StatusReceivedLab, StatusInTesting, StatusResultsEntered}

func (s SampleStatus) Valid() bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ResistanceCategory ordered from most sensitive (HS) to resistant (R).
type ResistanceCategory string

const (
	CategoryHS ResistanceCategory = "HS"
	CategoryS  ResistanceCategory = "S"
	CategoryRS ResistanceCategory = "RS"
	CategoryT  ResistanceCategory = "T"
	CategoryR  ResistanceCategory = "R"
)

var categorySeverity = map[ResistanceCategory]int{
	CategoryHS: 1,
	CategoryS:  2,
	CategoryRS: 3,
	CategoryT:  4,
	CategoryR:  5,
}

func (c ResistanceCategory) Valid() bool {
	_, ok := categorySeverity[c]
	return ok
}

// Severity is 0 for unknown categories.
func (c ResistanceCategory) Severity() int {
	return categorySeverity[c]
}

const (
	Event_Created         = "CREATED"
	Event_StatusChange    = "STATUS_CHANGE"
	Event_ResultAdded     = "RESULT_ADDED"
	Event_ResultUpdated   = "RESULT_UPDATED"
	Event_LabConfirmation = "LAB_CONFIRMATION"
	Event_NoteAdded       = "NOTE_ADDED"
)

const (
	DefaultLat = 31.5
	DefaultLng = 34.8
)

// swagger:model
type Sample struct {
	core.Model
	InternalId        string        `json:"internal_id" gorm:"type:varchar(32);unique_index"`
	CollectorName     string        `json:"collector_name"`
	CollectorPhone    string        `json:"collector_phone"`
	CollectorEmail    string        `json:"collector_email"`
	Date              core.NullTime `json:"date"`
	Region            string        `json:"region" gorm:"index"`
	Crop              string        `json:"crop"`
	Variety           string        `json:"variety"`
	CultivationSystem string        `json:"cultivation_system"`
	Pathogen          string        `json:"pathogen" gorm:"index"`
	Lat               float64       `json:"lat"`
	Lng               float64       `json:"lng"`
	Status            SampleStatus  `json:"status" gorm:"type:varchar(32);index"`
	IsArchived        bool          `json:"is_archived"`
	Notes             string        `json:"notes" gorm:"type:text"`
	ImageUrl          string        `json:"image_url"`
	Municipality      string        `json:"municipality"`
	PlotName          string        `json:"plot_name"`
	Lab               string        `json:"lab" gorm:"index"`
	Priority          string        `json:"priority"`
	CreatedById       uint          `json:"created_by_id"`

	PesticideHistory PesticideTreatments `json:"pesticide_history" gorm:"foreignkey:SampleId"`
	History          SampleEvents        `json:"history" gorm:"foreignkey:SampleId"`
	Results          SensitivityTests    `json:"results" gorm:"foreignkey:SampleId"`

	Errors map[string]string `json:"-" gorm:"-"`
}

type Samples []Sample

// swagger:model
type PesticideTreatment struct {
	core.Model
	SampleId uint          `json:"sample_id" gorm:"index"`
	Material string        `json:"material"`
	Date     core.NullTime `json:"date"`
	Dosage   string        `json:"dosage"`
	Method   string        `json:"method"`
}

type PesticideTreatments []PesticideTreatment

// swagger:model
type SampleEvent struct {
	core.Model
	SampleId    uint      `json:"sample_id" gorm:"index"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type" gorm:"type:varchar(32)"`
	User        string    `json:"user"`
	Description string    `json:"description"`
}

type SampleEvents []SampleEvent

// swagger:model
type SensitivityTest struct {
	core.Model
	SampleId uint               `json:"sample_id" gorm:"index"`
	Material string             `json:"material"`
	Dosage   string             `json:"dosage"`
	Category ResistanceCategory `json:"category" gorm:"type:varchar(8)"`
	Date     core.NullTime      `json:"date"`
	User     string             `json:"user"`
	Notes    string             `json:"notes"`
}

type SensitivityTests []SensitivityTest

// SampleIdCounter holds the last allocated number per internal id prefix.
type SampleIdCounter struct {
	Prefix    string `gorm:"primary_key;type:varchar(8)"`
	LastValue int
}

func (SampleIdCounter) TableName() string {
	return "sample_id_counters"
}

// SampleListItem is the row of the sample table.
type SampleListItem struct {
	ID            uint          `json:"id" sctable:"dataKey:id;title:#"`
	InternalId    string        `json:"internal_id" sctable:"title:מזהה;isDefaultDisplay;sticky:true"`
	Date          core.NullTime `json:"date" sctable:"title:תאריך;isDefaultDisplay"`
	Region        string        `json:"region" sctable:"title:אזור;isDefaultDisplay"`
	Crop          string        `json:"crop" sctable:"title:גידול;isDefaultDisplay"`
	Pathogen      string        `json:"pathogen" sctable:"title:פתוגן;isDefaultDisplay"`
	CollectorName string        `json:"collector_name" sctable:"title:דוגם;isDefaultDisplay"`
	Lab           string        `json:"lab" sctable:"title:מעבדה"`
	Status        SampleStatus  `json:"status" sctable:"title:סטטוס;isDefaultDisplay"`
	StatusLabel   string        `json:"status_label" sctable:"-"`
	IsArchived    bool          `json:"is_archived" sctable:"title:בארכיון"`
}

type SampleListItems []SampleListItem

// MapMarker is the public view of a sample: no collector details.
type MapMarker struct {
	ID         uint               `json:"id"`
	InternalId string             `json:"internal_id"`
	Region     string             `json:"region"`
	Crop       string             `json:"crop"`
	Pathogen   string             `json:"pathogen"`
	Lat        float64            `json:"lat"`
	Lng        float64            `json:"lng"`
	Status     SampleStatus       `json:"status"`
	Worst      ResistanceCategory `json:"worst_category"`
	Color      string             `json:"color"`
}

type MapMarkers []MapMarker

type Cluster struct {
	Lat     float64    `json:"lat"`
	Lng     float64    `json:"lng"`
	Count   int        `json:"count"`
	Markers MapMarkers `json:"markers"`
}

type Clusters []Cluster

type ResistanceStat struct {
	Region         string `json:"region"`
	ResistantCount int    `json:"resistant_count"`
	TotalCount     int    `json:"total_count"`
}

type MapStats struct {
	Total          int              `json:"total"`
	Resistant      int              `json:"resistant"`
	ResistanceRate float64          `json:"resistance_rate"`
	Regions        int              `json:"regions"`
	ByRegion       []ResistanceStat `json:"by_region"`
}

type StatusUpdate struct {
	Status SampleStatus `json:"status"`
}

type ResultsUpdate struct {
	Results SensitivityTests `json:"results"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type BotrytisGrowth struct {
	At10  bool `json:"growth_10"`
	At5   bool `json:"growth_5"`
	At1   bool `json:"growth_1"`
	At0_1 bool `json:"growth_0_1"`
}
