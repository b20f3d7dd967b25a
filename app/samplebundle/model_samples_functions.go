package samplebundle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

var (
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrResultsNotAllowed = errors.New("results can only be entered after the lab received the sample")
)

var allowedTransitions = map[SampleStatus][]SampleStatus{
	StatusSent:                   {StatusPendingLabConfirmation, StatusReceivedLab},
	StatusPendingLabConfirmation: {StatusReceivedLab},
	StatusReceivedLab:            {StatusInTesting},
}

func CanTransition(from, to SampleStatus) bool {
	for _, status := range allowedTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

func CanEnterResults(status SampleStatus) bool {
	return status == StatusReceivedLab || status == StatusInTesting || status == StatusResultsEntered
}

// StatusEventType is LAB_CONFIRMATION when the lab received the sample.
func StatusEventType(status SampleStatus) string {
	if status == StatusReceivedLab {
		return Event_LabConfirmation
	}
	return Event_StatusChange
}

func StatusChangeDescription(label string) string {
	return "סטטוס שונה ל: " + label
}

// ApplyDefaults fills the fields the intake form may leave empty.
func (sample *Sample) ApplyDefaults(cat *catalog.Catalog) {
	if sample.Status == "" {
		sample.Status = StatusPendingLabConfirmation
	}
	if sample.Lab == "" {
		sample.Lab = cat.DefaultLab()
	}
	if sample.Priority == "" {
		sample.Priority = cat.DefaultPriority()
	}
	if sample.Lat == 0 && sample.Lng == 0 {
		sample.Lat = DefaultLat
		sample.Lng = DefaultLng
	}
	if !sample.Date.Valid {
		sample.Date = core.Now()
	}
	sample.CollectorEmail = core.NormalizeEmail(sample.CollectorEmail)
}

func (sample *Sample) Validate(cat *catalog.Catalog) bool {
	sample.Errors = make(map[string]string)

	if strings.TrimSpace(sample.CollectorName) == "" {
		sample.Errors["collector_name"] = "collector name empty"
	}
	if sample.CollectorEmail != "" {
		if err := core.ValidateFormat(sample.CollectorEmail); err != nil {
			sample.Errors["collector_email"] = err.Error()
		}
	}
	if sample.Region == "" {
		sample.Errors["region"] = "region empty"
	} else if !cat.HasRegion(sample.Region) {
		sample.Errors["region"] = "unknown region"
	}
	if strings.TrimSpace(sample.Crop) == "" {
		sample.Errors["crop"] = "crop empty"
	}
	if sample.Pathogen == "" {
		sample.Errors["pathogen"] = "pathogen empty"
	} else if !cat.HasPathogen(sample.Pathogen) {
		sample.Errors["pathogen"] = "unknown pathogen"
	}
	if !cat.HasLab(sample.Lab) {
		sample.Errors["lab"] = "unknown lab"
	}
	if !sample.Status.Valid() {
		sample.Errors["status"] = "unknown status"
	}
	if math.Abs(sample.Lat) > 90 || math.Abs(sample.Lng) > 180 {
		sample.Errors["coordinates"] = "coordinates out of range"
	}
	for i, treatment := range sample.PesticideHistory {
		if strings.TrimSpace(treatment.Material) == "" {
			sample.Errors[fmt.Sprintf("pesticide_history.%d.material", i)] = "material empty"
		}
	}

	return len(sample.Errors) == 0
}

// ValidateResults checks a set of sensitivity tests before it replaces the stored one.
func ValidateResults(tests SensitivityTests) map[string]string {
	errs := make(map[string]string)
	for i, test := range tests {
		if strings.TrimSpace(test.Material) == "" {
			errs[fmt.Sprintf("results.%d.material", i)] = "material empty"
		}
		if strings.TrimSpace(test.Dosage) == "" {
			errs[fmt.Sprintf("results.%d.dosage", i)] = "dosage empty"
		}
		if !test.Category.Valid() {
			errs[fmt.Sprintf("results.%d.category", i)] = "unknown category"
		}
	}
	return errs
}

// WorstCategory is R when any test is R, else T when any test is T, else empty.
func WorstCategory(tests SensitivityTests) ResistanceCategory {
	worst := ResistanceCategory("")
	for _, test := range tests {
		switch test.Category {
		case CategoryR:
			return CategoryR
		case CategoryT:
			worst = CategoryT
		}
	}
	return worst
}

func HasResistance(tests SensitivityTests) bool {
	return WorstCategory(tests) == CategoryR
}

// ClassifyBotrytis maps the lowest dose (ppm) with mycelial growth to a category.
func ClassifyBotrytis(growth BotrytisGrowth) ResistanceCategory {
	switch {
	case growth.At10:
		return CategoryR
	case growth.At5:
		return CategoryT
	case growth.At1:
		return CategoryRS
	case growth.At0_1:
		return CategoryS
	}
	return CategoryHS
}

// LabConfirmationDate is the time of the first LAB_CONFIRMATION event.
func (sample *Sample) LabConfirmationDate() (time.Time, bool) {
	for _, event := range sample.History {
		if event.Type == Event_LabConfirmation {
			return event.Timestamp, true
		}
	}
	return time.Time{}, false
}

func (sample *Sample) HasResultEvent() bool {
	for _, event := range sample.History {
		if event.Type == Event_ResultAdded || event.Type == Event_ResultUpdated {
			return true
		}
	}
	return false
}

func NewSampleEvent(eventType string, user string, description string) SampleEvent {
	return SampleEvent{
		Timestamp:   time.Now().UTC(),
		Type:        eventType,
		User:        user,
		Description: description,
	}
}

func (sample *Sample) ListItem(cat *catalog.Catalog) SampleListItem {
	return SampleListItem{
		ID:            sample.ID,
		InternalId:    sample.InternalId,
		Date:          sample.Date,
		Region:        sample.Region,
		Crop:          sample.Crop,
		Pathogen:      sample.Pathogen,
		CollectorName: sample.CollectorName,
		Lab:           sample.Lab,
		Status:        sample.Status,
		StatusLabel:   cat.StatusLabel(string(sample.Status)),
		IsArchived:    sample.IsArchived,
	}
}
