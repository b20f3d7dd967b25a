package samplebundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlab_backend/app/catalog"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from SampleStatus
		to   SampleStatus
		want bool
	}{
		{StatusSent, StatusPendingLabConfirmation, true},
		{StatusSent, StatusReceivedLab, true},
		{StatusPendingLabConfirmation, StatusReceivedLab, true},
		{StatusReceivedLab, StatusInTesting, true},
		{StatusSent, StatusInTesting, false},
		{StatusInTesting, StatusReceivedLab, false},
		{StatusResultsEntered, StatusSent, false},
		{StatusReceivedLab, StatusResultsEntered, false},
		{StatusSent, StatusSent, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCanEnterResults(t *testing.T) {
	assert.False(t, CanEnterResults(StatusSent))
	assert.False(t, CanEnterResults(StatusPendingLabConfirmation))
	assert.True(t, CanEnterResults(StatusReceivedLab))
	assert.True(t, CanEnterResults(StatusInTesting))
	assert.True(t, CanEnterResults(StatusResultsEntered))
}

func TestStatusEventType(t *testing.T) {
	assert.Equal(t, Event_LabConfirmation, StatusEventType(StatusReceivedLab))
	assert.Equal(t, Event_StatusChange, StatusEventType(StatusInTesting))
	assert.Equal(t, "סטטוס שונה ל: בתהליך בדיקה", StatusChangeDescription("בתהליך בדיקה"))
}

func TestWorstCategory(t *testing.T) {
	tests := []struct {
		name       string
		categories []ResistanceCategory
		want       ResistanceCategory
	}{
		{"no tests", nil, ""},
		{"only sensitive", []ResistanceCategory{CategoryHS, CategoryS, CategoryRS}, ""},
		{"tolerant", []ResistanceCategory{CategoryS, CategoryT}, CategoryT},
		{"resistant wins", []ResistanceCategory{CategoryT, CategoryR, CategoryS}, CategoryR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tests := SensitivityTests{}
			for _, c := range tt.categories {
				tests = append(tests, SensitivityTest{Material: "Boscalid", Dosage: "1", Category: c})
			}
			assert.Equal(t, tt.want, WorstCategory(tests))
			assert.Equal(t, tt.want == CategoryR, HasResistance(tests))
		})
	}
}

func TestClassifyBotrytis(t *testing.T) {
	tests := []struct {
		growth BotrytisGrowth
		want   ResistanceCategory
	}{
		{BotrytisGrowth{At10: true, At5: true, At1: true, At0_1: true}, CategoryR},
		{BotrytisGrowth{At5: true, At1: true, At0_1: true}, CategoryT},
		{BotrytisGrowth{At1: true, At0_1: true}, CategoryRS},
		{BotrytisGrowth{At0_1: true}, CategoryS},
		{BotrytisGrowth{}, CategoryHS},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBotrytis(tt.growth), "%+v", tt.growth)
	}
}

func TestResistanceCategorySeverity(t *testing.T) {
	assert.Less(t, CategoryHS.Severity(), CategoryS.Severity())
	assert.Less(t, CategoryT.Severity(), CategoryR.Severity())
	assert.Equal(t, 0, ResistanceCategory("X").Severity())
	assert.False(t, ResistanceCategory("X").Valid())
	assert.False(t, SampleStatus("DONE").Valid())
}

func TestSampleApplyDefaults(t *testing.T) {
	cat := catalog.Default()
	sample := Sample{CollectorEmail: "  Field@Example.COM "}
	sample.ApplyDefaults(cat)

	assert.Equal(t, StatusPendingLabConfirmation, sample.Status)
	assert.Equal(t, cat.DefaultLab(), sample.Lab)
	assert.Equal(t, "רגיל", sample.Priority)
	assert.Equal(t, DefaultLat, sample.Lat)
	assert.Equal(t, DefaultLng, sample.Lng)
	assert.True(t, sample.Date.Valid)
	assert.Equal(t, "field@example.com", sample.CollectorEmail)

	sample = Sample{Status: StatusSent, Lab: "בר אילן - יריב בן נעים", Lat: 30.1, Lng: 35.1}
	sample.ApplyDefaults(cat)
	assert.Equal(t, StatusSent, sample.Status)
	assert.Equal(t, "בר אילן - יריב בן נעים", sample.Lab)
	assert.Equal(t, 30.1, sample.Lat)
}

func TestSampleValidate(t *testing.T) {
	cat := catalog.Default()
	valid := func() Sample {
		s := Sample{
			CollectorName: "דני",
			Region:        "ערבה",
			Crop:          "פלפל",
			Pathogen:      "Botrytis cinerea",
		}
		s.ApplyDefaults(cat)
		return s
	}

	s := valid()
	require.True(t, s.Validate(cat), s.Errors)

	tests := []struct {
		name   string
		mutate func(s *Sample)
		key    string
	}{
		{"missing collector", func(s *Sample) { s.CollectorName = " " }, "collector_name"},
		{"bad email", func(s *Sample) { s.CollectorEmail = "nope" }, "collector_email"},
		{"unknown region", func(s *Sample) { s.Region = "Mars" }, "region"},
		{"missing crop", func(s *Sample) { s.Crop = "" }, "crop"},
		{"unknown pathogen", func(s *Sample) { s.Pathogen = "Fusarium" }, "pathogen"},
		{"unknown lab", func(s *Sample) { s.Lab = "other lab" }, "lab"},
		{"unknown status", func(s *Sample) { s.Status = "LOST" }, "status"},
		{"coordinates", func(s *Sample) { s.Lat = 120 }, "coordinates"},
		{"treatment material", func(s *Sample) {
			s.PesticideHistory = PesticideTreatments{{Material: ""}}
		}, "pesticide_history.0.material"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			assert.False(t, s.Validate(cat))
			assert.Contains(t, s.Errors, tt.key)
		})
	}
}

func TestValidateResults(t *testing.T) {
	errs := ValidateResults(SensitivityTests{
		{Material: "Boscalid", Dosage: "10 ppm", Category: CategoryR},
		{Material: "", Dosage: "", Category: "Q"},
	})
	assert.Len(t, errs, 3)
	assert.Contains(t, errs, "results.1.material")
	assert.Contains(t, errs, "results.1.dosage")
	assert.Contains(t, errs, "results.1.category")
	assert.Empty(t, ValidateResults(nil))
}

func TestSampleHistoryHelpers(t *testing.T) {
	confirmed := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	sample := Sample{History: SampleEvents{
		{Type: Event_Created, Timestamp: confirmed.Add(-time.Hour)},
		{Type: Event_LabConfirmation, Timestamp: confirmed},
		{Type: Event_LabConfirmation, Timestamp: confirmed.Add(time.Hour)},
	}}

	at, ok := sample.LabConfirmationDate()
	require.True(t, ok)
	assert.Equal(t, confirmed, at)
	assert.False(t, sample.HasResultEvent())

	sample.History = append(sample.History, NewSampleEvent(Event_ResultUpdated, "lab@example.com", "עודכנו תוצאות"))
	assert.True(t, sample.HasResultEvent())

	_, ok = (&Sample{}).LabConfirmationDate()
	assert.False(t, ok)
}

func TestSampleListItem(t *testing.T) {
	cat := catalog.Default()
	sample := Sample{InternalId: "B-0007", Status: StatusInTesting, CollectorName: "דני"}
	sample.ID = 7

	item := sample.ListItem(cat)
	assert.Equal(t, uint(7), item.ID)
	assert.Equal(t, "B-0007", item.InternalId)
	assert.Equal(t, "בתהליך בדיקה", item.StatusLabel)
}
