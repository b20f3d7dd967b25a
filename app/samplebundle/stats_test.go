package samplebundle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	resistant := SensitivityTests{{Category: CategoryS}, {Category: CategoryR}}
	tolerant := SensitivityTests{{Category: CategoryT}}

	samples := Samples{
		{Region: "ערבה", Results: resistant},
		{Region: "ערבה", Results: tolerant},
		{Region: "ערבה"},
		{Region: "גליל עליון", Results: resistant},
	}

	got := ComputeStats(samples)
	want := MapStats{
		Total:          4,
		Resistant:      2,
		ResistanceRate: 50,
		Regions:        2,
		ByRegion: []ResistanceStat{
			{Region: "גליל עליון", ResistantCount: 1, TotalCount: 1},
			{Region: "ערבה", ResistantCount: 1, TotalCount: 3},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeStats mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	got := ComputeStats(nil)
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, 0.0, got.ResistanceRate)
	assert.NotNil(t, got.ByRegion)
}

func TestResistanceRate(t *testing.T) {
	assert.Equal(t, 0.0, ResistanceRate(0, 0))
	assert.Equal(t, 33.3, ResistanceRate(1, 3))
	assert.Equal(t, 66.7, ResistanceRate(2, 3))
	assert.Equal(t, 100.0, ResistanceRate(5, 5))
}
