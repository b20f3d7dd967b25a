package samplebundle

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/core"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ormDB, err := core.OpenDatabase(core.ConfigurationDatabase{Dialect: "sqlite3", Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { ormDB.Close() })
	require.NoError(t, AutoMigrate(ormDB))
	require.NoError(t, activitylog.AutoMigrate(ormDB))
	return ormDB
}

func TestPrefixForPathogen(t *testing.T) {
	tests := []struct {
		pathogen string
		want     string
	}{
		{"Botrytis cinerea", "B"},
		{"podosphaera xanthii", "P"},
		{"  Alternaria alternata", "A"},
		{"", "X"},
		{"בוטריטיס", "X"},
		{"1abc", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.pathogen, func(t *testing.T) {
			assert.Equal(t, tt.want, PrefixForPathogen(tt.pathogen))
		})
	}
}

func TestInternalIDFormat(t *testing.T) {
	assert.Equal(t, "B-0001", FormatInternalID("B", 1))
	assert.Equal(t, "B-0999", FormatInternalID("B", 999))
	assert.Equal(t, "B-12345", FormatInternalID("B", 12345))

	prefix, n, ok := ParseInternalID("P-0042")
	require.True(t, ok)
	assert.Equal(t, "P", prefix)
	assert.Equal(t, 42, n)

	for _, id := range []string{"", "B", "B-", "-12", "B-abc", "BS-x1"} {
		_, _, ok := ParseInternalID(id)
		assert.False(t, ok, id)
	}
}

func TestNextInternalID(t *testing.T) {
	ids := []string{"B-0001", "B-0007", "P-0100", "B-0003", "garbage", "BS-55123"}

	assert.Equal(t, "B-0008", NextInternalID("B", ids))
	assert.Equal(t, "P-0101", NextInternalID("P", ids))
	assert.Equal(t, "A-0001", NextInternalID("A", ids))
	assert.Equal(t, "A-0001", NextInternalID("A", nil))
}

func newSample(pathogen string) *Sample {
	return &Sample{
		CollectorName: "Dana",
		Region:        "ערבה",
		Crop:          "פלפל",
		Pathogen:      pathogen,
		Status:        StatusPendingLabConfirmation,
		History:       SampleEvents{NewSampleEvent(Event_Created, "Dana", "created")},
	}
}

func TestIDAllocator_Sequential(t *testing.T) {
	ormDB := newTestDB(t)
	allocator := NewIDAllocator(ormDB)

	for i, pathogen := range []string{"Botrytis cinerea", "Botrytis cinerea", "Podosphaera xanthii", "Botrytis cinerea"} {
		sample := newSample(pathogen)
		require.NoError(t, allocator.CreateSample(sample), i)
	}

	ids := []string{}
	require.NoError(t, ormDB.Model(&Sample{}).Order("id asc").Pluck("internal_id", &ids).Error)
	assert.Equal(t, []string{"B-0001", "B-0002", "P-0001", "B-0003"}, ids)

	events := 0
	require.NoError(t, ormDB.Model(&SampleEvent{}).Count(&events).Error)
	assert.Equal(t, 4, events)
}

func TestIDAllocator_SeedsFromExistingIds(t *testing.T) {
	ormDB := newTestDB(t)

	require.NoError(t, ormDB.Create(&Sample{InternalId: "B-0041", Pathogen: "Botrytis cinerea"}).Error)
	deleted := Sample{InternalId: "P-0050", Pathogen: "Podosphaera xanthii"}
	require.NoError(t, ormDB.Create(&deleted).Error)
	require.NoError(t, ormDB.Delete(&deleted).Error)

	allocator := NewIDAllocator(ormDB)
	b := newSample("Botrytis cinerea")
	require.NoError(t, allocator.CreateSample(b))
	assert.Equal(t, "B-0042", b.InternalId)

	p := newSample("Podosphaera xanthii")
	require.NoError(t, allocator.CreateSample(p))
	assert.Equal(t, "P-0051", p.InternalId)

	a := newSample("Alternaria alternata")
	require.NoError(t, allocator.CreateSample(a))
	assert.Equal(t, "A-0001", a.InternalId)
}

func TestIDAllocator_RetriesAfterConflict(t *testing.T) {
	ormDB := newTestDB(t)
	allocator := NewIDAllocator(ormDB)

	first := newSample("Botrytis cinerea")
	require.NoError(t, allocator.CreateSample(first))
	require.Equal(t, "B-0001", first.InternalId)

	// written around the counter, e.g. by a restore
	require.NoError(t, ormDB.Create(&Sample{InternalId: "B-0002", Pathogen: "Botrytis cinerea"}).Error)

	next := newSample("Botrytis cinerea")
	require.NoError(t, allocator.CreateSample(next))
	assert.Equal(t, "B-0003", next.InternalId)
	require.Len(t, next.History, 1)
	assert.Equal(t, next.ID, next.History[0].SampleId)

	events := 0
	require.NoError(t, ormDB.Model(&SampleEvent{}).Count(&events).Error)
	assert.Equal(t, 2, events)
}

func TestIDAllocator_Concurrent(t *testing.T) {
	ormDB := newTestDB(t)
	allocator := NewIDAllocator(ormDB)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- allocator.CreateSample(newSample("Botrytis cinerea"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ids := []string{}
	require.NoError(t, ormDB.Model(&Sample{}).Pluck("internal_id", &ids).Error)
	sort.Strings(ids)
	want := []string{}
	for i := 1; i <= n; i++ {
		want = append(want, fmt.Sprintf("B-%04d", i))
	}
	assert.Equal(t, want, ids)
}
