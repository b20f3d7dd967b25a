package samplebundle

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/core"
)

var ErrStatusChanged = errors.New("sample status changed meanwhile")

func AutoMigrate(ormDB *gorm.DB) error {
	return ormDB.AutoMigrate(&Sample{}, &PesticideTreatment{}, &SampleEvent{}, &SensitivityTest{}, &SampleIdCounter{}).Error
}

func preloadDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("PesticideHistory").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc").Order("id asc")
		}).
		Preload("Results")
}

func GetSample(ormDB *gorm.DB, id uint) (*Sample, error) {
	sample := Sample{}
	if err := preloadDetails(ormDB).First(&sample, id).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &sample, nil
}

// FindSamplesWithDetails loads samples with treatments, history and results.
// scope may narrow the query and may be nil.
func FindSamplesWithDetails(ormDB *gorm.DB, scope func(*gorm.DB) *gorm.DB) (Samples, error) {
	db := preloadDetails(ormDB)
	if scope != nil {
		db = scope(db)
	}
	samples := Samples{}
	if err := db.Order("id asc").Find(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

var sampleOrderKeys = map[string]string{
	"internal_id":    "internal_id",
	"date":           "date",
	"region":         "region",
	"crop":           "crop",
	"pathogen":       "pathogen",
	"status":         "status",
	"lab":            "lab",
	"collector_name": "collector_name",
	"created_at":     "created_at",
}

var sampleFilterKeys = map[string]string{
	"status":   "status",
	"pathogen": "pathogen",
	"region":   "region",
	"lab":      "lab",
	"crop":     "crop",
}

// CreateWhereConditionsSamples builds the list query and its count query from
// search, filter=key,value, archived=true|false|all and order=key,dir.
func CreateWhereConditionsSamples(urlQuery url.Values, ormDB *gorm.DB) (*gorm.DB, *gorm.DB) {
	db := ormDB.Model(&Sample{})
	dbTotalCount := ormDB.Model(&Sample{})

	values := urlQuery

	if val := strings.TrimSpace(values.Get("search")); val != "" {
		search := core.ContainsPattern(strings.ToLower(val))
		where := "LOWER(internal_id) LIKE ?" + core.LikeEscape + " OR LOWER(crop) LIKE ?" + core.LikeEscape + " OR LOWER(collector_name) LIKE ?" + core.LikeEscape
		db = db.Where(where, search, search, search)
		dbTotalCount = dbTotalCount.Where(where, search, search, search)
	}

	for _, filter := range values["filter"] {
		filterSplit := strings.SplitN(filter, ",", 2)
		if len(filterSplit) != 2 || filterSplit[1] == "" {
			continue
		}
		column, ok := sampleFilterKeys[filterSplit[0]]
		if !ok {
			continue
		}
		db = db.Where(column+" = ?", filterSplit[1])
		dbTotalCount = dbTotalCount.Where(column+" = ?", filterSplit[1])
	}

	switch values.Get("archived") {
	case "all":
	case "true", "1":
		db = db.Where("is_archived = ?", true)
		dbTotalCount = dbTotalCount.Where("is_archived = ?", true)
	default:
		db = db.Where("is_archived = ?", false)
		dbTotalCount = dbTotalCount.Where("is_archived = ?", false)
	}

	ordered := false
	if val := values.Get("order"); strings.Contains(val, ",") {
		sortSplit := strings.SplitN(val, ",", 2)
		if column, ok := sampleOrderKeys[sortSplit[0]]; ok {
			direction := "asc"
			if strings.EqualFold(sortSplit[1], "desc") {
				direction = "desc"
			}
			db = db.Order(fmt.Sprintf("%s %s", column, direction))
			ordered = true
		}
	}
	if !ordered {
		db = db.Order("date desc")
	}
	db = db.Order("id desc")

	return db, dbTotalCount
}

// CreateWhereConditionsWorklist selects samples the lab still has to work on.
func CreateWhereConditionsWorklist(urlQuery url.Values, ormDB *gorm.DB) (*gorm.DB, *gorm.DB) {
	db := ormDB.Model(&Sample{}).
		Where("status <> ?", StatusResultsEntered).
		Where("is_archived = ?", false)

	if val := strings.TrimSpace(urlQuery.Get("search")); val != "" {
		search := core.ContainsPattern(strings.ToLower(val))
		db = db.Where("LOWER(internal_id) LIKE ?"+core.LikeEscape+" OR LOWER(region) LIKE ?"+core.LikeEscape, search, search)
	}
	return db.Order("date asc").Order("id asc"), db
}

// ChangeStatus moves a sample along the lab workflow and records the event.
func ChangeStatus(ormDB *gorm.DB, sample *Sample, status SampleStatus, event SampleEvent) error {
	if !CanTransition(sample.Status, status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sample.Status, status)
	}

	tx := ormDB.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	res := tx.Model(&Sample{}).
		Where("id = ? AND status = ?", sample.ID, sample.Status).
		UpdateColumn("status", status)
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrStatusChanged
	}

	event.SampleId = sample.ID
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	sample.Status = status
	sample.History = append(sample.History, event)
	return nil
}

// ReplaceResults swaps the test set of a sample and marks its results as entered.
func ReplaceResults(ormDB *gorm.DB, sample *Sample, tests SensitivityTests, event SampleEvent) error {
	if !CanEnterResults(sample.Status) {
		return ErrResultsNotAllowed
	}

	tx := ormDB.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Unscoped().Where("sample_id = ?", sample.ID).Delete(&SensitivityTest{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	for i := range tests {
		tests[i].ID = 0
		tests[i].SampleId = sample.ID
		if err := tx.Create(&tests[i]).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Model(&Sample{}).Where("id = ?", sample.ID).UpdateColumn("status", StatusResultsEntered).Error; err != nil {
		tx.Rollback()
		return err
	}
	event.SampleId = sample.ID
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	sample.Results = tests
	sample.Status = StatusResultsEntered
	sample.History = append(sample.History, event)
	return nil
}

func AddEvent(ormDB *gorm.DB, sample *Sample, event SampleEvent) error {
	event.SampleId = sample.ID
	if err := ormDB.Create(&event).Error; err != nil {
		return err
	}
	sample.History = append(sample.History, event)
	return nil
}

func SetArchived(ormDB *gorm.DB, sample *Sample, archived bool) error {
	if err := ormDB.Model(&Sample{}).Where("id = ?", sample.ID).UpdateColumn("is_archived", archived).Error; err != nil {
		return err
	}
	sample.IsArchived = archived
	return nil
}
