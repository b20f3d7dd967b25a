package samplebundle

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

const (
	FallbackPrefix  = "X"
	allocateRetries = 5
)

// PrefixForPathogen is the upper-cased first letter of the pathogen name.
// Names that do not start with a latin letter get the fallback prefix.
func PrefixForPathogen(pathogen string) string {
	pathogen = strings.TrimSpace(pathogen)
	if pathogen == "" {
		return FallbackPrefix
	}
	first := pathogen[0]
	switch {
	case first >= 'A' && first <= 'Z':
		return string(first)
	case first >= 'a' && first <= 'z':
		return string(first - 'a' + 'A')
	}
	return FallbackPrefix
}

// FormatInternalID renders prefix and number as P-0001. Larger numbers keep all digits.
func FormatInternalID(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

func ParseInternalID(id string) (string, int, bool) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return parts[0], n, true
}

// MaxSuffix returns the highest number used with prefix among ids.
func MaxSuffix(prefix string, ids []string) int {
	max := 0
	for _, id := range ids {
		p, n, ok := ParseInternalID(id)
		if ok && p == prefix && n > max {
			max = n
		}
	}
	return max
}

// NextInternalID is the id following the highest existing one for prefix.
func NextInternalID(prefix string, ids []string) string {
	return FormatInternalID(prefix, MaxSuffix(prefix, ids)+1)
}

// IDAllocator creates samples with a fresh internal id. The counter row of a
// prefix is incremented in the same transaction as the insert, so an id is
// never handed out twice; the unique index on internal_id catches rows written
// around the counter and the insert is retried after a resync.
type IDAllocator struct {
	mu    sync.Mutex
	ormDB *gorm.DB
}

func NewIDAllocator(ormDB *gorm.DB) *IDAllocator {
	return &IDAllocator{ormDB: ormDB}
}

func (a *IDAllocator) CreateSample(sample *Sample) error {
	prefix := PrefixForPathogen(sample.Pathogen)

	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	for attempt := 0; attempt < allocateRetries; attempt++ {
		if err = a.createOnce(prefix, sample); err == nil {
			return nil
		}
		if !core.IsUniqueViolation(err) {
			return err
		}
		core.Logger.Warn("internal id conflict, retrying",
			zap.String("internal_id", sample.InternalId),
			zap.Int("attempt", attempt+1))
		resetIds(sample)
		if err := a.resync(prefix); err != nil {
			return err
		}
	}
	return fmt.Errorf("allocating internal id for prefix %s: %w", prefix, err)
}

func resetIds(sample *Sample) {
	sample.ID = 0
	for i := range sample.PesticideHistory {
		sample.PesticideHistory[i].ID = 0
		sample.PesticideHistory[i].SampleId = 0
	}
	for i := range sample.History {
		sample.History[i].ID = 0
		sample.History[i].SampleId = 0
	}
	for i := range sample.Results {
		sample.Results[i].ID = 0
		sample.Results[i].SampleId = 0
	}
}

func (a *IDAllocator) createOnce(prefix string, sample *Sample) error {
	tx := a.ormDB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	next, err := nextValue(tx, prefix)
	if err != nil {
		tx.Rollback()
		return err
	}
	sample.InternalId = FormatInternalID(prefix, next)

	if err := tx.Create(sample).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func nextValue(tx *gorm.DB, prefix string) (int, error) {
	res := tx.Model(&SampleIdCounter{}).Where("prefix = ?", prefix).UpdateColumn("last_value", gorm.Expr("last_value + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected == 0 {
		max, err := maxExisting(tx, prefix)
		if err != nil {
			return 0, err
		}
		counter := SampleIdCounter{Prefix: prefix, LastValue: max + 1}
		if err := tx.Create(&counter).Error; err != nil {
			return 0, err
		}
		return counter.LastValue, nil
	}

	counter := SampleIdCounter{}
	if err := tx.Where("prefix = ?", prefix).First(&counter).Error; err != nil {
		return 0, err
	}
	return counter.LastValue, nil
}

// maxExisting includes deleted samples so their ids are not handed out again.
func maxExisting(db *gorm.DB, prefix string) (int, error) {
	ids := []string{}
	if err := db.Unscoped().Model(&Sample{}).Where("internal_id LIKE ?", prefix+"-%").Pluck("internal_id", &ids).Error; err != nil {
		return 0, err
	}
	return MaxSuffix(prefix, ids), nil
}

// resync moves the counter of prefix up to the highest stored id.
func (a *IDAllocator) resync(prefix string) error {
	max, err := maxExisting(a.ormDB, prefix)
	if err != nil {
		return err
	}
	return a.ormDB.Model(&SampleIdCounter{}).
		Where("prefix = ? AND last_value < ?", prefix, max).
		UpdateColumn("last_value", max).Error
}
