package activitylog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

const (
	dateLayout       = "2006-01-02"
	exportDateLayout = "02.01.2006, 15:04:05"
	ExportSheetName  = "Activity Log"
)

var ExportHeaders = []string{"תאריך", "משתמש", "פעולה", "פרטים"}

var now = time.Now

func AutoMigrate(ormDB *gorm.DB) error {
	return ormDB.AutoMigrate(&ActivityLog{}).Error
}

// NewEntry prepares an entry for user, or for the anonymous system user when user is nil.
func NewEntry(user *core.User, action string, details Details) ActivityLog {
	entry := ActivityLog{
		Timestamp: now().UTC(),
		UserId:    AnonymousUserId,
		UserName:  AnonymousUserName,
		Action:    action,
		Details:   details,
	}
	if entry.Details == nil {
		entry.Details = Details{}
	}
	if user != nil {
		entry.UserId = user.Email
		entry.UserName = user.Name()
	}
	return entry
}

func Record(ormDB *gorm.DB, user *core.User, action string, details Details) error {
	entry := NewEntry(user, action, details)
	return Save(ormDB, &entry)
}

// Save stores a prepared entry. A zero timestamp is set to now.
func Save(ormDB *gorm.DB, entry *ActivityLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now().UTC()
	}
	if err := ormDB.Set("gorm:save_associations", false).Create(entry).Error; err != nil {
		core.Logger.Error("writing activity log failed", zap.String("action", entry.Action), zap.Error(err))
		return fmt.Errorf("writing activity log: %w", err)
	}
	core.Logger.Info("activity",
		zap.String("action", entry.Action),
		zap.String("user", entry.UserId))
	return nil
}

// ParseFilter reads user, action, date_from and date_to (YYYY-MM-DD in
// core.DayLocation). date_to includes the whole day.
func ParseFilter(values url.Values) (Filter, error) {
	filter := Filter{
		User:   strings.TrimSpace(values.Get("user")),
		Action: strings.TrimSpace(values.Get("action")),
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

func CreateWhereConditionsActivityLogs(filter Filter, ormDB *gorm.DB) *gorm.DB {
	db := ormDB.Model(&ActivityLog{})
	if filter.User != "" {
		search := core.ContainsPattern(strings.ToLower(filter.User))
		db = db.Where("LOWER(user_id) LIKE ?"+core.LikeEscape+" OR LOWER(user_name) LIKE ?"+core.LikeEscape, search, search)
	}
	if filter.Action != "" && filter.Action != ActionAll {
		db = db.Where("action = ?", filter.Action)
	}
	if !filter.DateFrom.IsZero() {
		db = db.Where("timestamp >= ?", filter.DateFrom.UTC())
	}
	if !filter.DateTo.IsZero() {
		db = db.Where("timestamp < ?", filter.DateTo.UTC())
	}
	return db
}

// Find returns the newest matching entries, at most MaxEntries.
func Find(ormDB *gorm.DB, filter Filter) (ActivityLogs, error) {
	logs := ActivityLogs{}
	err := CreateWhereConditionsActivityLogs(filter, ormDB).
		Order("timestamp desc").
		Order("id desc").
		Limit(MaxEntries).
		Find(&logs).Error
	return logs, err
}

func UniqueActions(ormDB *gorm.DB) ([]string, error) {
	actions := []string{}
	if err := ormDB.Model(&ActivityLog{}).Pluck("DISTINCT action", &actions).Error; err != nil {
		return nil, err
	}
	sort.Strings(actions)
	return actions, nil
}

func ExportFilename(t time.Time) string {
	return fmt.Sprintf("Activity_Log_%s.xlsx", t.Format(dateLayout))
}

// ExportXLSX writes one row per entry: date, user, action and the details as JSON.
func ExportXLSX(logs ActivityLogs) ([]byte, error) {
	rows := make([][]string, 0, len(logs))
	for _, entry := range logs {
		user := entry.UserName
		if user == "" {
			user = entry.UserId
		}
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return nil, err
		}
		if entry.Details == nil {
			details = []byte("{}")
		}
		rows = append(rows, []string{
			entry.Timestamp.Local().Format(exportDateLayout),
			user,
			entry.Action,
			string(details),
		})
	}

	file := xlsx.NewFile()
	if _, err := core.AddTableSheet(file, ExportSheetName, ExportHeaders, rows); err != nil {
		return nil, err
	}
	return core.WorkbookBytes(file)
}
