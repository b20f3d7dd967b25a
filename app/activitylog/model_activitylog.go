package activitylog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"onlab_backend/app/core"
)

const (
	AnonymousUserId   = "unknown"
	AnonymousUserName = "Anonymous / System"
	ActionAll         = "ALL"
	MaxEntries        = 200
)

const (
	Action_Login           = "LOGIN"
	Action_LoginDenied     = "LOGIN_DENIED"
	Action_Logout          = "LOGOUT"
	Action_CreateSample    = "CREATE_SAMPLE"
	Action_UpdateStatus    = "UPDATE_STATUS"
	Action_SaveResults     = "SAVE_RESULTS"
	Action_AddNote         = "ADD_NOTE"
	Action_ArchiveSample   = "ARCHIVE_SAMPLE"
	Action_RestoreSample   = "RESTORE_SAMPLE"
	Action_DeleteSample    = "DELETE_SAMPLE"
	Action_ExportData      = "EXPORT_DATA"
	Action_ExportLogs      = "EXPORT_LOGS"
	Action_SystemBackup    = "SYSTEM_BACKUP"
	Action_WhitelistAdd    = "WHITELIST_ADD"
	Action_WhitelistRemove = "WHITELIST_REMOVE"
	Action_WhitelistImport = "WHITELIST_IMPORT"
)

// Details is a free-form JSON object stored in a text column.
type Details map[string]interface{}

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Details) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Details", src)
	}
	tmp := Details{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
	}
	*d = tmp
	return nil
}

// swagger:model
type ActivityLog struct {
	core.Model
	Timestamp time.Time `json:"timestamp" gorm:"index" sctable:"title:תאריך;isDefaultDisplay"`
	UserId    string    `json:"user_id" gorm:"type:varchar(255);index" sctable:"title:משתמש;isDefaultDisplay"`
	UserName  string    `json:"user_name" sctable:"title:שם;isDefaultDisplay"`
	Action    string    `json:"action" gorm:"type:varchar(64);index" sctable:"title:פעולה;isDefaultDisplay"`
	Details   Details   `json:"details" gorm:"type:text" sctable:"title:פרטים"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type ActivityLogs []ActivityLog

type Filter struct {
	User     string
	Action   string
	DateFrom time.Time
	DateTo   time.Time
}
