package systembundle

import (
	"time"

	"onlab_backend/app/core"
	"onlab_backend/app/samplebundle"
)

// SystemAccountsSession persists issued session tokens so they survive a restart.
type SystemAccountsSession struct {
	core.Model
	AccountId    uint          `json:"-" gorm:"index"`
	Account      core.User     `json:"account"`
	SessionToken string        `json:"session_token" gorm:"type:VARCHAR(36);unique_index"`
	LoginTime    core.NullTime `json:"login_time"`
	UserAgent    string        `json:"user_agent"`
}

type SystemAccountsSessions []SystemAccountsSession

// WhitelistEntry grants an email address access with a role.
//
// swagger:model
type WhitelistEntry struct {
	core.Model
	Email        string    `json:"email" gorm:"type:varchar(255);unique_index"`
	Role         core.Role `json:"role" gorm:"type:varchar(32)"`
	AddedBy      string    `json:"added_by"`
	IsSuperAdmin bool      `json:"is_super_admin" gorm:"-"`

	Errors map[string]string `json:"-" gorm:"-"`
}

type WhitelistEntries []WhitelistEntry

func (WhitelistEntry) TableName() string {
	return "whitelist"
}

func (entry *WhitelistEntry) Validate() bool {
	entry.Errors = make(map[string]string)

	if entry.Email == "" {
		entry.Errors["email"] = "email empty"
	} else if err := core.ValidateFormat(entry.Email); err != nil {
		entry.Errors["email"] = err.Error()
	}
	if _, ok := core.ParseRole(string(entry.Role)); !ok {
		entry.Errors["role"] = "unknown role"
	}
	return len(entry.Errors) == 0
}

type LoginRequest struct {
	IdToken  string `json:"id_token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ActivityRequest struct {
	Action  string                 `json:"action"`
	Details map[string]interface{} `json:"details"`
}

type BackupMetadata struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"export_date"`
	ExportedBy string    `json:"exported_by"`
}

// swagger:model
type Backup struct {
	Metadata  BackupMetadata       `json:"metadata"`
	Samples   samplebundle.Samples `json:"samples"`
	Users     core.Users           `json:"users"`
	Whitelist WhitelistEntries     `json:"whitelist"`
}
