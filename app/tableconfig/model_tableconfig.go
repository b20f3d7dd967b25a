package tableconfig

import "onlab_backend/app/core"

// TableConfigUserSetting holds the columns one user displays in one table.
type TableConfigUserSetting struct {
	core.Model
	UserId                       uint   `json:"-" gorm:"unique_index:idx_table_config_user"`
	TableConfigTypeName          string `json:"table_config_type_name" gorm:"type:varchar(64);unique_index:idx_table_config_user"`
	TableHeaderDisplayConfigData string `json:"table_header_display_config_data" gorm:"type:text"`
}

type TableConfigUserSettings []TableConfigUserSetting
