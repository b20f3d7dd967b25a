package tableconfig

// TableConfig wraps a config with the name of the table it belongs to
type TableConfig struct {
	ConfigType string        `json:"config_type"`
	Config     SCTableConfig `json:"config"`
}
type TableConfigs []TableConfig

type SCTableConfig struct {
	TableHeaders        SCTableHeaders `json:"table_headers"`
	TableHeadersDisplay []string       `json:"table_headers_display"`
	TableActions        SCTableActions `json:"table_actions"`
}

type SCTableAction struct {
	Index string `json:"index,omitempty"`
	Label string `json:"label,omitempty"`
	Icon  string `json:"icon,omitempty"`
}
type SCTableActions []SCTableAction

type SCTableHeader struct {
	Index       string `json:"index,omitempty"`
	Title       string `json:"title,omitempty"`
	DisplayBy   string `json:"display_by,omitempty"`
	Type        string `json:"type,omitempty"` // string | number | date | boolean
	Sticky      bool   `json:"sticky,omitempty"`
	Align       string `json:"align,omitempty"`
	DateFormat  string `json:"date_format,omitempty"`
	DisableSort bool   `json:"disable_sort,omitempty"`
}
type SCTableHeaders []SCTableHeader

func (config SCTableConfig) HasHeader(index string) bool {
	for _, header := range config.TableHeaders {
		if header.Index == index {
			return true
		}
	}
	return false
}

// WithDisplay returns a copy showing the given columns in the given order.
// Unknown and repeated columns are dropped.
func (config SCTableConfig) WithDisplay(display []string) SCTableConfig {
	seen := map[string]bool{}
	columns := []string{}
	for _, index := range display {
		if seen[index] || !config.HasHeader(index) {
			continue
		}
		seen[index] = true
		columns = append(columns, index)
	}
	config.TableHeadersDisplay = columns
	return config
}
