package tableconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"onlab_backend/app/core"
)

const defaultConfigPath = "./config/tableconfig"

var (
	ErrUnknownTable      = errors.New("unknown table config")
	ErrAlreadyRegistered = errors.New("table config already registered")
)

// Registry keeps the default column configs of the registered list types.
// Defaults live in <path>/<type>/default.json so they can be edited on disk.
type Registry struct {
	mu      sync.RWMutex
	path    string
	configs map[string]SCTableConfig
}

func NewRegistry(path string) *Registry {
	if path == "" {
		path = defaultConfigPath
	}
	return &Registry{path: path, configs: make(map[string]SCTableConfig)}
}

var nonAlphaNumeric = regexp.MustCompile("[^a-zA-Z0-9]+")

// ConfigTypeName is the lower-case alphanumeric key of a table type.
func ConfigTypeName(name string) string {
	return strings.ToLower(nonAlphaNumeric.ReplaceAllString(name, ""))
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Register4TableConfig loads the default config of tableStruct from disk,
// or builds it from the sctable tags and writes it there.
func (reg *Registry) Register4TableConfig(tableStruct interface{}) error {
	if tableStruct == nil {
		return errors.New("table struct is nil")
	}
	name := ConfigTypeName(typeName(tableStruct))

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.configs[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrAlreadyRegistered)
	}

	config, err := reg.readDefault(name)
	if errors.Is(err, os.ErrNotExist) {
		built := GetTableHeader(tableStruct)
		if err := reg.writeDefault(name, built); err != nil {
			core.Logger.Warn("writing default table config failed", zap.String("config", name), zap.Error(err))
		}
		config = &built
	} else if err != nil {
		return fmt.Errorf("loading table config %s: %w", name, err)
	}

	reg.configs[name] = *config
	core.Logger.Debug("table config registered", zap.String("config", name), zap.Int("headers", len(config.TableHeaders)))
	return nil
}

func (reg *Registry) Get(name string) (SCTableConfig, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	config, ok := reg.configs[ConfigTypeName(name)]
	return config, ok
}

// All returns every registered config sorted by type name.
func (reg *Registry) All() TableConfigs {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	configs := make(TableConfigs, 0, len(reg.configs))
	for key, config := range reg.configs {
		configs = append(configs, TableConfig{ConfigType: key, Config: config})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigType < configs[j].ConfigType })
	return configs
}

func (reg *Registry) defaultFile(name string) string {
	return filepath.Join(reg.path, name, "default.json")
}

func (reg *Registry) readDefault(name string) (*SCTableConfig, error) {
	data, err := os.ReadFile(reg.defaultFile(name))
	if err != nil {
		return nil, err
	}
	config := SCTableConfig{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (reg *Registry) writeDefault(name string, config SCTableConfig) error {
	file := reg.defaultFile(name)
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

func GetTableHeader(v interface{}) SCTableConfig {
	return GetTableHeaderWithTag(v, "sctable")
}

var matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
var matchAllCap = regexp.MustCompile("([a-z0-9])([A-Z])")

func ToSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

func headerType(t reflect.Type) string {
	switch t.String() {
	case "time.Time", "*time.Time", "core.NullTime", "*core.NullTime":
		return "date"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	}
	return "string"
}

// GetTableHeaderWithTag builds a config from tags like
// `sctable:"title:Date;isDefaultDisplay;sticky:true"`. Fields without the tag
// or tagged "-" are skipped. "#;" escapes a semicolon inside a value.
func GetTableHeaderWithTag(v interface{}, tagName string) SCTableConfig {
	tableHeaders := SCTableHeaders{}
	tableHeadersDisplay := []string{}
	tableActions := SCTableActions{}

	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "-" || tag == "" {
			continue
		}

		tableHeader := SCTableHeader{}
		isDefaultDisplay, isAction := false, false

		tag = strings.ReplaceAll(tag, "#;", "\x00")
		for _, tagData := range strings.Split(tag, ";") {
			tagData = strings.ReplaceAll(tagData, "\x00", ";")
			tmp := strings.Split(tagData, ":")
			key := tmp[0]
			value := ""
			if len(tmp) > 1 {
				value = tmp[1]
			}

			switch key {
			case "title":
				tableHeader.Title = value
			case "dataKey":
				tableHeader.Index = value
			case "displayBy":
				tableHeader.DisplayBy = value
			case "type":
				tableHeader.Type = value
			case "align":
				tableHeader.Align = value
			case "dateFormat":
				tableHeader.DateFormat = value
			case "sticky":
				tableHeader.Sticky, _ = strconv.ParseBool(value)
			case "disableSort":
				tableHeader.DisableSort = value == "" || value == "true"
			case "isDefaultDisplay":
				isDefaultDisplay = value == "" || value == "true"
			case "actions":
				isAction = true
				if len(tmp) > 3 {
					tableActions = append(tableActions, SCTableAction{Index: tmp[1], Label: tmp[2], Icon: tmp[3]})
				}
			}
		}
		if isAction {
			continue
		}

		if tableHeader.Title == "" {
			tableHeader.Title = field.Name
		}
		if tableHeader.Type == "" {
			tableHeader.Type = headerType(field.Type)
		}
		if tableHeader.Index == "" {
			tableHeader.Index = ToSnakeCase(field.Name)
		}
		if tableHeader.DisplayBy == "" {
			tableHeader.DisplayBy = tableHeader.Index
		}

		tableHeaders = append(tableHeaders, tableHeader)
		if isDefaultDisplay {
			tableHeadersDisplay = append(tableHeadersDisplay, tableHeader.Index)
		}
	}

	return SCTableConfig{
		TableHeaders:        tableHeaders,
		TableHeadersDisplay: tableHeadersDisplay,
		TableActions:        tableActions,
	}
}
