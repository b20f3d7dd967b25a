package tableconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/core"
)

type TableConfigController struct {
	core.Controller
	ormDB    *gorm.DB
	registry *Registry
}

func AutoMigrate(ormDB *gorm.DB) error {
	return ormDB.AutoMigrate(&TableConfigUserSetting{}).Error
}

func NewTableConfigController(ormDB *gorm.DB, sessions core.SessionStore, registry *Registry) *TableConfigController {
	if core.Config.Database.Debug {
		ormDB = ormDB.Debug()
	}

	c := &TableConfigController{
		Controller: core.Controller{Sessions: sessions},
		ormDB:      ormDB,
		registry:   registry,
	}

	if core.Config.Database.DoAutoMigrate {
		if err := AutoMigrate(ormDB); err != nil {
			core.Logger.Error("migrating table config failed", zap.Error(err))
		}
	}
	return c
}

// GetTableConfig returns the default config of a table with the display
// columns the user saved, if any.
func GetTableConfig(ormDB *gorm.DB, registry *Registry, userId uint, configTypeName string) (*SCTableConfig, error) {
	configTypeName = ConfigTypeName(configTypeName)
	config, ok := registry.Get(configTypeName)
	if !ok {
		return nil, fmt.Errorf("%s: %w", configTypeName, ErrUnknownTable)
	}

	setting := TableConfigUserSetting{}
	err := ormDB.Where("user_id = ? AND table_config_type_name = ?", userId, configTypeName).First(&setting).Error
	if gorm.IsRecordNotFoundError(err) {
		return &config, nil
	}
	if err != nil {
		return nil, err
	}

	display := []string{}
	if err := json.Unmarshal([]byte(setting.TableHeaderDisplayConfigData), &display); err != nil {
		core.Logger.Warn("stored table config unreadable",
			zap.Uint("user_id", userId),
			zap.String("config", configTypeName),
			zap.Error(err))
		return &config, nil
	}
	config = config.WithDisplay(display)
	return &config, nil
}

// SaveTableConfig4User stores the display columns of a user. An empty list
// resets the table to its default.
func SaveTableConfig4User(ormDB *gorm.DB, registry *Registry, userId uint, configTypeName string, display []string) (*SCTableConfig, map[string]string, error) {
	configTypeName = ConfigTypeName(configTypeName)
	config, ok := registry.Get(configTypeName)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", configTypeName, ErrUnknownTable)
	}

	where := ormDB.Where("user_id = ? AND table_config_type_name = ?", userId, configTypeName)
	if len(display) == 0 {
		if err := where.Unscoped().Delete(&TableConfigUserSetting{}).Error; err != nil {
			return nil, nil, err
		}
		return &config, nil, nil
	}

	for _, index := range display {
		if !config.HasHeader(index) {
			return nil, map[string]string{"table_headers_display": fmt.Sprintf("unknown column %q", index)}, nil
		}
	}
	config = config.WithDisplay(display)
	data, err := json.Marshal(config.TableHeadersDisplay)
	if err != nil {
		return nil, nil, err
	}

	setting := TableConfigUserSetting{}
	err = where.First(&setting).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		setting.UserId = userId
		setting.TableConfigTypeName = configTypeName
		setting.TableHeaderDisplayConfigData = string(data)
		err = ormDB.Create(&setting).Error
	case err == nil:
		setting.TableHeaderDisplayConfigData = string(data)
		err = ormDB.Save(&setting).Error
	}
	if err != nil {
		return nil, nil, err
	}
	return &config, nil, nil
}

func (c *TableConfigController) GetDefaultTableConfigsHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.GetUser(w, r); !ok {
		return
	}
	configs := c.registry.All()
	c.SendJSON(w, &configs, http.StatusOK)
}

func (c *TableConfigController) GetTableConfigHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return
	}
	config, err := GetTableConfig(c.ormDB, c.registry, user.ID, mux.Vars(r)["configTypeName"])
	if errors.Is(err, ErrUnknownTable) {
		c.HandleNotFoundError(err, w)
		return
	}
	if c.HandleError(err, w) {
		return
	}
	c.SendJSON(w, config, http.StatusOK)
}

func (c *TableConfigController) SaveTableConfig4UserHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return
	}
	scTableConfig := SCTableConfig{}
	if err := c.GetContent(&scTableConfig, r); c.HandleBadRequestError(err, w) {
		return
	}

	config, errs, err := SaveTableConfig4User(c.ormDB, c.registry, user.ID, mux.Vars(r)["configTypeName"], scTableConfig.TableHeadersDisplay)
	if errors.Is(err, ErrUnknownTable) {
		c.HandleNotFoundError(err, w)
		return
	}
	if c.HandleError(err, w) {
		return
	}
	if len(errs) > 0 {
		c.SendErrors(w, errs)
		return
	}
	c.SendJSON(w, config, http.StatusOK)
}
