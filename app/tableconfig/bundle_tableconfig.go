package tableconfig

import (
	"net/http"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/core"
)

type TableConfigBundle struct {
	routes []core.Route
}

func NewTableConfigBundle(ormDB *gorm.DB, sessions core.SessionStore, registry *Registry) core.Bundle {
	hc := NewTableConfigController(ormDB, sessions, registry)

	r := []core.Route{
		{Method: http.MethodGet, Path: "/tableconfig/configs", Handler: hc.GetDefaultTableConfigsHandler},
		{Method: http.MethodGet, Path: "/tableconfig/configs/{configTypeName}", Handler: hc.GetTableConfigHandler},
		{Method: http.MethodPost, Path: "/tableconfig/configs/{configTypeName}", Handler: hc.SaveTableConfig4UserHandler},

		{Method: http.MethodOptions, Path: "/tableconfig/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
	}

	return &TableConfigBundle{
		routes: r,
	}
}

// GetRoutes implement interface core.Bundle
func (b *TableConfigBundle) GetRoutes() []core.Route {
	return b.routes
}
