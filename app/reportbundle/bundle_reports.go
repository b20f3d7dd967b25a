package reportbundle

import (
	"net/http"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

type ReportBundle struct {
	routes []core.Route
}

func NewReportBundle(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog) core.Bundle {
	hc := NewReportController(ormDB, sessions, cat)

	r := []core.Route{
		{Method: http.MethodGet, Path: "/reports/preview", Handler: hc.GetPreviewHandler},
		{Method: http.MethodGet, Path: "/reports/export", Handler: hc.ExportHandler},
		{Method: http.MethodOptions, Path: "/reports/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
	}

	return &ReportBundle{
		routes: r,
	}
}

// GetRoutes implement interface core.Bundle
func (b *ReportBundle) GetRoutes() []core.Route {
	return b.routes
}
