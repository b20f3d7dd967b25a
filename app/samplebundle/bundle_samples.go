package samplebundle

import (
	"net/http"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/websocket"
)

type SampleBundle struct {
	routes []core.Route
}

func NewSampleBundle(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog, hub *websocket.Hub, mailer core.Mailer) core.Bundle {
	hc := NewSampleController(ormDB, sessions, cat, hub, mailer)

	r := []core.Route{
		{Method: http.MethodPost, Path: "/samples", Handler: hc.CreateSampleHandler},
		{Method: http.MethodGet, Path: "/samples", Handler: hc.GetSamplesHandler},
		{Method: http.MethodGet, Path: "/samples/{id:[0-9]+}", Handler: hc.GetSampleHandler},
		{Method: http.MethodDelete, Path: "/samples/{id:[0-9]+}", Handler: hc.DeleteSampleHandler},
		{Method: http.MethodPut, Path: "/samples/{id:[0-9]+}/status", Handler: hc.UpdateStatusHandler},
		{Method: http.MethodPut, Path: "/samples/{id:[0-9]+}/results", Handler: hc.SaveResultsHandler},
		{Method: http.MethodPost, Path: "/samples/{id:[0-9]+}/notes", Handler: hc.AddNoteHandler},
		{Method: http.MethodPost, Path: "/samples/{id:[0-9]+}/archive", Handler: hc.ArchiveSampleHandler},
		{Method: http.MethodPost, Path: "/samples/{id:[0-9]+}/unarchive", Handler: hc.UnarchiveSampleHandler},
		{Method: http.MethodGet, Path: "/samples/{id:[0-9]+}/label", Handler: hc.GetLabelHandler},

		{Method: http.MethodGet, Path: "/lab/worklist", Handler: hc.GetWorklistHandler},
		{Method: http.MethodPost, Path: "/lab/classify/botrytis", Handler: hc.ClassifyBotrytisHandler},

		{Method: http.MethodGet, Path: "/map/clusters", Handler: hc.GetClustersHandler, Public: true},
		{Method: http.MethodGet, Path: "/map/stats", Handler: hc.GetMapStatsHandler, Public: true},

		{Method: http.MethodOptions, Path: "/samples{rest:.*}", Handler: hc.OptionsHandler, Public: true},
		{Method: http.MethodOptions, Path: "/lab/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
		{Method: http.MethodOptions, Path: "/map/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
	}

	return &SampleBundle{
		routes: r,
	}
}

// GetRoutes implement interface core.Bundle
func (b *SampleBundle) GetRoutes() []core.Route {
	return b.routes
}
