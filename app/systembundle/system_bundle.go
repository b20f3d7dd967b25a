package systembundle

import (
	"net/http"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/websocket"
)

// SystemBundle handles login, whitelist, activity log, backup and websocket resources
type SystemBundle struct {
	routes []core.Route
}

// NewSystemBundle instance
func NewSystemBundle(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog, hub *websocket.Hub, verifier *core.IdentityVerifier) core.Bundle {
	hc := NewSystemController(ormDB, sessions, cat, hub, verifier)

	r := []core.Route{
		{Method: http.MethodPost, Path: "/system/login", Handler: hc.Login, Public: true},
		{Method: http.MethodPost, Path: "/system/logout", Handler: hc.Logout},
		{Method: http.MethodGet, Path: "/system/me", Handler: hc.MeHandler},

		{Method: http.MethodGet, Path: "/system/whitelist", Handler: hc.GetWhitelistHandler},
		{Method: http.MethodPost, Path: "/system/whitelist", Handler: hc.SaveWhitelistEntryHandler},
		{Method: http.MethodPost, Path: "/system/whitelist/import", Handler: hc.ImportWhitelistHandler},
		{Method: http.MethodDelete, Path: "/system/whitelist/{email}", Handler: hc.DeleteWhitelistEntryHandler},

		{Method: http.MethodPost, Path: "/system/activity", Handler: hc.LogActivityHandler, Public: true},
		{Method: http.MethodGet, Path: "/system/activity", Handler: hc.GetActivityLogsHandler},
		{Method: http.MethodGet, Path: "/system/activity/actions", Handler: hc.GetActivityActionsHandler},
		{Method: http.MethodGet, Path: "/system/activity/export", Handler: hc.ExportActivityLogsHandler},

		{Method: http.MethodGet, Path: "/system/backup", Handler: hc.BackupHandler},

		{Method: http.MethodGet, Path: "/ws/ticket", Handler: hc.GetWSTicketHandler},
		{Method: http.MethodGet, Path: "/ws/{ticket}", Handler: hc.HandleConnections, Public: true},

		{Method: http.MethodOptions, Path: "/system/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
		{Method: http.MethodOptions, Path: "/ws/{rest:.*}", Handler: hc.OptionsHandler, Public: true},
	}

	return &SystemBundle{
		routes: r,
	}
}

// GetRoutes implement interface core.Bundle
func (b *SystemBundle) GetRoutes() []core.Route {
	return b.routes
}
