package systembundle

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/websocket"
)

// SystemController struct
type SystemController struct {
	core.Controller
	ormDB    *gorm.DB
	catalog  *catalog.Catalog
	hub      *websocket.Hub
	verifier *core.IdentityVerifier
}

func AutoMigrate(ormDB *gorm.DB) error {
	return ormDB.AutoMigrate(&core.User{}, &SystemAccountsSession{}, &WhitelistEntry{}).Error
}

// NewSystemController instance
func NewSystemController(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog, hub *websocket.Hub, verifier *core.IdentityVerifier) *SystemController {
	if core.Config.Database.Debug {
		ormDB = ormDB.Debug()
	}

	c := &SystemController{
		Controller: core.Controller{Sessions: sessions},
		ormDB:      ormDB,
		catalog:    cat,
		hub:        hub,
		verifier:   verifier,
	}

	if core.Config.Database.DoAutoMigrate {
		if err := AutoMigrate(ormDB); err != nil {
			core.Logger.Error("migrating system tables failed", zap.Error(err))
		}
		if err := activitylog.AutoMigrate(ormDB); err != nil {
			core.Logger.Error("migrating activity log failed", zap.Error(err))
		}
	}
	return c
}

// LogActivityHandler stores an activity reported by the frontend. Callers
// without a session are logged as the anonymous user.
func (c *SystemController) LogActivityHandler(w http.ResponseWriter, r *http.Request) {
	_, user := c.TryGetUser(w, r)

	request := ActivityRequest{}
	if err := c.GetContent(&request, r); c.HandleBadRequestError(err, w) {
		return
	}
	request.Action = strings.ToUpper(strings.TrimSpace(request.Action))
	if request.Action == "" {
		c.SendErrors(w, map[string]string{"action": "action empty"})
		return
	}

	entry := activitylog.NewEntry(user, request.Action, request.Details)
	entry.UserAgent = r.UserAgent()
	if err := activitylog.Save(c.ormDB, &entry); c.HandleError(err, w) {
		return
	}
	c.SendJSON(w, &entry, http.StatusCreated)
}

// getActivityLogs swagger:route GET /system/activity system getActivityLogs
//
// retrieves the newest activity log entries
//
// produces:
// - application/json
// parameters:
//	+ name: Authorization
//    in: header
//    description: "Bearer " + token
//    required: true
//    type: string
// Responses:
//    default: HandleErrorData
//        200:
//	       data: []ActivityLog
//        401: HandleErrorData "unauthorized"
//        403: HandleErrorData "no Permission"
func (c *SystemController) GetActivityLogsHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleLabAdmin); !ok {
		return
	}
	filter, err := activitylog.ParseFilter(r.URL.Query())
	if c.HandleBadRequestError(err, w) {
		return
	}
	logs, err := activitylog.Find(c.ormDB, filter)
	if c.HandleError(err, w) {
		return
	}
	c.SendJSON(w, &logs, http.StatusOK)
}

func (c *SystemController) GetActivityActionsHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleLabAdmin); !ok {
		return
	}
	actions, err := activitylog.UniqueActions(c.ormDB)
	if c.HandleError(err, w) {
		return
	}
	c.SendJSON(w, &actions, http.StatusOK)
}

func (c *SystemController) ExportActivityLogsHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}
	filter, err := activitylog.ParseFilter(r.URL.Query())
	if c.HandleBadRequestError(err, w) {
		return
	}
	logs, err := activitylog.Find(c.ormDB, filter)
	if c.HandleError(err, w) {
		return
	}
	data, err := activitylog.ExportXLSX(logs)
	if c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_ExportLogs, activitylog.Details{"count": len(logs)})
	c.SendFile(w, activitylog.ExportFilename(now()), core.XlsxContentType, data)
}

// BackupHandler downloads every sample, account and whitelist entry as one JSON file.
func (c *SystemController) BackupHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}

	backup, err := BuildBackup(r.Context(), c.ormDB, user.Email)
	if c.HandleError(err, w) {
		return
	}
	buf := bytes.Buffer{}
	if err := WriteBackup(&buf, backup); c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_SystemBackup, activitylog.Details{
		"samples":   len(backup.Samples),
		"users":     len(backup.Users),
		"whitelist": len(backup.Whitelist),
	})
	c.SendFile(w, BackupFilename(c.catalog.AppName, backup.Metadata.ExportDate), "application/json", buf.Bytes())
}
