package reportbundle

import (
	"errors"
	"net/http"
	"time"

	"github.com/jinzhu/gorm"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/samplebundle"
)

type ReportController struct {
	core.Controller
	ormDB   *gorm.DB
	catalog *catalog.Catalog
}

var now = time.Now

func NewReportController(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog) *ReportController {
	if core.Config.Database.Debug {
		ormDB = ormDB.Debug()
	}
	return &ReportController{
		Controller: core.Controller{Sessions: sessions},
		ormDB:      ormDB,
		catalog:    cat,
	}
}

// LoadSamples reads the samples of a report. The lab is filtered in the
// query, the date range on the loaded rows.
func LoadSamples(ormDB *gorm.DB, filter Filter) (samplebundle.Samples, error) {
	samples, err := samplebundle.FindSamplesWithDetails(ormDB, func(db *gorm.DB) *gorm.DB {
		if filter.Lab != "" {
			db = db.Where("lab = ?", filter.Lab)
		}
		return db
	})
	if err != nil {
		return nil, err
	}
	return FilterSamples(samples, filter), nil
}

// buildReport answers the error itself and returns false when it did.
func (c *ReportController) buildReport(w http.ResponseWriter, r *http.Request) (bool, *core.User, Report) {
	ok, user := c.RequireRole(w, r, core.RoleSampler)
	if !ok {
		return false, nil, Report{}
	}

	filter, err := ParseFilter(r.URL.Query(), c.catalog)
	if c.HandleBadRequestError(err, w) {
		return false, nil, Report{}
	}
	sheets, err := ParseSheets(r.URL.Query(), user.Role.IsAdmin())
	if errors.Is(err, core.ErrNotAuthorized) {
		c.HandlePermissionError(err, w)
		return false, nil, Report{}
	}
	if c.HandleBadRequestError(err, w) {
		return false, nil, Report{}
	}

	samples, err := LoadSamples(c.ormDB, filter)
	if c.HandleError(err, w) {
		return false, nil, Report{}
	}
	return true, user, BuildReport(samples, sheets, c.catalog)
}

func (c *ReportController) GetPreviewHandler(w http.ResponseWriter, r *http.Request) {
	ok, _, report := c.buildReport(w, r)
	if !ok {
		return
	}
	previews := report.Preview()
	c.SendJSON(w, &previews, http.StatusOK)
}

func (c *ReportController) ExportHandler(w http.ResponseWriter, r *http.Request) {
	ok, user, report := c.buildReport(w, r)
	if !ok {
		return
	}

	data, err := report.ExportXLSX()
	if c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_ExportData, activitylog.Details{
		"type":   "EXCEL",
		"sheets": report.SheetNames(),
		"rows":   len(report.Sheets[0].Rows),
	})
	c.SendFile(w, ExportFilename(c.catalog.AppName, now()), core.XlsxContentType, data)
}
