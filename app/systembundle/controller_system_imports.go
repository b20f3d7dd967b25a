package systembundle

import (
	"fmt"
	"net/http"
	"strings"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/core"
)

// ImportWhitelistHandler reads a workbook uploaded as multipart field "file".
func (c *SystemController) ImportWhitelistHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}

	data, filename, err := core.ReadUploadedFile(r, "file")
	if c.HandleBadRequestError(err, w) {
		return
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		c.HandleBadRequestError(fmt.Errorf("%s is not an xlsx file", filename), w)
		return
	}

	result, changed, err := ImportWhitelist(c.ormDB, data, user.Email)
	if c.HandleBadRequestError(err, w) {
		return
	}
	for _, accountId := range changed {
		c.revoke(r, accountId)
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_WhitelistImport, activitylog.Details{
		"file":     filename,
		"imported": result.Imported,
		"errors":   len(result.Errors),
	})
	c.SendJSON(w, &result, http.StatusOK)
}
