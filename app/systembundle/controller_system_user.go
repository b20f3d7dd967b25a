package systembundle

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/core"
)

var errLoginFailed = errors.New("login failed")

// login swagger:route POST /system/login system login
//
// Logs you in with an identity token or with email and password
//
// produces:
// - application/json
// parameters:
//	+ name: LoginRequest
//    type: LoginRequest
//    required: true
//    in: body
// Responses:
//    default: HandleErrorData
//        200:
//	       data: core.User
//        401: HandleErrorData "unauthorized"
//        1000: HandleErrorData "account locked"
func (c *SystemController) Login(w http.ResponseWriter, r *http.Request) {
	request := LoginRequest{}
	if err := c.GetContent(&request, r); c.HandleBadRequestError(err, w) {
		return
	}

	email, displayName, subject, method := "", "", "", ""
	switch {
	case request.IdToken != "":
		method = "id_token"
		if c.verifier == nil {
			c.HandleUnauthorizedError(core.ErrInvalidToken, w)
			return
		}
		claims, err := c.verifier.Verify(request.IdToken)
		if err != nil {
			core.Logger.Info("identity token rejected", zap.Error(err))
			c.HandleUnauthorizedError(err, w)
			return
		}
		email, displayName, subject = claims.Email, claims.Name, claims.Subject

	case request.Email != "" && request.Password != "":
		method = "password"
		email = request.Email
		account := core.User{}
		err := c.ormDB.Where("email = ?", core.NormalizeEmail(email)).First(&account).Error
		if err != nil && !gorm.IsRecordNotFoundError(err) {
			c.HandleError(err, w)
			return
		}
		if !core.CheckPassword(request.Password, account.Password) {
			c.denyLogin(w, email, method, "wrong password", errLoginFailed)
			return
		}

	default:
		c.SendErrors(w, map[string]string{"login": "id_token or email and password required"})
		return
	}

	email = core.NormalizeEmail(email)
	role, err := ResolveRole(c.ormDB, email)
	if errors.Is(err, ErrNotWhitelisted) {
		c.denyLogin(w, email, method, "not whitelisted", err)
		return
	}
	if c.HandleError(err, w) {
		return
	}

	user, err := UpsertAccount(c.ormDB, email, displayName, subject, role)
	if c.HandleError(err, w) {
		return
	}
	if _, err := CreateSession(r.Context(), c.ormDB, c.Sessions, user, r.UserAgent()); c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_Login, activitylog.Details{
		"method": method,
		"role":   string(user.Role),
	})
	c.SendJSON(w, user, http.StatusOK)
}

func (c *SystemController) denyLogin(w http.ResponseWriter, email, method, reason string, err error) {
	entry := activitylog.NewEntry(nil, activitylog.Action_LoginDenied, activitylog.Details{
		"email":  email,
		"method": method,
		"reason": reason,
	})
	entry.UserId = core.NormalizeEmail(email)
	activitylog.Save(c.ormDB, &entry)
	c.HandleUnauthorizedError(err, w)
}

func (c *SystemController) Logout(w http.ResponseWriter, r *http.Request) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return
	}
	if err := DeleteSession(r.Context(), c.ormDB, c.Sessions, user.Token); c.HandleError(err, w) {
		return
	}
	activitylog.Record(c.ormDB, user, activitylog.Action_Logout, nil)
	c.SendJSON(w, "OK", http.StatusOK)
}

func (c *SystemController) MeHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return
	}
	c.SendJSON(w, user, http.StatusOK)
}

func (c *SystemController) GetWhitelistHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleLabAdmin); !ok {
		return
	}
	entries, err := ListWhitelist(c.ormDB)
	if c.HandleError(err, w) {
		return
	}
	c.SendJSON(w, &entries, http.StatusOK)
}

func (c *SystemController) revoke(r *http.Request, accountId uint) {
	if accountId == 0 {
		return
	}
	if err := RevokeAccountSessions(r.Context(), c.ormDB, c.Sessions, accountId); err != nil {
		core.Logger.Warn("revoking sessions failed", zap.Uint("account_id", accountId), zap.Error(err))
	}
}

func (c *SystemController) SaveWhitelistEntryHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}

	entry := WhitelistEntry{}
	if err := c.GetContent(&entry, r); c.HandleBadRequestError(err, w) {
		return
	}
	entry.AddedBy = user.Email

	accountId, err := SaveWhitelistEntry(c.ormDB, &entry)
	if len(entry.Errors) > 0 {
		c.SendErrors(w, entry.Errors)
		return
	}
	if c.HandleError(err, w) {
		return
	}
	c.revoke(r, accountId)

	activitylog.Record(c.ormDB, user, activitylog.Action_WhitelistAdd, activitylog.Details{
		"email": entry.Email,
		"role":  string(entry.Role),
	})
	c.SendJSON(w, &entry, http.StatusOK)
}

func (c *SystemController) DeleteWhitelistEntryHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}

	email := core.NormalizeEmail(mux.Vars(r)["email"])
	accountId, err := RemoveWhitelistEntry(c.ormDB, email)
	if errors.Is(err, ErrSuperAdmin) {
		c.HandlePermissionError(err, w)
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		c.HandleNotFoundError(fmt.Errorf("%s is not whitelisted", email), w)
		return
	}
	if c.HandleError(err, w) {
		return
	}
	c.revoke(r, accountId)

	activitylog.Record(c.ormDB, user, activitylog.Action_WhitelistRemove, activitylog.Details{"email": email})
	c.SendJSON(w, "OK", http.StatusOK)
}
