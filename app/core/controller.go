package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Controller handle all base methods
type Controller struct {
	Sessions SessionStore
}

const (
	Status_OK           = 1
	Status_Error        = 999
	Status_Permission   = 998
	Status_Unauthorized = 997
	Account_Locked      = 1000
)

var (
	ErrNotAuthorized  = errors.New("Not authorized")
	ErrSessionInvalid = errors.New("Session invalid")
	ErrNotFound       = errors.New("Not found")
)

func (c *Controller) SendJSON(w http.ResponseWriter, v interface{}, code int) {
	c.SendJSONPaging(w, nil, v, code)
}

// SendJSONPaging wraps v into ResponseData unless it already is one.
func (c *Controller) SendJSONPaging(w http.ResponseWriter, paging *Paging, v interface{}, code int) {
	w.Header().Add("Content-Type", "application/json")
	w.Header().Add("Access-Control-Allow-Origin", "*")

	var tmp interface{}
	switch v.(type) {
	case ResponseData, *ResponseData:
		tmp = v
	default:
		tmp = ResponseData{
			Status: Status_OK,
			Data:   v,
			Paging: paging,
		}
	}

	b, err := json.Marshal(tmp)
	if err != nil {
		Logger.Error("encoding JSON failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "Internal server error"}`)
		return
	}
	w.WriteHeader(code)
	w.Write(b)
}

// SendFile answers with a download.
func (c *Controller) SendFile(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Add("Access-Control-Allow-Origin", "*")
	w.Header().Add("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetContent of the request inside given struct
func (c *Controller) GetContent(v interface{}, r *http.Request) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		Logger.Debug("decoding request body failed", zap.String("uri", r.RequestURI), zap.Error(err))
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// HandleError write error on response and return false if there is no error
func (c *Controller) HandleError(err error, w http.ResponseWriter) bool {
	return c.HandleErrorWithStatus(err, w, http.StatusInternalServerError)
}

func (c *Controller) HandleErrorWithStatus(err error, w http.ResponseWriter, statusCode int) bool {
	if err == nil {
		return false
	}

	if statusCode >= http.StatusInternalServerError {
		Logger.Error("request failed", zap.Error(err))
	}

	msg := ResponseData{
		Status:  Status_Error,
		Message: "An error occured",
		Detail:  err.Error(),
	}

	c.SendJSON(w, &msg, statusCode)
	return true
}

func (c *Controller) HandleNotFoundError(err error, w http.ResponseWriter) bool {
	return c.HandleErrorWithStatus(err, w, http.StatusNotFound)
}

func (c *Controller) HandleBadRequestError(err error, w http.ResponseWriter) bool {
	return c.HandleErrorWithStatus(err, w, http.StatusBadRequest)
}

// SendErrors answers 422 with the field errors of a failed validation.
func (c *Controller) SendErrors(w http.ResponseWriter, v map[string]string) {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	texts := make([]string, 0, len(keys))
	for _, key := range keys {
		texts = append(texts, key+": "+v[key])
	}

	msg := ResponseData{
		Status:  Status_Error,
		Message: "Validation failed",
		Detail:  strings.Join(texts, "\n"),
		Errors:  v,
	}

	c.SendJSON(w, &msg, http.StatusUnprocessableEntity)
}

func (c *Controller) HandlePermissionError(err error, w http.ResponseWriter) bool {
	if err == nil {
		return false
	}

	msg := ResponseData{
		Status:  Status_Permission,
		Message: "You are not allowed to access these data",
		Detail:  err.Error(),
	}

	c.SendJSON(w, &msg, http.StatusForbidden)
	return true
}

func (c *Controller) HandleUnauthorizedError(err error, w http.ResponseWriter) bool {
	if err == nil {
		return false
	}

	msg := ResponseData{
		Status:  Status_Unauthorized,
		Message: "You are not authorized, please login",
		Detail:  err.Error(),
	}

	c.SendJSON(w, &msg, http.StatusUnauthorized)
	return true
}

func (c *Controller) HandleAccountLockedError(err error, w http.ResponseWriter) bool {
	if err == nil {
		return false
	}

	msg := ResponseData{
		Status:  Account_Locked,
		Message: "Account locked",
		Detail:  err.Error(),
	}

	c.SendJSON(w, &msg, http.StatusUnauthorized)
	return true
}

func (c *Controller) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Add("Access-Control-Allow-Headers", "Authorization")
	w.Header().Add("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Add("Access-Control-Allow-Headers", "X-Timezone")
	w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")

	w.WriteHeader(http.StatusOK)
}

// BearerToken returns the session token of the Authorization header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	tmp := strings.SplitN(auth, " ", 2)
	if len(tmp) != 2 || !strings.EqualFold(tmp[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(tmp[1])
}

// LookupUser resolves the session of the request without writing a response.
func (c *Controller) LookupUser(r *http.Request) (*User, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, ErrNotAuthorized
	}
	user, ok, err := c.Sessions.Get(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionInvalid
	}
	user.Token = token
	return &user, nil
}

func (c *Controller) GetUser(w http.ResponseWriter, r *http.Request) (bool, *User) {
	user, err := c.LookupUser(r)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrSessionInvalid) {
			c.HandleUnauthorizedError(err, w)
		} else {
			c.HandleError(err, w)
		}
		return false, nil
	}
	return true, user
}

func (c *Controller) TryGetUser(w http.ResponseWriter, r *http.Request) (bool, *User) {
	user, err := c.LookupUser(r)
	if err != nil {
		return false, nil
	}
	return true, user
}

// RequireRole answers 401/403 itself when the caller lacks the role.
func (c *Controller) RequireRole(w http.ResponseWriter, r *http.Request, role Role) (bool, *User) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return false, nil
	}
	if !user.Role.Satisfies(role) {
		c.HandlePermissionError(fmt.Errorf("role %s required", role), w)
		return false, nil
	}
	return true, user
}

func (c *Controller) GetPaging(values url.Values) *Paging {
	paging := Paging{
		Page:   -1,
		Offset: -1,
		Limit:  -1,
	}
	if len(values) > 0 {
		if val := values.Get("page"); val != "" {
			paging.Page, _ = strconv.Atoi(val)
		}
		if val := values.Get("per_page"); val != "" {
			paging.PerPage, _ = strconv.Atoi(val)
		}
		if val := values.Get("limit"); val != "" {
			paging.Limit, _ = strconv.Atoi(val)
		}
		if val := values.Get("offset"); val != "" {
			paging.Offset, _ = strconv.Atoi(val)
		}
	}

	if paging.Limit > 0 || paging.Offset > 0 {
		if paging.Offset < 0 {
			paging.Offset = 0
		}
		paging.PerPage = paging.Limit
		return &paging
	}
	if paging.PerPage <= 0 {
		paging.PerPage = 200
	}
	if paging.Page < 0 {
		paging.Page = 0
	}
	paging.Limit = paging.PerPage
	paging.Offset = paging.Page * paging.PerPage

	return &paging
}
