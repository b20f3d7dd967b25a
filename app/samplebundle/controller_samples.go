package samplebundle

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
	"onlab_backend/app/websocket"
)

type SampleController struct {
	core.Controller
	ormDB     *gorm.DB
	catalog   *catalog.Catalog
	allocator *IDAllocator
	hub       *websocket.Hub
	mailer    core.Mailer
}

func NewSampleController(ormDB *gorm.DB, sessions core.SessionStore, cat *catalog.Catalog, hub *websocket.Hub, mailer core.Mailer) *SampleController {
	if core.Config.Database.Debug {
		ormDB = ormDB.Debug()
	}

	c := &SampleController{
		Controller: core.Controller{Sessions: sessions},
		ormDB:      ormDB,
		catalog:    cat,
		allocator:  NewIDAllocator(ormDB),
		hub:        hub,
		mailer:     mailer,
	}

	if core.Config.Database.DoAutoMigrate {
		if err := AutoMigrate(ormDB); err != nil {
			core.Logger.Error("migrating sample tables failed", zap.Error(err))
		}
	}
	return c
}

func (c *SampleController) broadcast(action string, sample *Sample) {
	if c.hub == nil {
		return
	}
	c.hub.SendBroadcastDataInfoMessage(sample.InternalId, action, websocket.Websocket_Samples, sample.ID, sample.ListItem(c.catalog))
}

// loadSample resolves {id} and answers 400/404 itself.
func (c *SampleController) loadSample(w http.ResponseWriter, r *http.Request) (bool, *Sample) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		c.HandleBadRequestError(fmt.Errorf("invalid sample id"), w)
		return false, nil
	}
	sample, err := GetSample(c.ormDB, uint(id))
	if errors.Is(err, core.ErrNotFound) {
		c.HandleNotFoundError(fmt.Errorf("sample %d not found", id), w)
		return false, nil
	}
	if c.HandleError(err, w) {
		return false, nil
	}
	return true, sample
}

// CreateSampleHandler registers a field sample and assigns its internal id.
func (c *SampleController) CreateSampleHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleSampler)
	if !ok {
		return
	}

	sample := Sample{}
	if err := c.GetContent(&sample, r); c.HandleBadRequestError(err, w) {
		return
	}

	sample.Model = core.Model{}
	sample.InternalId = ""
	sample.IsArchived = false
	sample.Results = nil
	sample.CreatedById = user.ID
	if sample.Status != StatusSent {
		sample.Status = StatusPendingLabConfirmation
	}
	for i := range sample.PesticideHistory {
		sample.PesticideHistory[i].Model = core.Model{}
		sample.PesticideHistory[i].SampleId = 0
	}
	sample.ApplyDefaults(c.catalog)
	if !sample.Validate(c.catalog) {
		c.SendErrors(w, sample.Errors)
		return
	}
	sample.History = SampleEvents{NewSampleEvent(Event_Created, user.Name(), "דגימה נוצרה בשטח")}

	if err := c.allocator.CreateSample(&sample); c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_CreateSample, activitylog.Details{
		"sample_id":  sample.InternalId,
		"pathogen":   sample.Pathogen,
		"region":     sample.Region,
		"lab":        sample.Lab,
		"treatments": len(sample.PesticideHistory),
	})
	c.broadcast(websocket.Websocket_Add, &sample)

	if recipients := core.Config.LabNotifyEmails(sample.Lab); len(recipients) > 0 && c.mailer != nil {
		go notifyLab(c.mailer, sample, c.catalog, recipients, core.Config.Server.PdfFontPath)
	}

	c.SendJSON(w, &sample, http.StatusCreated)
}

func (c *SampleController) GetSamplesHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleSampler); !ok {
		return
	}

	samples := Samples{}
	paging := c.GetPaging(r.URL.Query())

	db, dbTotalCount := CreateWhereConditionsSamples(r.URL.Query(), c.ormDB)
	if err := db.Limit(paging.Limit).Offset(paging.Offset).Find(&samples).Error; c.HandleError(err, w) {
		return
	}
	total := 0
	if err := dbTotalCount.Count(&total).Error; c.HandleError(err, w) {
		return
	}
	paging.SetTotal(total)

	items := SampleListItems{}
	for _, sample := range samples {
		items = append(items, sample.ListItem(c.catalog))
	}
	c.SendJSONPaging(w, paging, &items, http.StatusOK)
}

func (c *SampleController) GetSampleHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleSampler); !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}
	c.SendJSON(w, sample, http.StatusOK)
}

func (c *SampleController) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	update := StatusUpdate{}
	if err := c.GetContent(&update, r); c.HandleBadRequestError(err, w) {
		return
	}
	if !update.Status.Valid() {
		c.SendErrors(w, map[string]string{"status": "unknown status"})
		return
	}

	previous := sample.Status
	event := NewSampleEvent(StatusEventType(update.Status), user.Name(), StatusChangeDescription(c.catalog.StatusLabel(string(update.Status))))
	err := ChangeStatus(c.ormDB, sample, update.Status, event)
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStatusChanged) {
		c.HandleErrorWithStatus(err, w, http.StatusConflict)
		return
	}
	if c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_UpdateStatus, activitylog.Details{
		"sample_id": sample.InternalId,
		"from":      string(previous),
		"to":        string(update.Status),
	})
	c.broadcast(websocket.Websocket_Update, sample)
	c.SendJSON(w, sample, http.StatusOK)
}

func (c *SampleController) SaveResultsHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	update := ResultsUpdate{}
	if err := c.GetContent(&update, r); c.HandleBadRequestError(err, w) {
		return
	}
	if errs := ValidateResults(update.Results); len(errs) > 0 {
		c.SendErrors(w, errs)
		return
	}
	for i := range update.Results {
		update.Results[i].User = user.Name()
		if !update.Results[i].Date.Valid {
			update.Results[i].Date = core.Now()
		}
	}

	eventType, description := Event_ResultAdded, "הוזנו תוצאות"
	if sample.HasResultEvent() {
		eventType, description = Event_ResultUpdated, "עודכנו תוצאות"
	}
	if worst := WorstCategory(update.Results); worst != "" {
		description += ": " + c.catalog.CategoryLabel(string(worst))
	}

	err := ReplaceResults(c.ormDB, sample, update.Results, NewSampleEvent(eventType, user.Name(), description))
	if errors.Is(err, ErrResultsNotAllowed) {
		c.HandleErrorWithStatus(err, w, http.StatusConflict)
		return
	}
	if c.HandleError(err, w) {
		return
	}

	activitylog.Record(c.ormDB, user, activitylog.Action_SaveResults, activitylog.Details{
		"sample_id": sample.InternalId,
		"tests":     len(update.Results),
		"update":    eventType == Event_ResultUpdated,
	})
	c.broadcast(websocket.Websocket_Update, sample)
	c.SendJSON(w, sample, http.StatusOK)
}

func (c *SampleController) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleSampler)
	if !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	note := NoteRequest{}
	if err := c.GetContent(&note, r); c.HandleBadRequestError(err, w) {
		return
	}
	note.Note = strings.TrimSpace(note.Note)
	if note.Note == "" {
		c.SendErrors(w, map[string]string{"note": "note empty"})
		return
	}

	if err := AddEvent(c.ormDB, sample, NewSampleEvent(Event_NoteAdded, user.Name(), note.Note)); c.HandleError(err, w) {
		return
	}
	activitylog.Record(c.ormDB, user, activitylog.Action_AddNote, activitylog.Details{"sample_id": sample.InternalId})
	c.broadcast(websocket.Websocket_Update, sample)
	c.SendJSON(w, sample, http.StatusOK)
}

func (c *SampleController) archive(w http.ResponseWriter, r *http.Request, archived bool) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	if err := SetArchived(c.ormDB, sample, archived); c.HandleError(err, w) {
		return
	}
	action := activitylog.Action_ArchiveSample
	if !archived {
		action = activitylog.Action_RestoreSample
	}
	activitylog.Record(c.ormDB, user, action, activitylog.Details{"sample_id": sample.InternalId})
	c.broadcast(websocket.Websocket_Update, sample)
	c.SendJSON(w, sample, http.StatusOK)
}

func (c *SampleController) ArchiveSampleHandler(w http.ResponseWriter, r *http.Request) {
	c.archive(w, r, true)
}

func (c *SampleController) UnarchiveSampleHandler(w http.ResponseWriter, r *http.Request) {
	c.archive(w, r, false)
}

func (c *SampleController) DeleteSampleHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.RequireRole(w, r, core.RoleLabAdmin)
	if !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	if err := c.ormDB.Delete(&Sample{Model: core.Model{ID: sample.ID}}).Error; c.HandleError(err, w) {
		return
	}
	activitylog.Record(c.ormDB, user, activitylog.Action_DeleteSample, activitylog.Details{"sample_id": sample.InternalId})
	c.broadcast(websocket.Websocket_Delete, sample)
	c.SendJSON(w, "OK", http.StatusOK)
}

func (c *SampleController) GetLabelHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleSampler); !ok {
		return
	}
	ok, sample := c.loadSample(w, r)
	if !ok {
		return
	}

	data, err := RenderLabel(sample, core.Config.Server.PdfFontPath)
	if c.HandleError(err, w) {
		return
	}
	c.SendFile(w, LabelFilename(sample), "application/pdf", data)
}

// GetWorklistHandler lists samples the lab has not finished, oldest first.
func (c *SampleController) GetWorklistHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleLabAdmin); !ok {
		return
	}

	samples := Samples{}
	paging := c.GetPaging(r.URL.Query())
	db, dbTotalCount := CreateWhereConditionsWorklist(r.URL.Query(), c.ormDB)
	if err := db.Limit(paging.Limit).Offset(paging.Offset).Find(&samples).Error; c.HandleError(err, w) {
		return
	}
	total := 0
	if err := dbTotalCount.Count(&total).Error; c.HandleError(err, w) {
		return
	}
	paging.SetTotal(total)

	items := SampleListItems{}
	for _, sample := range samples {
		items = append(items, sample.ListItem(c.catalog))
	}
	c.SendJSONPaging(w, paging, &items, http.StatusOK)
}

func (c *SampleController) ClassifyBotrytisHandler(w http.ResponseWriter, r *http.Request) {
	if ok, _ := c.RequireRole(w, r, core.RoleLabAdmin); !ok {
		return
	}
	growth := BotrytisGrowth{}
	if err := c.GetContent(&growth, r); c.HandleBadRequestError(err, w) {
		return
	}
	category := ClassifyBotrytis(growth)
	c.SendJSON(w, map[string]string{
		"category": string(category),
		"label":    c.catalog.CategoryLabel(string(category)),
		"color":    c.catalog.CategoryColor(string(category)),
	}, http.StatusOK)
}
