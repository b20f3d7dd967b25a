package samplebundle

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlab_backend/app/activitylog"
	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

const (
	samplerToken = "sampler-token"
	adminToken   = "admin-token"
)

type envelope struct {
	Status int               `json:"status"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
	Data   json.RawMessage   `json:"data"`
	Paging *core.Paging      `json:"paging"`
}

type fakeMailer struct {
	sent chan core.Mail
}

func (m *fakeMailer) Send(mail core.Mail) error {
	m.sent <- mail
	return nil
}

type testServer struct {
	t      *testing.T
	ormDB  *gorm.DB
	router *mux.Router
}

func newTestServer(t *testing.T, mailer core.Mailer) *testServer {
	t.Helper()
	ormDB := newTestDB(t)

	sessions := core.NewMemorySessionStore(time.Hour)
	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, samplerToken, core.User{Model: core.Model{ID: 1}, Email: "field@example.org", DisplayName: "Field Team", Role: core.RoleSampler, IsActive: true}))
	require.NoError(t, sessions.Set(ctx, adminToken, core.User{Model: core.Model{ID: 2}, Email: "lab@example.org", DisplayName: "Lab", Role: core.RoleLabAdmin, IsActive: true}))

	router := mux.NewRouter()
	for _, route := range NewSampleBundle(ormDB, sessions, catalog.Default(), nil, mailer).GetRoutes() {
		router.HandleFunc(route.Path, route.Handler).Methods(route.Method)
	}
	return &testServer{t: t, ormDB: ormDB, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)

	resp := envelope{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func (s *testServer) create(body map[string]interface{}) Sample {
	s.t.Helper()
	rec, resp := s.do(http.MethodPost, "/samples", samplerToken, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	sample := Sample{}
	require.NoError(s.t, json.Unmarshal(resp.Data, &sample))
	return sample
}

func sampleBody(pathogen, region string) map[string]interface{} {
	return map[string]interface{}{
		"collector_name":  "Field Team",
		"collector_email": "Field@Example.org",
		"region":          region,
		"crop":            "פלפל",
		"pathogen":        pathogen,
		"lat":             30.66,
		"lng":             35.24,
		"pesticide_history": []map[string]interface{}{
			{"material": "Boscalid", "dosage": "50 ml", "method": "ריסוס"},
		},
	}
}

func TestCreateSample(t *testing.T) {
	s := newTestServer(t, nil)

	body := sampleBody("Botrytis cinerea", "ערבה")
	body["internal_id"] = "Z-9999"
	body["is_archived"] = true
	body["results"] = []map[string]interface{}{{"material": "x", "dosage": "1", "category": "R"}}

	sample := s.create(body)
	assert.Equal(t, "B-0001", sample.InternalId)
	assert.Equal(t, StatusPendingLabConfirmation, sample.Status)
	assert.False(t, sample.IsArchived)
	assert.Empty(t, sample.Results)
	assert.Equal(t, "field@example.org", sample.CollectorEmail)
	assert.Equal(t, uint(1), sample.CreatedById)
	require.Len(t, sample.PesticideHistory, 1)
	require.Len(t, sample.History, 1)
	assert.Equal(t, Event_Created, sample.History[0].Type)
	assert.Equal(t, "Field Team", sample.History[0].User)

	second := s.create(sampleBody("Botrytis cinerea", "ערבה"))
	assert.Equal(t, "B-0002", second.InternalId)

	sent := sampleBody("Podosphaera xanthii", "גליל עליון")
	sent["status"] = "SENT"
	third := s.create(sent)
	assert.Equal(t, "P-0001", third.InternalId)
	assert.Equal(t, StatusSent, third.Status)

	count := 0
	require.NoError(t, s.ormDB.Model(&activitylog.ActivityLog{}).Where("action = ?", activitylog.Action_CreateSample).Count(&count).Error)
	assert.Equal(t, 3, count)
}

func TestCreateSample_Rejected(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(http.MethodPost, "/samples", "", sampleBody("Botrytis cinerea", "ערבה"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := sampleBody("Botrytis cinerea", "")
	body["collector_name"] = ""
	rec, resp := s.do(http.MethodPost, "/samples", samplerToken, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, resp.Errors, "region")
	assert.Contains(t, resp.Errors, "collector_name")

	rec, _ = s.do(http.MethodPost, "/samples", samplerToken, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSample_NotifiesLab(t *testing.T) {
	mailer := &fakeMailer{sent: make(chan core.Mail, 1)}
	s := newTestServer(t, mailer)

	previous := core.Config.Labs
	core.Config.Labs = []core.ConfigurationLab{{Name: catalog.Default().DefaultLab(), NotifyEmails: []string{"lab@example.org"}}}
	defer func() { core.Config.Labs = previous }()

	sample := s.create(sampleBody("Botrytis cinerea", "ערבה"))

	select {
	case mail := <-mailer.sent:
		assert.Equal(t, []string{"lab@example.org"}, mail.To)
		assert.Contains(t, mail.Subject, sample.InternalId)
		require.Len(t, mail.Attachments, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no mail sent")
	}
}

func TestSampleStatusFlow(t *testing.T) {
	s := newTestServer(t, nil)
	sample := s.create(sampleBody("Botrytis cinerea", "ערבה"))
	base := "/samples/1"
	require.Equal(t, uint(1), sample.ID)

	rec, _ := s.do(http.MethodPut, base+"/status", samplerToken, StatusUpdate{Status: StatusReceivedLab})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	results := ResultsUpdate{Results: SensitivityTests{
		{Material: "Boscalid", Dosage: "10 ppm", Category: CategoryR},
		{Material: "Fenhexamid", Dosage: "1 ppm", Category: CategoryS},
	}}
	rec, _ = s.do(http.MethodPut, base+"/results", adminToken, results)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodPut, base+"/status", adminToken, StatusUpdate{Status: StatusInTesting})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodPut, base+"/status", adminToken, StatusUpdate{Status: "LOST"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, resp := s.do(http.MethodPut, base+"/status", adminToken, StatusUpdate{Status: StatusReceivedLab})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := Sample{}
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, StatusReceivedLab, updated.Status)

	rec, _ = s.do(http.MethodPut, base+"/results", adminToken, results)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	results.Results = results.Results[:1]
	results.Results[0].Category = CategoryT
	rec, _ = s.do(http.MethodPut, base+"/results", adminToken, results)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, base+"/notes", samplerToken, NoteRequest{Note: "  צילום נוסף  "})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPost, base+"/notes", samplerToken, NoteRequest{Note: " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, resp = s.do(http.MethodGet, base, samplerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := Sample{}
	require.NoError(t, json.Unmarshal(resp.Data, &stored))

	assert.Equal(t, StatusResultsEntered, stored.Status)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, CategoryT, stored.Results[0].Category)
	assert.Equal(t, "Lab", stored.Results[0].User)
	assert.True(t, stored.Results[0].Date.Valid)

	types := []string{}
	for _, event := range stored.History {
		types = append(types, event.Type)
	}
	assert.Equal(t, []string{Event_Created, Event_LabConfirmation, Event_ResultAdded, Event_ResultUpdated, Event_NoteAdded}, types)
	assert.Equal(t, "סטטוס שונה ל: התקבל במעבדה", stored.History[1].Description)
	assert.Equal(t, "הוזנו תוצאות: R (עמיד)", stored.History[2].Description)
	assert.Equal(t, "צילום נוסף", stored.History[4].Description)
}

func TestSampleResults_Invalid(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))

	rec, resp := s.do(http.MethodPut, "/samples/1/results", adminToken, ResultsUpdate{Results: SensitivityTests{{Material: "Boscalid", Category: "Q"}}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, resp.Errors, "results.0.category")
	assert.Contains(t, resp.Errors, "results.0.dosage")
}

func TestGetSamples_FiltersAndArchive(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))
	s.create(sampleBody("Podosphaera xanthii", "גליל עליון"))
	s.create(sampleBody("Botrytis cinerea", "גליל עליון"))

	list := func(query url.Values) ([]SampleListItem, *core.Paging) {
		t.Helper()
		rec, resp := s.do(http.MethodGet, "/samples?"+query.Encode(), samplerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		items := []SampleListItem{}
		require.NoError(t, json.Unmarshal(resp.Data, &items))
		return items, resp.Paging
	}
	ids := func(items []SampleListItem) []string {
		out := []string{}
		for _, item := range items {
			out = append(out, item.InternalId)
		}
		return out
	}

	items, paging := list(url.Values{})
	assert.Len(t, items, 3)
	assert.Equal(t, 3, paging.TotalCount)
	assert.Equal(t, "ממתינה לאישור קבלה במעבדה", items[0].StatusLabel)

	items, _ = list(url.Values{"filter": {"pathogen,Podosphaera xanthii"}})
	assert.Equal(t, []string{"P-0001"}, ids(items))

	items, _ = list(url.Values{"filter": {"region,גליל עליון", "pathogen,Botrytis cinerea"}})
	assert.Equal(t, []string{"B-0002"}, ids(items))

	items, _ = list(url.Values{"search": {"b-000"}, "order": {"internal_id,asc"}})
	assert.Equal(t, []string{"B-0001", "B-0002"}, ids(items))

	items, paging = list(url.Values{"order": {"internal_id,asc"}, "per_page": {"2"}, "page": {"1"}})
	assert.Equal(t, []string{"P-0001"}, ids(items))
	assert.Equal(t, 2, paging.TotalPage)

	rec, _ := s.do(http.MethodPost, "/samples/1/archive", samplerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(http.MethodPost, "/samples/1/archive", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	items, _ = list(url.Values{})
	assert.Len(t, items, 2)
	items, _ = list(url.Values{"archived": {"true"}})
	assert.Equal(t, []string{"B-0001"}, ids(items))
	items, _ = list(url.Values{"archived": {"all"}})
	assert.Len(t, items, 3)

	rec, _ = s.do(http.MethodPost, "/samples/1/unarchive", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _ = list(url.Values{})
	assert.Len(t, items, 3)
}

func TestGetSamples_SearchIsLiteral(t *testing.T) {
	s := newTestServer(t, nil)
	for _, collector := range []string{"Dana_North", "DanaXNorth", "100% Team"} {
		body := sampleBody("Botrytis cinerea", "ערבה")
		body["collector_name"] = collector
		s.create(body)
	}

	search := func(text string) []string {
		t.Helper()
		rec, resp := s.do(http.MethodGet, "/samples?"+url.Values{"search": {text}, "order": {"internal_id,asc"}}.Encode(), samplerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		items := []SampleListItem{}
		require.NoError(t, json.Unmarshal(resp.Data, &items))
		ids := []string{}
		for _, item := range items {
			ids = append(ids, item.InternalId)
		}
		return ids
	}

	assert.Equal(t, []string{"B-0001"}, search("a_n"))
	assert.Equal(t, []string{"B-0003"}, search("%"))
	assert.Empty(t, search("!"))
	assert.Equal(t, []string{"B-0001", "B-0002"}, search("dana"))
}

func TestWorklist(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))
	s.create(sampleBody("Botrytis cinerea", "ערבה"))

	rec, _ := s.do(http.MethodPut, "/samples/1/status", adminToken, StatusUpdate{Status: StatusReceivedLab})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPut, "/samples/1/results", adminToken, ResultsUpdate{Results: SensitivityTests{{Material: "Boscalid", Dosage: "1", Category: CategoryS}}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/lab/worklist", samplerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := s.do(http.MethodGet, "/lab/worklist", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := []SampleListItem{}
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "B-0002", items[0].InternalId)
	assert.Equal(t, 1, resp.Paging.TotalCount)
}

func TestDeleteSample(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))

	rec, _ := s.do(http.MethodDelete, "/samples/1", samplerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodDelete, "/samples/1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/samples/1", samplerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodGet, "/samples/99", samplerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the deleted id is not handed out again
	next := s.create(sampleBody("Botrytis cinerea", "ערבה"))
	assert.Equal(t, "B-0002", next.InternalId)
}

func TestGetLabel(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))

	rec, _ := s.do(http.MethodGet, "/samples/1/label", samplerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "label_B-0001.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestPublicMap(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(sampleBody("Botrytis cinerea", "ערבה"))
	s.create(sampleBody("Podosphaera xanthii", "גליל עליון"))
	s.create(sampleBody("Botrytis cinerea", "ערבה"))

	rec, _ := s.do(http.MethodPut, "/samples/1/status", adminToken, StatusUpdate{Status: StatusReceivedLab})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPut, "/samples/1/results", adminToken, ResultsUpdate{Results: SensitivityTests{{Material: "Boscalid", Dosage: "1", Category: CategoryR}}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPost, "/samples/3/archive", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := s.do(http.MethodGet, "/map/clusters?zoom=3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "collector")
	assert.NotContains(t, rec.Body.String(), "Field Team")

	payload := struct {
		Zoom     int      `json:"zoom"`
		Clusters Clusters `json:"clusters"`
	}{}
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, 3, payload.Zoom)
	require.Len(t, payload.Clusters, 1)
	assert.Equal(t, 2, payload.Clusters[0].Count)
	assert.Equal(t, CategoryR, payload.Clusters[0].Markers[0].Worst)
	assert.Equal(t, "#BC4749", payload.Clusters[0].Markers[0].Color)
	assert.Equal(t, "#94a3b8", payload.Clusters[0].Markers[1].Color)

	rec, _ = s.do(http.MethodGet, "/map/clusters?zoom=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(http.MethodGet, "/map/clusters?zoom=99&search=p-0001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, MaxZoom, payload.Zoom)
	require.Len(t, payload.Clusters, 1)
	assert.Equal(t, "P-0001", payload.Clusters[0].Markers[0].InternalId)

	rec, resp = s.do(http.MethodGet, "/map/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := MapStats{}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Resistant)
	assert.Equal(t, 50.0, stats.ResistanceRate)
	assert.Equal(t, 2, stats.Regions)
}

func TestClassifyBotrytisHandler(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := s.do(http.MethodPost, "/lab/classify/botrytis", adminToken, map[string]bool{"growth_1": true, "growth_0_1": true})
	require.Equal(t, http.StatusOK, rec.Code)
	got := map[string]string{}
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "RS", got["category"])
	assert.Equal(t, "#D4A373", got["color"])

	rec, _ = s.do(http.MethodPost, "/lab/classify/botrytis", samplerToken, map[string]bool{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
