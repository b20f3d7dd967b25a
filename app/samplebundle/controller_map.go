package samplebundle

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/jinzhu/gorm"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

const DefaultZoom = 8

// MapSamples returns the active samples for the public map. search matches
// the internal id (case-insensitive) or the region.
func MapSamples(ormDB *gorm.DB, search string) (Samples, error) {
	search = strings.TrimSpace(search)
	return FindSamplesWithDetails(ormDB, func(db *gorm.DB) *gorm.DB {
		db = db.Where("is_archived = ?", false)
		if search != "" {
			db = db.Where("LOWER(internal_id) LIKE ?"+core.LikeEscape+" OR region LIKE ?"+core.LikeEscape,
				core.ContainsPattern(strings.ToLower(search)), core.ContainsPattern(search))
		}
		return db
	})
}

// ToMarkers strips collector details and adds the resistance color.
func ToMarkers(samples Samples, cat *catalog.Catalog) (MapMarkers, error) {
	markers := MapMarkers{}
	for i := range samples {
		marker := MapMarker{}
		if err := copier.Copy(&marker, &samples[i]); err != nil {
			return nil, err
		}
		marker.Worst = WorstCategory(samples[i].Results)
		marker.Color = cat.CategoryColor(string(marker.Worst))
		markers = append(markers, marker)
	}
	return markers, nil
}

func (c *SampleController) GetClustersHandler(w http.ResponseWriter, r *http.Request) {
	zoom := DefaultZoom
	if val := r.URL.Query().Get("zoom"); val != "" {
		z, err := strconv.Atoi(val)
		if err != nil {
			c.HandleBadRequestError(err, w)
			return
		}
		zoom = ClampZoom(z)
	}

	samples, err := MapSamples(c.ormDB, r.URL.Query().Get("search"))
	if c.HandleError(err, w) {
		return
	}
	markers, err := ToMarkers(samples, c.catalog)
	if c.HandleError(err, w) {
		return
	}

	clusters := ClusterMarkers(markers, zoom)
	c.SendJSON(w, map[string]interface{}{
		"zoom":     zoom,
		"clusters": clusters,
	}, http.StatusOK)
}

func (c *SampleController) GetMapStatsHandler(w http.ResponseWriter, r *http.Request) {
	samples, err := MapSamples(c.ormDB, r.URL.Query().Get("search"))
	if c.HandleError(err, w) {
		return
	}
	stats := ComputeStats(samples)
	c.SendJSON(w, &stats, http.StatusOK)
}
