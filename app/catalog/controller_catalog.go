package catalog

import (
	"errors"
	"net/http"
	"strings"

	"onlab_backend/app/core"
)

type CatalogController struct {
	core.Controller
	catalog  *Catalog
	geocoder *core.Geocoder
}

func NewCatalogController(cat *Catalog, geocoder *core.Geocoder) *CatalogController {
	return &CatalogController{
		catalog:  cat,
		geocoder: geocoder,
	}
}

func (c *CatalogController) GetCatalogHandler(w http.ResponseWriter, r *http.Request) {
	c.SendJSON(w, c.catalog, http.StatusOK)
}

// GetCitiesHandler lists the localities of the location picker, filtered by ?search=
func (c *CatalogController) GetCitiesHandler(w http.ResponseWriter, r *http.Request) {
	cities := c.catalog.SearchCities(r.URL.Query().Get("search"))
	c.SendJSON(w, &cities, http.StatusOK)
}

func (c *CatalogController) GeocodeHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		c.HandleBadRequestError(errors.New("q is required"), w)
		return
	}
	if c.geocoder == nil || c.geocoder.BaseUrl == "" {
		c.HandleErrorWithStatus(errors.New("geocoder not configured"), w, http.StatusServiceUnavailable)
		return
	}

	places, err := c.geocoder.Search(r.Context(), query)
	if c.HandleErrorWithStatus(err, w, http.StatusBadGateway) {
		return
	}
	c.SendJSON(w, &places, http.StatusOK)
}
