package catalog

import (
	"net/http"

	"onlab_backend/app/core"
)

type CatalogBundle struct {
	routes []core.Route
}

// NewCatalogBundle serves the option lists of the intake form. All routes are public.
func NewCatalogBundle(cat *Catalog, geocoder *core.Geocoder) core.Bundle {
	hc := NewCatalogController(cat, geocoder)

	r := []core.Route{
		{Method: http.MethodGet, Path: "/catalog", Handler: hc.GetCatalogHandler, Public: true},
		{Method: http.MethodGet, Path: "/catalog/cities", Handler: hc.GetCitiesHandler, Public: true},
		{Method: http.MethodGet, Path: "/catalog/geocode", Handler: hc.GeocodeHandler, Public: true},

		{Method: http.MethodOptions, Path: "/catalog{rest:.*}", Handler: hc.OptionsHandler, Public: true},
	}

	return &CatalogBundle{
		routes: r,
	}
}

// GetRoutes implement interface core.Bundle
func (b *CatalogBundle) GetRoutes() []core.Route {
	return b.routes
}
