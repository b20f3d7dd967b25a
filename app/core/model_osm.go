package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type OSMObject struct {
	PlaceId     uint    `json:"place_id"`
	OSMType     string  `json:"osm_type"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

type OSMObjects []OSMObject

// GeoPlace is a geocoded location offered to the location picker.
type GeoPlace struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Geocoder looks up place names in a nominatim compatible search service.
type Geocoder struct {
	BaseUrl string
	Client  *http.Client
}

func NewGeocoder(baseUrl string) *Geocoder {
	return &Geocoder{BaseUrl: baseUrl, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (g *Geocoder) GetOSMObjects(ctx context.Context, query string) (OSMObjects, error) {
	osmObjects := OSMObjects{}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("countrycodes", "il")
	values.Set("accept-language", "he")
	values.Set("limit", "10")
	values.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseUrl+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ON-LAB-IL backend")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding %q: unexpected status %d", query, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&osmObjects); err != nil {
		return nil, fmt.Errorf("decoding geocoder response: %w", err)
	}
	return osmObjects, nil
}

// Search returns the places found for query, skipping results without coordinates.
func (g *Geocoder) Search(ctx context.Context, query string) ([]GeoPlace, error) {
	objects, err := g.GetOSMObjects(ctx, query)
	if err != nil {
		return nil, err
	}
	places := []GeoPlace{}
	for _, object := range objects {
		lat, errLat := strconv.ParseFloat(object.Lat, 64)
		lng, errLng := strconv.ParseFloat(object.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		places = append(places, GeoPlace{Name: object.DisplayName, Lat: lat, Lng: lng})
	}
	return places, nil
}
