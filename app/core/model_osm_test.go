package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocoderSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"place_id": 1, "lat": "30.6592", "lon": "35.2420", "display_name": "עין יהב"},
			{"place_id": 2, "lat": "", "lon": "", "display_name": "broken"}
		]`))
	}))
	defer server.Close()

	places, err := NewGeocoder(server.URL).Search(context.Background(), "עין יהב")
	require.NoError(t, err)

	assert.Equal(t, "עין יהב", gotQuery)
	require.Len(t, places, 1)
	assert.Equal(t, GeoPlace{Name: "עין יהב", Lat: 30.6592, Lng: 35.2420}, places[0])
}

func TestGeocoderSearch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewGeocoder(server.URL).Search(context.Background(), "x")
	assert.Error(t, err)
}
