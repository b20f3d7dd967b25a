package samplebundle

import (
	"math"
)

const (
	TileSize      = 256
	ClusterRadius = 40.0
	MinZoom       = 0
	MaxZoom       = 22
)

type Point struct {
	X float64
	Y float64
}

// Project converts lat/lng to Web Mercator pixel coordinates at zoom,
// on a world of TileSize*2^zoom pixels.
func Project(lat, lng float64, zoom int) Point {
	worldSize := TileSize * math.Pow(2, float64(zoom))

	siny := math.Sin(lat * math.Pi / 180)
	siny = math.Min(math.Max(siny, -0.9999), 0.9999)

	return Point{
		X: worldSize * (0.5 + lng/360),
		Y: worldSize * (0.5 - math.Log((1+siny)/(1-siny))/(4*math.Pi)),
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// ClusterMarkers groups markers greedily in input order: a marker joins the
// first cluster whose seed lies within ClusterRadius pixels, otherwise it
// seeds a new cluster. A cluster is placed at its seed.
func ClusterMarkers(markers MapMarkers, zoom int) Clusters {
	zoom = ClampZoom(zoom)

	clusters := Clusters{}
	seeds := []Point{}
	for _, marker := range markers {
		p := Project(marker.Lat, marker.Lng, zoom)

		joined := false
		for i, seed := range seeds {
			if distance(seed, p) <= ClusterRadius {
				clusters[i].Markers = append(clusters[i].Markers, marker)
				clusters[i].Count++
				joined = true
				break
			}
		}
		if joined {
			continue
		}

		seeds = append(seeds, p)
		clusters = append(clusters, Cluster{
			Lat:     marker.Lat,
			Lng:     marker.Lng,
			Count:   1,
			Markers: MapMarkers{marker},
		})
	}
	return clusters
}
