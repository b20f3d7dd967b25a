package samplebundle

import (
	"math"
	"sort"
)

// ComputeStats counts samples with at least one R result, overall and per region.
// Regions are sorted by name.
func ComputeStats(samples Samples) MapStats {
	stats := MapStats{ByRegion: []ResistanceStat{}}
	byRegion := map[string]*ResistanceStat{}

	for _, sample := range samples {
		stats.Total++
		resistant := HasResistance(sample.Results)
		if resistant {
			stats.Resistant++
		}

		stat, ok := byRegion[sample.Region]
		if !ok {
			stat = &ResistanceStat{Region: sample.Region}
			byRegion[sample.Region] = stat
		}
		stat.TotalCount++
		if resistant {
			stat.ResistantCount++
		}
	}

	for _, stat := range byRegion {
		stats.ByRegion = append(stats.ByRegion, *stat)
	}
	sort.Slice(stats.ByRegion, func(i, j int) bool {
		return stats.ByRegion[i].Region < stats.ByRegion[j].Region
	})
	stats.Regions = len(stats.ByRegion)
	stats.ResistanceRate = ResistanceRate(stats.Resistant, stats.Total)
	return stats
}

// ResistanceRate is the resistant share in percent, rounded to one decimal.
func ResistanceRate(resistant, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(resistant)/float64(total)*1000) / 10
}
