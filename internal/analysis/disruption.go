package analysis

import (
	"github.com/samber/lo"

	"detention-stay-report/internal/category"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

// DisruptionStats summarizes ATD exits for one group and exit year.
type DisruptionStats struct {
	Total              int            `json:"total"`
	Disrupted          int            `json:"disrupted"`
	Undisrupted        int            `json:"undisrupted"`
	PercentDisrupted   *float64       `json:"percentDisrupted"`
	PercentUndisrupted *float64       `json:"percentUndisrupted"`
	ByType             map[string]int `json:"byType"`
}

// DisruptionSeries maps exit year, then group key, to exit stats.
type DisruptionSeries map[int]map[string]*DisruptionStats

// Disruptions counts ATD exits by exit year and breakdown. An exit without
// a successful-exit flag counts as disrupted.
func Disruptions(records []stay.Record, breakdown string) (DisruptionSeries, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	dim, err := parseGroupBy(breakdown)
	if err != nil {
		return nil, err
	}

	stays := stay.EnrichAll(records, stay.AlternativeToDetention)
	series := DisruptionSeries{}
	for i := range stays {
		s := &stays[i]
		if !s.HasEntry() || !s.Released() {
			continue
		}
		key, _ := engine.Label(dim, s)
		year := s.Exit.Year()
		groups, ok := series[year]
		if !ok {
			groups = map[string]*DisruptionStats{}
			series[year] = groups
		}
		stats, ok := groups[key]
		if !ok {
			stats = &DisruptionStats{ByType: lo.SliceToMap(category.DisruptionLabels, func(label string) (string, int) {
				return label, 0
			})}
			groups[key] = stats
		}
		stats.Total++
		if s.ExitOutcome == category.Undisrupted {
			stats.Undisrupted++
		} else {
			stats.Disrupted++
		}
		for _, kind := range s.Disruptions {
			stats.ByType[kind]++
		}
	}

	for _, groups := range series {
		for _, stats := range groups {
			disrupted := engine.Round(float64(stats.Disrupted)/float64(stats.Total)*100, 1)
			undisrupted := engine.Round(float64(stats.Undisrupted)/float64(stats.Total)*100, 1)
			stats.PercentDisrupted = &disrupted
			stats.PercentUndisrupted = &undisrupted
		}
	}
	return series, nil
}
