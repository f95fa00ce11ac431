package analysis

import (
	"sort"

	"github.com/rs/zerolog/log"

	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

// ByYearRequest asks for a metrics time series over every year the data
// covers.
type ByYearRequest struct {
	DetentionType stay.DetentionType
	Breakdown     string
	// Bound is the date range declared by the export's file name. Years
	// outside it are dropped.
	Bound   calendar.Range
	Options Options
}

// YearSeries maps year, then group key, to display-rounded metrics.
type YearSeries map[int]map[string]engine.Metrics

// SortedYears returns the series years in ascending order.
func (s YearSeries) SortedYears() []int {
	years := make([]int, 0, len(s))
	for year := range s {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Years lists the calendar years from the earliest to the latest entry or
// exit, limited to the bound's years when given. When opts include
// unreleased stays, an open stay runs through the year of opts.AsOf.
func Years(stays []stay.Stay, bound calendar.Range, opts engine.Options) []int {
	openThrough := 0
	if opts.IncludeUnreleased && !opts.AsOf.IsZero() {
		openThrough = opts.AsOf.Year()
	}
	minYear, maxYear := 0, 0
	touch := func(year int) {
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	for _, s := range stays {
		if s.HasEntry() {
			touch(s.Entry.Year())
		}
		if s.Released() {
			touch(s.Exit.Year())
		} else if s.HasEntry() && openThrough >= s.Entry.Year() {
			touch(openThrough)
		}
	}
	if minYear == 0 {
		return nil
	}
	if !bound.IsZero() {
		startYear, endYear := bound.Years()
		if startYear > minYear {
			minYear = startYear
		}
		if endYear > 0 && endYear < maxYear {
			maxYear = endYear
		}
	}
	var years []int
	for year := minYear; year <= maxYear; year++ {
		years = append(years, year)
	}
	log.Debug().Int("from", minYear).Int("to", maxYear).Int("years", len(years)).Msg("derived analysis years")
	return years
}

// AnalyzeByYear runs the aggregation once per year of the data and reduces
// every group. A bound end date is also used as the dataset end for
// unreleased stays unless Options.DatasetEnd is set.
func AnalyzeByYear(records []stay.Record, req ByYearRequest) (YearSeries, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	dim, err := parseGroupBy(req.Breakdown)
	if err != nil {
		return nil, err
	}
	detentionType, err := validateDetentionType(req.DetentionType)
	if err != nil {
		return nil, err
	}

	stays := stay.EnrichAll(records, detentionType)
	opts := req.Options
	if opts.DatasetEnd.IsZero() && !req.Bound.End.IsZero() {
		opts.DatasetEnd = req.Bound.End
	}
	engineOpts := engineOptions(stays, opts)

	series := YearSeries{}
	for _, year := range Years(stays, req.Bound, engineOpts) {
		buckets, err := engine.AggregateBy(stays, calendar.YearWindow(year), dim, engineOpts)
		if err != nil {
			return nil, err
		}
		groups := make(map[string]engine.Metrics, len(buckets))
		for key, bucket := range buckets {
			groups[key] = engine.Reduce(bucket).Display()
		}
		series[year] = groups
	}
	return series, nil
}

// ChangeStats compares one group's admissions with the previous year.
type ChangeStats struct {
	Year          int      `json:"year"`
	Current       int      `json:"current"`
	Previous      int      `json:"previous"`
	EntriesChange int      `json:"entriesChange"`
	PercentChange *float64 `json:"percentChange"`
}

// Change reports the year-over-year change in entries for group. The
// percentage is nil when the previous year had no entries.
func Change(series YearSeries, year int, group string) ChangeStats {
	current := series[year][group].Entries
	previous := series[year-1][group].Entries
	stats := ChangeStats{
		Year:          year,
		Current:       current,
		Previous:      previous,
		EntriesChange: current - previous,
	}
	if previous > 0 {
		pct := engine.Round(float64(current-previous)/float64(previous)*100, 1)
		stats.PercentChange = &pct
	}
	return stats
}
