// Package analysis holds the entry points the dashboard calls: single-metric
// breakdowns, per-year time series, the admissions snapshot, the named
// offense wrappers and ATD exit disruption rates. Every function is a pure
// function of its arguments.
package analysis

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/category"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

// Options carries the unreleased-stay policy for one call.
type Options struct {
	// IncludeUnreleased treats stays without an exit date as exiting on
	// DatasetEnd, for both ADP and length of stay.
	IncludeUnreleased bool
	// DatasetEnd is the declared end of the export. When zero, the latest
	// entry or exit date in the data is used.
	DatasetEnd time.Time
}

// DefaultOptions matches the dashboard's reference behavior.
func DefaultOptions() Options {
	return Options{IncludeUnreleased: true}
}

// Request is a single-metric breakdown for one year.
type Request struct {
	Calculation   string
	Year          int
	GroupBy       string
	DetentionType stay.DetentionType
	Round         bool
	Sort          string
	Options       Options
}

// ParseYear validates a year parameter given as text.
func ParseYear(value string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || year <= 0 {
		return 0, paramErrorf("Year must be a valid number")
	}
	return year, nil
}

func validDimensionNames() string {
	return strings.Join(lo.Map(engine.Dimensions(), func(d engine.Dimension, _ int) string {
		return string(d)
	}), ", ")
}

func validCalculationNames() string {
	return strings.Join(lo.Map(engine.Calculations, func(c engine.Calculation, _ int) string {
		return string(c)
	}), ", ")
}

func parseGroupBy(value string) (engine.Dimension, error) {
	dim, err := engine.ParseDimension(value)
	if err != nil {
		return "", paramErrorf("Invalid groupBy. Must be one of: %s or null", validDimensionNames())
	}
	return dim, nil
}

func validateDetentionType(detentionType stay.DetentionType) (stay.DetentionType, error) {
	parsed, err := stay.ParseDetentionType(string(detentionType))
	if err != nil {
		return "", paramErrorf("Invalid detention type. Must be one of: %s, %s", stay.SecureDetention, stay.AlternativeToDetention)
	}
	return parsed, nil
}

// engineOptions resolves the unreleased-stay end date for the stays.
func engineOptions(stays []stay.Stay, opts Options) engine.Options {
	out := engine.Options{IncludeUnreleased: opts.IncludeUnreleased, AsOf: opts.DatasetEnd}
	if out.IncludeUnreleased && out.AsOf.IsZero() {
		out.AsOf = LatestDate(stays)
	}
	return out
}

// LatestDate is the latest entry or exit date among stays.
func LatestDate(stays []stay.Stay) time.Time {
	var latest time.Time
	for _, s := range stays {
		if s.Entry.After(latest) {
			latest = s.Entry
		}
		if s.Exit.After(latest) {
			latest = s.Exit
		}
	}
	return latest
}

// Analyze computes one metric for one year, broken down by GroupBy.
func Analyze(records []stay.Record, req Request) (Values, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	if strings.TrimSpace(req.Calculation) == "" || req.Year == 0 {
		return nil, paramErrorf("Calculation type and year are required")
	}
	calc, err := engine.ParseCalculation(req.Calculation)
	if err != nil {
		return nil, paramErrorf("Invalid calculation type. Must be one of: %s", validCalculationNames())
	}
	if req.Year < 0 {
		return nil, paramErrorf("Year must be a valid number")
	}
	dim, err := parseGroupBy(req.GroupBy)
	if err != nil {
		return nil, err
	}
	detentionType, err := validateDetentionType(req.DetentionType)
	if err != nil {
		return nil, err
	}
	order, err := parseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	stays := stay.EnrichAll(records, detentionType)
	buckets, err := engine.AggregateBy(stays, calendar.YearWindow(req.Year), dim, engineOptions(stays, req.Options))
	if err != nil {
		return nil, paramErrorf("Invalid groupBy. Must be one of: %s or null", validDimensionNames())
	}

	keys := lo.Keys(buckets)
	sort.Strings(keys)
	values := make(Values, 0, len(keys))
	for _, key := range keys {
		value := engine.Reduce(buckets[key]).Value(calc)
		if req.Round {
			value = engine.RoundPtr(value, 2)
		}
		values = append(values, Entry{Key: key, Value: value})
	}
	if order != SortNone {
		sortValues(values, order)
	}
	return values, nil
}

// withLabels returns exactly the required labels, in order, filling
// missing ones with null. Groups outside the label set are dropped. A
// requested sort is applied afterwards.
func withLabels(values Values, labels []string, order string) Values {
	out := make(Values, 0, len(labels))
	for _, label := range labels {
		value, _ := values.Get(label)
		out = append(out, Entry{Key: label, Value: value})
	}
	if order, err := parseSort(order); err == nil && order != SortNone {
		sortValues(out, order)
	}
	return out
}

// OffenseCategories breaks a metric down by simplified offense. The result
// holds Technicals, Misdemeanors, Felonies and Other only; Status Offense
// stays are left out.
func OffenseCategories(records []stay.Record, req Request) (Values, error) {
	req.GroupBy = string(engine.SimplifiedOffense)
	values, err := Analyze(records, req)
	if err != nil {
		return nil, err
	}
	return withLabels(values, category.SimplifiedOffenseLabels, req.Sort), nil
}

// ReasonForDetention breaks a metric down by reason for detention. The
// result holds New Offenses, Technicals and Other only; verbatim post-dispo
// reasons are left out.
func ReasonForDetention(records []stay.Record, req Request) (Values, error) {
	req.GroupBy = string(engine.OffenseOverall)
	values, err := Analyze(records, req)
	if err != nil {
		return nil, err
	}
	return withLabels(values, category.ReasonLabels, req.Sort), nil
}

// IsParamError reports whether err is an invalid-parameter error.
func IsParamError(err error) bool {
	var pe *ParamError
	return errors.As(err, &pe)
}
