package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"detention-stay-report/internal/analysis"
	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

const metricAdmissions = "admissions"

type Report struct {
	RunAt             string      `json:"run_at"`
	Input             string      `json:"input"`
	Mode              string      `json:"mode"`
	DetentionType     string      `json:"detention_type"`
	Year              int         `json:"year,omitempty"`
	Calculation       string      `json:"calculation,omitempty"`
	GroupBy           string      `json:"group_by,omitempty"`
	TotalRows         int         `json:"total_rows"`
	InvalidRows       int         `json:"invalid_rows"`
	DatasetStart      string      `json:"dataset_start,omitempty"`
	DatasetEnd        string      `json:"dataset_end,omitempty"`
	IncludeUnreleased bool        `json:"include_unreleased"`
	Result            any         `json:"result"`
	Rows              []ResultRow `json:"-"`
}

// ResultRow is one value of a result, flattened for storage and CSV.
type ResultRow struct {
	Period    int
	Dimension string
	GroupKey  string
	Split     string
	Metric    string
	Value     *float64
}

// byYearResult pairs the series with each group's change in the last year.
type byYearResult struct {
	Series  analysis.YearSeries             `json:"series"`
	Changes map[string]analysis.ChangeStats `json:"changes,omitempty"`
}

func run(ctx context.Context, cfg Config) (Report, error) {
	report := Report{
		RunAt:             time.Now().UTC().Format(time.RFC3339),
		Input:             inputName(cfg.InputPath),
		Mode:              cfg.Mode,
		DetentionType:     string(cfg.DetentionType),
		IncludeUnreleased: cfg.Unreleased,
	}
	if cfg.Mode == modeDisruption {
		report.DetentionType = string(stay.AlternativeToDetention)
	}

	input, err := openInput(ctx, cfg.InputPath)
	if err != nil {
		return report, err
	}
	defer input.Close()

	loaded, err := loadRecords(input, stay.DetentionType(report.DetentionType))
	if err != nil {
		return report, err
	}
	report.TotalRows = loaded.TotalRows
	report.InvalidRows = loaded.InvalidRows

	bound, ok := calendar.ParseFileRange(report.Input)
	if ok {
		report.DatasetStart = calendar.FormatDate(bound.Start)
	}
	opts := analysis.Options{IncludeUnreleased: cfg.Unreleased, DatasetEnd: cfg.DatasetEnd}
	if opts.DatasetEnd.IsZero() {
		opts.DatasetEnd = bound.End
	}
	report.DatasetEnd = calendar.FormatDate(opts.DatasetEnd)

	result, rows, err := runMode(loaded.Records, cfg, bound, opts, &report)
	report.Result = analysis.Respond(result, err)
	report.Rows = rows
	if err != nil {
		return report, err
	}
	log.Info().
		Str("mode", report.Mode).
		Str("detention_type", report.DetentionType).
		Int("year", report.Year).
		Int("rows", report.TotalRows).
		Int("result_rows", len(rows)).
		Msg("analysis complete")
	return report, nil
}

func runMode(records []stay.Record, cfg Config, bound calendar.Range, opts analysis.Options, report *Report) (any, []ResultRow, error) {
	switch cfg.Mode {
	case modeByYear:
		report.GroupBy = dimensionName(cfg.GroupBy)
		series, err := analysis.AnalyzeByYear(records, analysis.ByYearRequest{
			DetentionType: cfg.DetentionType,
			Breakdown:     cfg.GroupBy,
			Bound:         bound,
			Options:       opts,
		})
		if err != nil {
			return nil, nil, err
		}
		result := byYearResult{Series: series, Changes: latestChanges(series)}
		return result, flattenSeries(series, dimensionName(cfg.GroupBy)), nil
	case modeDisruption:
		report.GroupBy = dimensionName(cfg.GroupBy)
		series, err := analysis.Disruptions(records, cfg.GroupBy)
		if err != nil {
			return nil, nil, err
		}
		return series, flattenDisruptions(series, dimensionName(cfg.GroupBy)), nil
	}

	year := cfg.Year
	if year == 0 {
		year = latestYear(records, cfg.DetentionType)
	}
	report.Year = year

	if cfg.Mode == modeSnapshot {
		snapshot, err := analysis.Snapshot(records, year, cfg.DetentionType)
		if err != nil {
			return nil, nil, err
		}
		return snapshot, flattenSnapshot(snapshot), nil
	}

	report.Calculation = cfg.Calculation
	req := analysis.Request{
		Calculation:   cfg.Calculation,
		Year:          year,
		GroupBy:       cfg.GroupBy,
		DetentionType: cfg.DetentionType,
		Round:         cfg.Round,
		Sort:          cfg.Sort,
		Options:       opts,
	}
	var (
		values    analysis.Values
		err       error
		dimension = dimensionName(cfg.GroupBy)
	)
	switch cfg.Mode {
	case modeOffense:
		dimension = string(engine.SimplifiedOffense)
		values, err = analysis.OffenseCategories(records, req)
	case modeReason:
		dimension = string(engine.OffenseOverall)
		values, err = analysis.ReasonForDetention(records, req)
	default:
		values, err = analysis.Analyze(records, req)
	}
	if err != nil {
		return nil, nil, err
	}
	report.GroupBy = dimension
	return values, flattenValues(values, year, dimension, cfg.Calculation), nil
}

// latestYear is the year of the latest entry or exit date, or zero.
func latestYear(records []stay.Record, detentionType stay.DetentionType) int {
	latest := analysis.LatestDate(stay.EnrichAll(records, detentionType))
	if latest.IsZero() {
		return 0
	}
	return latest.Year()
}

func dimensionName(groupBy string) string {
	dim, err := engine.ParseDimension(groupBy)
	if err != nil {
		return groupBy
	}
	return string(dim)
}

// latestChanges compares every group of the last year with the year before.
func latestChanges(series analysis.YearSeries) map[string]analysis.ChangeStats {
	years := series.SortedYears()
	if len(years) < 2 {
		return nil
	}
	last := years[len(years)-1]
	changes := make(map[string]analysis.ChangeStats, len(series[last]))
	for group := range series[last] {
		changes[group] = analysis.Change(series, last, group)
	}
	return changes
}

func count(value int) *float64 {
	v := float64(value)
	return &v
}

func flattenValues(values analysis.Values, year int, dimension, calc string) []ResultRow {
	return lo.Map(values, func(entry analysis.Entry, _ int) ResultRow {
		return ResultRow{Period: year, Dimension: dimension, GroupKey: entry.Key, Metric: calc, Value: entry.Value}
	})
}

func flattenSeries(series analysis.YearSeries, dimension string) []ResultRow {
	var rows []ResultRow
	for _, year := range series.SortedYears() {
		groups := lo.Keys(series[year])
		sort.Strings(groups)
		for _, group := range groups {
			metrics := series[year][group]
			for _, calc := range engine.Calculations {
				rows = append(rows, ResultRow{
					Period:    year,
					Dimension: dimension,
					GroupKey:  group,
					Metric:    string(calc),
					Value:     metrics.Value(calc),
				})
			}
		}
	}
	return rows
}

func flattenCounts(rows []ResultRow, year int, dimension, group string, counts analysis.Counts) []ResultRow {
	splits := lo.Keys(counts)
	sort.Strings(splits)
	for _, split := range splits {
		rows = append(rows, ResultRow{
			Period:    year,
			Dimension: dimension,
			GroupKey:  group,
			Split:     split,
			Metric:    metricAdmissions,
			Value:     count(counts[split]),
		})
	}
	return rows
}

func flattenSnapshot(snapshot analysis.SnapshotResult) []ResultRow {
	all := string(engine.All)
	rows := flattenCounts(nil, snapshot.Year, all, engine.AllKey, snapshot.Overall)
	rows = flattenCounts(rows, snapshot.Year, all, engine.AllKey, snapshot.Screened)
	for _, tables := range []map[string]map[string]analysis.Counts{snapshot.ByGroup, snapshot.ByScreened} {
		dims := lo.Keys(tables)
		sort.Strings(dims)
		for _, dim := range dims {
			groups := lo.Keys(tables[dim])
			sort.Strings(groups)
			for _, group := range groups {
				rows = flattenCounts(rows, snapshot.Year, dim, group, tables[dim][group])
			}
		}
	}
	return rows
}

func flattenDisruptions(series analysis.DisruptionSeries, dimension string) []ResultRow {
	years := lo.Keys(series)
	sort.Ints(years)
	var rows []ResultRow
	for _, year := range years {
		groups := lo.Keys(series[year])
		sort.Strings(groups)
		for _, group := range groups {
			stats := series[year][group]
			row := func(split, metric string, value *float64) ResultRow {
				return ResultRow{Period: year, Dimension: dimension, GroupKey: group, Split: split, Metric: metric, Value: value}
			}
			rows = append(rows,
				row("", "exits", count(stats.Total)),
				row("", "disrupted", count(stats.Disrupted)),
				row("", "undisrupted", count(stats.Undisrupted)),
				row("", "percentDisrupted", stats.PercentDisrupted),
				row("", "percentUndisrupted", stats.PercentUndisrupted),
			)
			kinds := lo.Keys(stats.ByType)
			sort.Strings(kinds)
			for _, kind := range kinds {
				rows = append(rows, row(kind, "disruptions", count(stats.ByType[kind])))
			}
		}
	}
	return rows
}

func formatValue(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func orPlaceholder(value string) string {
	if value == "" {
		return "?"
	}
	return value
}

func printReport(report Report) {
	fmt.Println("Detention Stay Report")
	fmt.Println(strings.Repeat("=", 38))
	fmt.Printf("Input: %s\n", report.Input)
	fmt.Printf("Mode: %s | Detention type: %s\n", report.Mode, report.DetentionType)
	if report.Year > 0 {
		fmt.Printf("Year: %d\n", report.Year)
	}
	if report.Calculation != "" {
		fmt.Printf("Calculation: %s\n", report.Calculation)
	}
	if report.GroupBy != "" {
		fmt.Printf("Group by: %s\n", report.GroupBy)
	}
	if report.DatasetStart != "" || report.DatasetEnd != "" {
		fmt.Printf("Dataset: %s to %s\n", orPlaceholder(report.DatasetStart), orPlaceholder(report.DatasetEnd))
	}
	fmt.Printf("Stays: %d\n", report.TotalRows)
	if report.InvalidRows > 0 {
		fmt.Printf("Stays without an entry date: %d\n", report.InvalidRows)
	}

	fmt.Println("\nResults")
	fmt.Println(strings.Repeat("-", 38))
	if len(report.Rows) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, row := range report.Rows {
		label := row.GroupKey
		if row.Split != "" {
			label += " / " + row.Split
		}
		if row.Period > 0 {
			fmt.Printf("%d | %s | %s | %s: %s\n", row.Period, row.Dimension, label, row.Metric, formatValue(row.Value))
			continue
		}
		fmt.Printf("%s | %s | %s: %s\n", row.Dimension, label, row.Metric, formatValue(row.Value))
	}
}

func writeJSON(ctx context.Context, report Report, location string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(ctx, location, data, "application/json")
}

// writeResultsCSV exports the flattened result rows.
func writeResultsCSV(ctx context.Context, report Report, location string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"period", "dimension", "group", "split", "metric", "value"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		value := ""
		if row.Value != nil {
			value = strconv.FormatFloat(*row.Value, 'f', -1, 64)
		}
		record := []string{
			strconv.Itoa(row.Period),
			row.Dimension,
			row.GroupKey,
			row.Split,
			row.Metric,
			value,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return writeOutput(ctx, location, buf.Bytes(), "text/csv")
}
