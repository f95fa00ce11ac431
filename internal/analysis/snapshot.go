package analysis

import (
	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/category"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

// SnapshotDimensions are the breakdowns shown on the admissions overview.
var SnapshotDimensions = []engine.Dimension{
	engine.Gender,
	engine.Race,
	engine.Ethnicity,
	engine.OffenseCategory,
	engine.RaceEthnicity,
	engine.RaceSimplified,
	engine.Facility,
	engine.ReferralSource,
	engine.AgeBracket,
	engine.AgeDetail,
}

// Counts maps a split label to an admission count.
type Counts map[string]int

// SnapshotResult is the admissions-only overview for one year.
type SnapshotResult struct {
	Year     int    `json:"year"`
	Overall  Counts `json:"overall"`
	Screened Counts `json:"screened"`
	// ByGroup is dimension, then value, then Pre-dispo/Post-dispo.
	ByGroup map[string]map[string]Counts `json:"byGroup"`
	// ByScreened is dimension, then value, then screened status.
	ByScreened map[string]map[string]Counts `json:"byScreened"`
}

// Snapshot counts the year's admissions across every snapshot dimension,
// split by disposition status and by screening status.
func Snapshot(records []stay.Record, year int, detentionType stay.DetentionType) (SnapshotResult, error) {
	if len(records) == 0 {
		return SnapshotResult{}, ErrNoData
	}
	if year <= 0 {
		return SnapshotResult{}, paramErrorf("Year must be a valid number")
	}
	detentionType, err := validateDetentionType(detentionType)
	if err != nil {
		return SnapshotResult{}, err
	}

	stays := stay.EnrichAll(records, detentionType)
	window := calendar.YearWindow(year)

	dims := append([]engine.Dimension{engine.All}, SnapshotDimensions...)
	byDispo, err := engine.Aggregate(stays, engine.Pass{Window: window, Dimensions: dims, Split: engine.PreDispoFilter})
	if err != nil {
		return SnapshotResult{}, err
	}
	byScreened, err := engine.Aggregate(stays, engine.Pass{Window: window, Dimensions: dims, Split: engine.ScreenedStatus})
	if err != nil {
		return SnapshotResult{}, err
	}

	result := SnapshotResult{
		Year:       year,
		Overall:    admissions(byDispo[engine.All][engine.AllKey], category.DispoLabels),
		Screened:   admissions(byScreened[engine.All][engine.AllKey], category.ScreenedLabels),
		ByGroup:    make(map[string]map[string]Counts, len(SnapshotDimensions)),
		ByScreened: make(map[string]map[string]Counts, len(SnapshotDimensions)),
	}
	for _, dim := range SnapshotDimensions {
		result.ByGroup[string(dim)] = admissionTable(byDispo[dim], category.DispoLabels)
		result.ByScreened[string(dim)] = admissionTable(byScreened[dim], category.ScreenedLabels)
	}
	return result, nil
}

// admissions counts entries per split, always listing the given labels.
func admissions(splits engine.Buckets, labels []string) Counts {
	counts := make(Counts, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	for key, bucket := range splits {
		if bucket.Entries > 0 {
			counts[key] += bucket.Entries
		}
	}
	return counts
}

// admissionTable drops values with no admissions in the year.
func admissionTable(table engine.Table, labels []string) map[string]Counts {
	out := make(map[string]Counts, len(table))
	for value, splits := range table {
		if splits.TotalEntries() == 0 {
			continue
		}
		out[value] = admissions(splits, labels)
	}
	return out
}
