package analysis

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/category"
	"detention-stay-report/internal/engine"
	"detention-stay-report/internal/stay"
)

func sampleRecords() []stay.Record {
	return []stay.Record{
		{AdmissionDate: "2024-01-01", ReleaseDate: "2024-01-10", DateOfBirth: "2010-01-01", Gender: "Male", Race: "White", Ethnicity: "Non Hispanic", OffenseCategory: "Felony Person", ScreenedStatus: "Screened"},
		{AdmissionDate: "2024-02-01", ReleaseDate: "2024-02-05", DateOfBirth: "2008-06-01", Gender: "Female", Race: "Black", OffenseCategory: "Misdemeanor Property", ScreenedStatus: "Not Screened"},
		{AdmissionDate: "2024-03-01", ReleaseDate: "2024-03-07", DateOfBirth: "2009-06-01", Gender: "Male", Race: "White", Ethnicity: "Hispanic", OffenseCategory: "Warrant", PostDispoStayReason: "Awaiting Placement", ScreenedStatus: "Auto Hold"},
		{AdmissionDate: "2023-11-15", ReleaseDate: "2024-01-15", Gender: "Female", OffenseCategory: "Probation Violation"},
		{AdmissionDate: "2024-06-01", Gender: "Male", OffenseCategory: "Status Offense"},
	}
}

func TestAnalyzeCountsAndErrors(t *testing.T) {
	records := sampleRecords()
	values, err := Analyze(records, Request{Calculation: "countAdmissions", Year: 2024, GroupBy: "Gender", DetentionType: stay.SecureDetention})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	male, _ := values.Get("Male")
	female, _ := values.Get("Female")
	if male == nil || *male != 3 || female == nil || *female != 1 {
		t.Fatalf("unexpected admissions %v", values.Map())
	}

	if _, err := Analyze(nil, Request{Calculation: "countAdmissions", Year: 2024}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := Analyze(records, Request{Calculation: "total", Year: 2024}); !IsParamError(err) {
		t.Fatalf("expected param error for calculation, got %v", err)
	}
	if _, err := Analyze(records, Request{Calculation: "countAdmissions", Year: 2024, GroupBy: "Shoe"}); !IsParamError(err) {
		t.Fatalf("expected param error for groupBy, got %v", err)
	}
	if _, err := Analyze(records, Request{Calculation: "countAdmissions"}); !IsParamError(err) {
		t.Fatalf("expected param error for missing year, got %v", err)
	}
	if _, err := ParseYear("twenty"); !IsParamError(err) {
		t.Fatalf("expected param error for year text, got %v", err)
	}
}

func TestAnalyzeLengthOfStayAndSort(t *testing.T) {
	values, err := Analyze(sampleRecords(), Request{
		Calculation:   "averageLengthOfStay",
		Year:          2024,
		GroupBy:       "Gender",
		DetentionType: stay.SecureDetention,
		Sort:          "desc",
		Round:         true,
		Options:       Options{},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// Female: 5 days and 62 days; Male: 10 and 7 days.
	keys := values.Keys()
	if len(keys) != 2 || keys[0] != "Female" || keys[1] != "Male" {
		t.Fatalf("unexpected order %v", keys)
	}
	female, _ := values.Get("Female")
	if *female != 33.5 {
		t.Fatalf("expected Female average 33.5, got %v", *female)
	}
	male, _ := values.Get("Male")
	if *male != 8.5 {
		t.Fatalf("expected Male average 8.5, got %v", *male)
	}
}

func TestAnalyzeADPWithUnreleased(t *testing.T) {
	records := []stay.Record{{AdmissionDate: "2024-06-01"}}
	opts := Options{IncludeUnreleased: true, DatasetEnd: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)}
	values, err := Analyze(records, Request{Calculation: "averageDailyPopulation", Year: 2024, Options: opts})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	adp, _ := values.Get(engine.AllKey)
	if adp == nil || *adp != 214.0/366.0 {
		t.Fatalf("expected ADP 214/366, got %v", adp)
	}
	exits, err := Analyze(records, Request{Calculation: "countReleases", Year: 2024, Options: opts})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if v, _ := exits.Get(engine.AllKey); v == nil || *v != 0 {
		t.Fatalf("unreleased stay must not count as a release, got %v", v)
	}
}

func TestOffenseWrappersAlwaysListCategories(t *testing.T) {
	records := []stay.Record{{AdmissionDate: "2024-01-01", ReleaseDate: "2024-01-02", OffenseCategory: "Felony Drugs"}}
	values, err := OffenseCategories(records, Request{Calculation: "medianLengthOfStay", Year: 2024})
	if err != nil {
		t.Fatalf("offense categories: %v", err)
	}
	for _, label := range category.SimplifiedOffenseLabels {
		if _, ok := values.Get(label); !ok {
			t.Fatalf("missing category %s in %v", label, values.Keys())
		}
	}
	if v, _ := values.Get(category.Felonies); v == nil || *v != 2 {
		t.Fatalf("expected felony median 2, got %v", v)
	}
	if v, _ := values.Get(category.Technicals); v != nil {
		t.Fatalf("expected null for empty category, got %v", *v)
	}

	reasons, err := ReasonForDetention(sampleRecords(), Request{Calculation: "countAdmissions", Year: 2024})
	if err != nil {
		t.Fatalf("reason for detention: %v", err)
	}
	keys := reasons.Keys()
	if len(keys) != 3 || keys[0] != category.NewOffenses || keys[1] != category.Technicals || keys[2] != category.Other {
		t.Fatalf("unexpected reason keys %v", keys)
	}
	if v, _ := reasons.Get(category.NewOffenses); v == nil || *v != 3 {
		t.Fatalf("expected 3 new offense admissions, got %v", v)
	}
}

func TestOffenseWrappersDropGroupsOutsideLabelSet(t *testing.T) {
	records := []stay.Record{
		{AdmissionDate: "2024-04-01", ReleaseDate: "2024-04-03", OffenseCategory: "Status Offense"},
		{AdmissionDate: "2024-05-01", ReleaseDate: "2024-05-09", OffenseCategory: "Felony Person", PostDispoStayReason: "Awaiting Placement"},
	}
	req := Request{Calculation: "countAdmissions", Year: 2024}

	offenses, err := OffenseCategories(records, req)
	if err != nil {
		t.Fatalf("offense categories: %v", err)
	}
	keys := offenses.Keys()
	if len(keys) != len(category.SimplifiedOffenseLabels) {
		t.Fatalf("expected only the offense labels, got %v", keys)
	}
	for i, label := range category.SimplifiedOffenseLabels {
		if keys[i] != label {
			t.Fatalf("unexpected offense keys %v", keys)
		}
	}
	if _, ok := offenses.Get(category.StatusOffense); ok {
		t.Fatalf("status offense group must not be listed: %v", keys)
	}
	if v, _ := offenses.Get(category.Felonies); v == nil || *v != 1 {
		t.Fatalf("expected one felony admission, got %v", v)
	}

	reasons, err := ReasonForDetention(records, req)
	if err != nil {
		t.Fatalf("reason for detention: %v", err)
	}
	keys = reasons.Keys()
	if len(keys) != len(category.ReasonLabels) {
		t.Fatalf("expected only the reason labels, got %v", keys)
	}
	if _, ok := reasons.Get("Awaiting Placement"); ok {
		t.Fatalf("post-dispo reason must not be listed: %v", keys)
	}
	if v, _ := reasons.Get(category.NewOffenses); v == nil || *v != 1 {
		t.Fatalf("expected one new offense admission, got %v", v)
	}
	if v, _ := reasons.Get(category.Technicals); v != nil {
		t.Fatalf("expected null technicals, got %v", *v)
	}
}

func TestValuesMarshalInOrder(t *testing.T) {
	one := 1.5
	data, err := json.Marshal(Values{{Key: "b", Value: &one}, {Key: "a"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"b":1.5,"a":null}` {
		t.Fatalf("unexpected json %s", data)
	}
	resp, err := json.Marshal(Respond(nil, ErrNoData))
	if err != nil {
		t.Fatalf("marshal error result: %v", err)
	}
	if string(resp) != `{"error":"No data provided or invalid data format"}` {
		t.Fatalf("unexpected error json %s", resp)
	}
}

func TestAnalyzeByYear(t *testing.T) {
	series, err := AnalyzeByYear(sampleRecords(), ByYearRequest{
		DetentionType: stay.SecureDetention,
		Breakdown:     "PreDispoFilter",
		Options:       Options{IncludeUnreleased: true, DatasetEnd: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("by year: %v", err)
	}
	years := series.SortedYears()
	if len(years) != 2 || years[0] != 2023 || years[1] != 2024 {
		t.Fatalf("unexpected years %v", years)
	}
	pre := series[2024][category.PreDispo]
	if pre.Entries != 3 || pre.Exits != 3 {
		t.Fatalf("unexpected 2024 pre-dispo metrics %+v", pre)
	}
	if series[2023][category.PreDispo].Entries != 1 {
		t.Fatalf("expected one 2023 admission")
	}
	if series[2024][category.PostDispo].Entries != 1 {
		t.Fatalf("expected one post-dispo admission in 2024")
	}

	bounded, err := AnalyzeByYear(sampleRecords(), ByYearRequest{
		Bound: calendar.Range{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("bounded by year: %v", err)
	}
	if _, ok := bounded[2023]; ok || len(bounded) != 1 {
		t.Fatalf("expected bound to limit years, got %v", bounded.SortedYears())
	}

	change := Change(series, 2024, category.PreDispo)
	if change.EntriesChange != 2 || change.PercentChange == nil || *change.PercentChange != 200 {
		t.Fatalf("unexpected change %+v", change)
	}
}

func TestAnalyzeByYearCoversOpenStayThroughDatasetEnd(t *testing.T) {
	records := []stay.Record{{AdmissionDate: "2022-06-01", Gender: "Male"}}
	series, err := AnalyzeByYear(records, ByYearRequest{
		Options: Options{IncludeUnreleased: true, DatasetEnd: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("by year: %v", err)
	}
	years := series.SortedYears()
	if len(years) != 3 || years[0] != 2022 || years[2] != 2024 {
		t.Fatalf("expected 2022 through 2024, got %v", years)
	}
	mid := series[2023][engine.AllKey]
	if mid.AverageDailyPopulation == nil || *mid.AverageDailyPopulation != 1 {
		t.Fatalf("expected full-year population in 2023, got %+v", mid)
	}
	if series[2024][engine.AllKey].Exits != 0 {
		t.Fatalf("open stay must not count as an exit")
	}

	closed, err := AnalyzeByYear(records, ByYearRequest{Options: Options{DatasetEnd: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)}})
	if err != nil {
		t.Fatalf("by year without unreleased stays: %v", err)
	}
	if years := closed.SortedYears(); len(years) != 1 || years[0] != 2022 {
		t.Fatalf("expected only the entry year, got %v", years)
	}
}

func TestSnapshot(t *testing.T) {
	result, err := Snapshot(sampleRecords(), 2024, stay.SecureDetention)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if result.Overall[category.PreDispo] != 3 || result.Overall[category.PostDispo] != 1 {
		t.Fatalf("unexpected overall %v", result.Overall)
	}
	if result.Screened[category.Screened] != 1 || result.Screened[category.AutoHold] != 1 || result.Screened[category.Unknown] != 1 {
		t.Fatalf("unexpected screened %v", result.Screened)
	}
	male := result.ByGroup[string(engine.Gender)]["Male"]
	if male[category.PreDispo] != 2 || male[category.PostDispo] != 1 {
		t.Fatalf("unexpected male split %v", male)
	}
	if _, ok := result.ByGroup[string(engine.Gender)]["Female"]; !ok {
		t.Fatalf("expected Female group")
	}
	if got := result.ByGroup[string(engine.AgeBracket)][category.AgeFourteenToSeventeen][category.PreDispo]; got != 2 {
		t.Fatalf("expected two 14-17 pre-dispo admissions, got %d", got)
	}
	for dim, values := range result.ByGroup {
		total := 0
		for _, counts := range values {
			total += counts[category.PreDispo] + counts[category.PostDispo]
		}
		if total != 4 {
			t.Fatalf("dimension %s sums to %d admissions, want 4", dim, total)
		}
	}
}

func TestDisruptions(t *testing.T) {
	records := []stay.Record{
		{ATDEntryDate: "2024-01-01", ATDExitDate: "2024-02-01", ATDSuccessfulExit: "1", Gender: "Male"},
		{ATDEntryDate: "2024-01-05", ATDExitDate: "2024-03-01", ATDSuccessfulExit: "0", ATDExitFTA: "1", Gender: "Male"},
		{ATDEntryDate: "2024-01-05", Gender: "Female"},
	}
	series, err := Disruptions(records, "Gender")
	if err != nil {
		t.Fatalf("disruptions: %v", err)
	}
	male := series[2024]["Male"]
	if male == nil || male.Total != 2 || male.Disrupted != 1 || male.Undisrupted != 1 {
		t.Fatalf("unexpected male stats %+v", male)
	}
	if *male.PercentDisrupted != 50 || male.ByType[category.DisruptionFTA] != 1 {
		t.Fatalf("unexpected disruption detail %+v", male)
	}
	if _, ok := series[2024]["Female"]; ok {
		t.Fatalf("open ATD stays are not exits")
	}
}
