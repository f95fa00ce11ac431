package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"detention-stay-report/internal/stay"
)

// columnAliases lists extra header spellings seen in older exports.
var columnAliases = map[string][]string{
	stay.ColAdmissionDate:       {"admit_date", "admission"},
	stay.ColReleaseDate:         {"release", "discharge_date"},
	stay.ColDateOfBirth:         {"dob", "birth_date"},
	stay.ColGender:              {"sex"},
	stay.ColATDProgramName:      {"atd_program_type", "program_name", "program_type"},
	stay.ColScreened:            {"screened_status", "screening_status", "screened"},
	stay.ColPostDispoStayReason: {"post_dispo_reason", "postdispo_stay_reason"},
}

// LoadResult is the parsed export plus row accounting.
type LoadResult struct {
	Records     []stay.Record
	TotalRows   int
	InvalidRows int
	Columns     []string
}

// loadRecords reads a stay export. Rows are kept even without dates; rows
// with no usable entry date for the detention type are counted as invalid.
func loadRecords(r io.Reader, detentionType stay.DetentionType) (LoadResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return LoadResult{}, errors.New("input is empty")
		}
		return LoadResult{}, fmt.Errorf("unable to read header: %w", err)
	}

	colMap := normalizeHeaders(headers)
	indexes := make(map[string]int, len(stay.Columns))
	result := LoadResult{}
	for _, col := range stay.Columns {
		idx, ok := findColumn(colMap, append([]string{col}, columnAliases[col]...))
		if !ok {
			continue
		}
		indexes[col] = idx
		result.Columns = append(result.Columns, col)
	}
	entryCol, _ := stay.DateColumns(detentionType)
	if _, ok := indexes[entryCol]; !ok {
		return LoadResult{}, fmt.Errorf("missing %s column", entryCol)
	}

	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return LoadResult{}, fmt.Errorf("unable to read CSV: %w", err)
		}
		if len(row) == 0 || blankRow(row) {
			continue
		}
		result.TotalRows++

		values := make(map[string]string, len(indexes))
		for col, idx := range indexes {
			values[col] = getValue(row, idx)
		}
		record := stay.FromRow(values)
		if !stay.Enrich(&record, detentionType).HasEntry() {
			result.InvalidRows++
		}
		result.Records = append(result.Records, record)
	}

	log.Debug().
		Int("rows", result.TotalRows).
		Int("invalid", result.InvalidRows).
		Strs("columns", result.Columns).
		Msg("loaded stay export")
	return result, nil
}

func blankRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func normalizeHeaders(headers []string) map[string]int {
	result := make(map[string]int, len(headers))
	for idx, header := range headers {
		normalized := normalizeHeader(header)
		if _, exists := result[normalized]; !exists {
			result[normalized] = idx
		}
	}
	return result
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(value, "\ufeff")))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

func findColumn(headers map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headers[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return -1, false
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
