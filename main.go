package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"detention-stay-report/internal/analysis"
	"detention-stay-report/internal/calendar"
	"detention-stay-report/internal/stay"
)

const (
	modeAnalyze    = "analyze"
	modeByYear     = "by-year"
	modeSnapshot   = "snapshot"
	modeOffense    = "offense"
	modeReason     = "reason"
	modeDisruption = "disruption"

	defaultCalculation = "countAdmissions"
)

var modes = []string{modeAnalyze, modeByYear, modeSnapshot, modeOffense, modeReason, modeDisruption}

type Config struct {
	InputPath     string
	Mode          string
	Calculation   string
	Year          int
	GroupBy       string
	DetentionType stay.DetentionType
	Round         bool
	Sort          string
	Unreleased    bool
	DatasetEnd    time.Time
	JSONOut       string
	CSVOut        string
	MetricsFile   string
	SQLitePath    string
	DBEnabled     bool
	InitDB        bool
	DB            DBConfig
}

type DBConfig struct {
	URL    string
	Schema string
	Tag    string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitWithError(fmt.Errorf("load .env: %w", err))
	}

	inputPath := flag.String("input", "", "Path or s3:// URL of the stay CSV export")
	mode := flag.String("mode", modeAnalyze, "Analysis mode ("+strings.Join(modes, ", ")+")")
	calc := flag.String("calc", defaultCalculation, "Calculation (countAdmissions, countReleases, averageLengthOfStay, medianLengthOfStay, averageDailyPopulation)")
	year := flag.String("year", "", "Year to analyze; default latest year in the data")
	groupBy := flag.String("group-by", "", "Grouping dimension, e.g. Gender, RaceEthnicity, AgeBracket")
	detentionType := flag.String("detention-type", string(stay.SecureDetention), "secure-detention or alternative-to-detention")
	round := flag.Bool("round", false, "Round values to two decimals")
	sortOrder := flag.String("sort", "", "Sort groups by value (asc, desc)")
	unreleased := flag.Bool("unreleased", true, "Treat stays without an exit date as exiting on the dataset end date")
	datasetEnd := flag.String("dataset-end", "", "Dataset end date (YYYY-MM-DD); default from the input file name")
	jsonOut := flag.String("json", "", "Optional JSON output path or s3:// URL")
	csvOut := flag.String("csv", "", "Optional CSV output path or s3:// URL for result rows")
	metricsFile := flag.String("metrics-file", "", "Optional Prometheus textfile output path")
	sqlitePath := flag.String("sqlite", "", "Store the run in a SQLite database at this path")
	dbEnabled := flag.Bool("db", false, "Store the run in Postgres (requires STAY_REPORT_DB_URL or DATABASE_URL)")
	dbSchema := flag.String("db-schema", "stay_report", "Postgres schema for run tables")
	dbTag := flag.String("db-tag", "", "Optional label for this run")
	initDB := flag.Bool("init-db", false, "Initialize database schema and store this run only if no runs exist")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	configureLogging(*logLevel)

	cfg, err := buildConfig(*inputPath, *mode, *calc, *year, *groupBy, *detentionType, *sortOrder, *datasetEnd)
	if err != nil {
		exitWithError(err)
	}
	cfg.Round = *round
	cfg.Unreleased = *unreleased
	cfg.JSONOut = *jsonOut
	cfg.CSVOut = *csvOut
	cfg.MetricsFile = *metricsFile
	cfg.SQLitePath = *sqlitePath
	cfg.DBEnabled = *dbEnabled
	cfg.InitDB = *initDB
	cfg.DB = DBConfig{URL: dbURLFromEnv(), Schema: *dbSchema, Tag: *dbTag}

	ctx := context.Background()
	metrics := newRunMetrics()
	started := time.Now()

	report, err := run(ctx, cfg)
	metrics.observe(report, time.Since(started), err)
	if cfg.MetricsFile != "" {
		if werr := metrics.write(cfg.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.MetricsFile).Msg("unable to write metrics file")
		}
	}
	if err != nil {
		if _, ok := report.Result.(analysis.ErrorResult); ok && cfg.JSONOut != "" {
			if werr := writeJSON(ctx, report, cfg.JSONOut); werr != nil {
				log.Warn().Err(werr).Str("path", cfg.JSONOut).Msg("unable to write error result")
			}
		}
		exitWithError(err)
	}

	printReport(report)

	if cfg.JSONOut != "" {
		if err := writeJSON(ctx, report, cfg.JSONOut); err != nil {
			exitWithError(err)
		}
		fmt.Printf("\nJSON report saved to %s\n", cfg.JSONOut)
	}

	if cfg.CSVOut != "" {
		if err := writeResultsCSV(ctx, report, cfg.CSVOut); err != nil {
			exitWithError(err)
		}
		fmt.Printf("Result CSV saved to %s\n", cfg.CSVOut)
	}

	if err := persistRun(ctx, report, cfg); err != nil {
		exitWithError(err)
	}
}

func buildConfig(inputPath, mode, calc, year, groupBy, detentionType, sortOrder, datasetEnd string) (Config, error) {
	cfg := Config{
		InputPath:   strings.TrimSpace(inputPath),
		Mode:        strings.ToLower(strings.TrimSpace(mode)),
		Calculation: strings.TrimSpace(calc),
		GroupBy:     strings.TrimSpace(groupBy),
		Sort:        strings.TrimSpace(sortOrder),
	}
	if cfg.InputPath == "" {
		return cfg, errors.New("--input is required")
	}
	if !isMode(cfg.Mode) {
		return cfg, fmt.Errorf("invalid --mode value: %s", mode)
	}
	dt, err := stay.ParseDetentionType(detentionType)
	if err != nil {
		return cfg, err
	}
	cfg.DetentionType = dt
	if strings.TrimSpace(year) != "" {
		parsed, err := analysis.ParseYear(year)
		if err != nil {
			return cfg, fmt.Errorf("invalid --year: %w", err)
		}
		cfg.Year = parsed
	}
	if strings.TrimSpace(datasetEnd) != "" {
		parsed, err := calendar.ParseDate(datasetEnd)
		if err != nil {
			return cfg, fmt.Errorf("invalid --dataset-end date: %w", err)
		}
		cfg.DatasetEnd = parsed
	}
	return cfg, nil
}

func isMode(value string) bool {
	for _, mode := range modes {
		if mode == value {
			return true
		}
	}
	return false
}

func configureLogging(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("STAY_REPORT_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
