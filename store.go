package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"detention-stay-report/internal/calendar"
)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// runStore is one database a report run is written to.
type runStore struct {
	Name   string
	Driver string
	DSN    string
	// Schema qualifies table names. SQLite stores have none.
	Schema string
	Tag    string
}

// runStores resolves the databases selected by the flags.
func runStores(cfg Config) ([]runStore, error) {
	var stores []runStore
	if cfg.DBEnabled || cfg.InitDB {
		if cfg.DB.URL == "" {
			return nil, errors.New("database URL missing; set STAY_REPORT_DB_URL or DATABASE_URL")
		}
		schema, err := sanitizeSchema(cfg.DB.Schema)
		if err != nil {
			return nil, err
		}
		stores = append(stores, runStore{Name: "Postgres", Driver: driverPostgres, DSN: cfg.DB.URL, Schema: schema, Tag: cfg.DB.Tag})
	}
	if cfg.SQLitePath != "" {
		stores = append(stores, runStore{Name: "SQLite", Driver: driverSQLite, DSN: cfg.SQLitePath, Tag: cfg.DB.Tag})
	}
	return stores, nil
}

// persistRun writes the report to every selected database. With --init-db
// a store only receives the run when it holds no runs yet.
func persistRun(ctx context.Context, report Report, cfg Config) error {
	stores, err := runStores(cfg)
	if err != nil {
		return err
	}
	for _, store := range stores {
		var runID string
		if cfg.InitDB {
			runID, err = seedDatabase(ctx, report, store)
			if err != nil {
				return fmt.Errorf("%s: %w", store.Name, err)
			}
			if runID != "" {
				fmt.Printf("\nSeeded %s with initial report run (run_id=%s)\n", store.Name, runID)
			}
			continue
		}
		runID, err = storeReportInDB(ctx, report, store)
		if err != nil {
			return fmt.Errorf("%s: %w", store.Name, err)
		}
		fmt.Printf("\nStored report run in %s (run_id=%s)\n", store.Name, runID)
	}
	return nil
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaPattern.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

func (s runStore) table(name string) string {
	if s.Schema == "" {
		return name
	}
	return s.Schema + "." + name
}

func (s runStore) indexName(name string) string {
	if s.Schema == "" {
		return name
	}
	return s.Schema + "_" + name
}

func (s runStore) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.Driver == driverPostgres {
			parts[i] = "$" + strconv.Itoa(i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ",")
}

func (s runStore) open(ctx context.Context) (*sql.DB, error) {
	if s.Driver == driverSQLite {
		if dir := filepath.Dir(s.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	}
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db, s); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func seedDatabase(ctx context.Context, report Report, store runStore) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	db, err := store.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, store.table("stay_report_runs"))).Scan(&count); err != nil {
		return "", err
	}
	if count > 0 {
		fmt.Printf("Report runs already present in %s; skipping seed.\n", store.Name)
		return "", nil
	}
	return storeReportTx(ctx, db, report, store)
}

func storeReportInDB(ctx context.Context, report Report, store runStore) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	db, err := store.open(ctx)
	if err != nil {
		return "", err
	}
	defer db.Close()

	return storeReportTx(ctx, db, report, store)
}

func storeReportTx(ctx context.Context, db *sql.DB, report Report, store runStore) (string, error) {
	runID := uuid.New()
	runAt, err := time.Parse(time.RFC3339, report.RunAt)
	if err != nil {
		return "", fmt.Errorf("invalid run time: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, run_at, input_name, mode, detention_type, year,
			calculation, group_by, total_rows, invalid_rows, dataset_start,
			dataset_end, include_unreleased, result_rows, run_tag
		) VALUES (%s)`, store.table("stay_report_runs"), store.placeholders(15)),
		runID.String(),
		runAt.UTC(),
		report.Input,
		report.Mode,
		report.DetentionType,
		nullInt(report.Year),
		nullString(report.Calculation),
		nullString(report.GroupBy),
		report.TotalRows,
		report.InvalidRows,
		nullDate(calendar.ParseOptionalDate(report.DatasetStart)),
		nullDate(calendar.ParseOptionalDate(report.DatasetEnd)),
		report.IncludeUnreleased,
		len(report.Rows),
		nullString(store.Tag),
	)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	insertResultSQL := fmt.Sprintf(`
		INSERT INTO %s (
			id, run_id, period, dimension, group_key, split_key, metric, value
		) VALUES (%s)`, store.table("stay_report_results"), store.placeholders(8))

	for _, row := range report.Rows {
		_, err = tx.ExecContext(ctx, insertResultSQL,
			uuid.New().String(),
			runID.String(),
			nullInt(row.Period),
			row.Dimension,
			row.GroupKey,
			nullString(row.Split),
			row.Metric,
			nullFloat(row.Value),
		)
		if err != nil {
			_ = tx.Rollback()
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	log.Debug().Str("store", store.Name).Str("run_id", runID.String()).Int("rows", len(report.Rows)).Msg("stored report run")
	return runID.String(), nil
}

func ensureSchema(ctx context.Context, db *sql.DB, store runStore) error {
	var statements []string
	if store.Driver == driverPostgres {
		statements = append(statements,
			fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, store.Schema),
			fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			run_at timestamptz NOT NULL,
			input_name text NOT NULL,
			mode text NOT NULL,
			detention_type text NOT NULL,
			year integer,
			calculation text,
			group_by text,
			total_rows integer NOT NULL,
			invalid_rows integer NOT NULL,
			dataset_start date,
			dataset_end date,
			include_unreleased boolean NOT NULL,
			result_rows integer NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, store.table("stay_report_runs")),
			fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			period integer,
			dimension text NOT NULL,
			group_key text NOT NULL,
			split_key text,
			metric text NOT NULL,
			value numeric(14,4),
			created_at timestamptz NOT NULL DEFAULT now()
		)`, store.table("stay_report_results"), store.table("stay_report_runs")),
		)
	} else {
		statements = append(statements,
			fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_at TIMESTAMP NOT NULL,
			input_name TEXT NOT NULL,
			mode TEXT NOT NULL,
			detention_type TEXT NOT NULL,
			year INTEGER,
			calculation TEXT,
			group_by TEXT,
			total_rows INTEGER NOT NULL,
			invalid_rows INTEGER NOT NULL,
			dataset_start DATE,
			dataset_end DATE,
			include_unreleased BOOLEAN NOT NULL,
			result_rows INTEGER NOT NULL,
			run_tag TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, store.table("stay_report_runs")),
			fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			period INTEGER,
			dimension TEXT NOT NULL,
			group_key TEXT NOT NULL,
			split_key TEXT,
			metric TEXT NOT NULL,
			value REAL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, store.table("stay_report_results"), store.table("stay_report_runs")),
		)
	}
	statements = append(statements,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (run_id)`, store.indexName("stay_report_results_run_idx"), store.table("stay_report_results")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (metric, dimension)`, store.indexName("stay_report_results_metric_idx"), store.table("stay_report_results")),
	)

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullInt(value int) sql.NullInt64 {
	if value == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(value), Valid: true}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func nullDate(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: calendar.DateOnly(value), Valid: true}
}
