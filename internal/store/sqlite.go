package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS farms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT,
			area_acres REAL,
			soil_type TEXT,
			irrigation_type TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS farm_crops (
			farm_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			variety TEXT,
			current_stage TEXT,
			planting_date_unix INTEGER,
			harvest_date_unix INTEGER,
			PRIMARY KEY(farm_id, position),
			FOREIGN KEY(farm_id) REFERENCES farms(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS insights (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			device_id TEXT,
			observed_at_unix INTEGER NOT NULL,
			soil_moisture REAL,
			moisture_trend TEXT,
			predicted_moisture_6h REAL,
			irrigation_need TEXT,
			temperature REAL,
			humidity REAL,
			ph REAL,
			ec REAL,
			light_intensity REAL,
			crop_stage TEXT,
			anomaly INTEGER NOT NULL DEFAULT 0,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_insights_farm_time ON insights(farm_id, observed_at_unix DESC);`,
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			sensor_type TEXT NOT NULL,
			sensor_id TEXT,
			sensor_model TEXT,
			value REAL NOT NULL,
			unit TEXT NOT NULL,
			observed_at_unix INTEGER NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_farm_time ON sensor_readings(farm_id, observed_at_unix DESC);`,
		`CREATE TABLE IF NOT EXISTS irrigation_logs (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			started_at_unix INTEGER NOT NULL,
			duration_minutes REAL,
			water_liters REAL,
			method TEXT,
			notes TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_irrigation_logs_farm_time ON irrigation_logs(farm_id, started_at_unix DESC);`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			source TEXT,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_farm_time ON chat_history(farm_id, created_at_unix DESC);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			farm_id TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			data_json TEXT,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_at_unix INTEGER,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_farm_open ON alerts(farm_id, resolved, created_at_unix DESC);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	alterQueries := []string{
		`ALTER TABLE chat_history ADD COLUMN language TEXT NOT NULL DEFAULT 'en';`,
		`ALTER TABLE chat_history ADD COLUMN context_json TEXT;`,
		`ALTER TABLE sensor_readings ADD COLUMN zone TEXT;`,
		`ALTER TABLE farms ADD COLUMN latitude REAL;`,
		`ALTER TABLE farms ADD COLUMN longitude REAL;`,
	}
	for _, query := range alterQueries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			message := strings.ToLower(err.Error())
			if strings.Contains(message, "duplicate column name") || strings.Contains(message, "no such table") {
				continue
			}
			return fmt.Errorf("run migration alter: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// nullFloat stores nil, NaN and Inf as NULL.
func nullFloat(value *float64) any {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}
	return *value
}

func nullTimeUnix(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.UTC().Unix()
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid || math.IsNaN(value.Float64) || math.IsInf(value.Float64, 0) {
		return nil
	}
	v := value.Float64
	return &v
}

func timePtr(value sql.NullInt64) *time.Time {
	if !value.Valid || value.Int64 == 0 {
		return nil
	}
	t := time.Unix(value.Int64, 0).UTC()
	return &t
}

func unixOrNow(value time.Time, now time.Time) int64 {
	if value.IsZero() {
		return now.Unix()
	}
	return value.UTC().Unix()
}

func clampLimit(limit, fallback, maxLimit int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxLimit)
}
