package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IrrigationLog struct {
	ID              string    `json:"id"`
	FarmID          string    `json:"farmId"`
	StartedAt       time.Time `json:"startedAt"`
	DurationMinutes *float64  `json:"durationMinutes"`
	WaterLiters     *float64  `json:"waterLiters"`
	Method          string    `json:"method,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s *Store) CreateIrrigationLog(ctx context.Context, entry IrrigationLog) (IrrigationLog, error) {
	entry.FarmID = strings.TrimSpace(entry.FarmID)
	if entry.FarmID == "" {
		return IrrigationLog{}, fmt.Errorf("farm id is required")
	}
	if entry.DurationMinutes != nil && *entry.DurationMinutes < 0 {
		return IrrigationLog{}, fmt.Errorf("duration must not be negative")
	}
	if entry.WaterLiters != nil && *entry.WaterLiters < 0 {
		return IrrigationLog{}, fmt.Errorf("water amount must not be negative")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = "irr_" + uuid.NewString()
	}
	now := s.now()
	entry.StartedAt = time.Unix(unixOrNow(entry.StartedAt, now), 0).UTC()
	entry.CreatedAt = time.Unix(now.Unix(), 0).UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO irrigation_logs (
			id, farm_id, started_at_unix, duration_minutes, water_liters, method, notes, created_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.FarmID,
		entry.StartedAt.Unix(),
		nullFloat(entry.DurationMinutes),
		nullFloat(entry.WaterLiters),
		nullIfEmpty(strings.TrimSpace(entry.Method)),
		nullIfEmpty(strings.TrimSpace(entry.Notes)),
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return IrrigationLog{}, fmt.Errorf("insert irrigation log: %w", err)
	}
	return entry, nil
}

func (s *Store) ListIrrigationLogs(ctx context.Context, farmID string, limit int) ([]IrrigationLog, error) {
	limit = clampLimit(limit, 20, 500)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, farm_id, started_at_unix, duration_minutes, water_liters, method, notes, created_at_unix
		 FROM irrigation_logs
		 WHERE farm_id = ?
		 ORDER BY started_at_unix DESC, rowid DESC
		 LIMIT ?`,
		strings.TrimSpace(farmID),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list irrigation logs: %w", err)
	}
	defer rows.Close()

	logs := []IrrigationLog{}
	for rows.Next() {
		var (
			item                         IrrigationLog
			duration, water              sql.NullFloat64
			method, notes                sql.NullString
			startedAtUnix, createdAtUnix int64
		)
		if err := rows.Scan(&item.ID, &item.FarmID, &startedAtUnix, &duration, &water, &method, &notes, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scan irrigation log: %w", err)
		}
		item.StartedAt = time.Unix(startedAtUnix, 0).UTC()
		item.DurationMinutes = floatPtr(duration)
		item.WaterLiters = floatPtr(water)
		item.Method = method.String
		item.Notes = notes.String
		item.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		logs = append(logs, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate irrigation logs: %w", err)
	}
	return logs, nil
}
