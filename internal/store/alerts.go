package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrAlertNotFound = errors.New("alert not found")

type Alert struct {
	ID         string          `json:"id"`
	FarmID     string          `json:"farmId"`
	Type       string          `json:"type"`
	Severity   string          `json:"severity"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
	Resolved   bool            `json:"resolved"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type AlertFilter struct {
	FarmID   string
	Resolved *bool
	Limit    int
}

func (s *Store) CreateAlert(ctx context.Context, alert Alert) (Alert, error) {
	alert.FarmID = strings.TrimSpace(alert.FarmID)
	alert.Type = strings.ToLower(strings.TrimSpace(alert.Type))
	alert.Severity = strings.ToLower(strings.TrimSpace(alert.Severity))
	if alert.FarmID == "" || alert.Type == "" || alert.Severity == "" {
		return Alert{}, fmt.Errorf("farm id, type and severity are required")
	}
	if strings.TrimSpace(alert.ID) == "" {
		alert.ID = "alert_" + uuid.NewString()
	}
	alert.CreatedAt = time.Unix(s.now().Unix(), 0).UTC()
	alert.Resolved = false
	alert.ResolvedAt = nil
	var data any
	if len(alert.Data) > 0 {
		data = string(alert.Data)
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO alerts (id, farm_id, alert_type, severity, message, data_json, resolved, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		alert.ID,
		alert.FarmID,
		alert.Type,
		alert.Severity,
		alert.Message,
		data,
		alert.CreatedAt.Unix(),
	)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return alert, nil
}

func (s *Store) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	query := `SELECT id, farm_id, alert_type, severity, message, data_json, resolved, resolved_at_unix, created_at_unix
		FROM alerts
		WHERE farm_id = ?`
	args := []any{strings.TrimSpace(filter.FarmID)}
	if filter.Resolved != nil {
		query += ` AND resolved = ?`
		if *filter.Resolved {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += ` ORDER BY created_at_unix DESC, rowid DESC LIMIT ?`
	args = append(args, clampLimit(filter.Limit, 50, 500))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

func (s *Store) ResolveAlert(ctx context.Context, id string) (Alert, error) {
	id = strings.TrimSpace(id)
	// Resolving twice keeps the first resolution time.
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE alerts SET resolved = 1, resolved_at_unix = ? WHERE id = ? AND resolved = 0`,
		s.now().Unix(),
		id,
	); err != nil {
		return Alert{}, fmt.Errorf("resolve alert: %w", err)
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, farm_id, alert_type, severity, message, data_json, resolved, resolved_at_unix, created_at_unix
		 FROM alerts WHERE id = ?`,
		id,
	)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}
	return alert, nil
}

// HasOpenAlert reports whether an unresolved alert of the same type and
// severity already exists for the farm.
func (s *Store) HasOpenAlert(ctx context.Context, farmID, alertType, severity string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM alerts WHERE farm_id = ? AND alert_type = ? AND severity = ? AND resolved = 0`,
		strings.TrimSpace(farmID),
		strings.ToLower(strings.TrimSpace(alertType)),
		strings.ToLower(strings.TrimSpace(severity)),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check open alert: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var (
		alert         Alert
		data          sql.NullString
		resolved      int
		resolvedAt    sql.NullInt64
		createdAtUnix int64
	)
	if err := row.Scan(&alert.ID, &alert.FarmID, &alert.Type, &alert.Severity, &alert.Message, &data, &resolved, &resolvedAt, &createdAtUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Alert{}, err
		}
		return Alert{}, fmt.Errorf("scan alert: %w", err)
	}
	if data.Valid && data.String != "" {
		alert.Data = json.RawMessage(data.String)
	}
	alert.Resolved = resolved == 1
	alert.ResolvedAt = timePtr(resolvedAt)
	alert.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return alert, nil
}
