package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConversationEntry struct {
	ID          string          `json:"id"`
	FarmID      string          `json:"farmId"`
	Message     string          `json:"message"`
	Response    string          `json:"response"`
	Language    string          `json:"language"`
	Source      string          `json:"source,omitempty"`
	ContextJSON json.RawMessage `json:"context,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ConversationPage struct {
	Entries []ConversationEntry `json:"history"`
	Count   int                 `json:"count"`
	Total   int                 `json:"totalCount"`
	HasMore bool                `json:"hasMore"`
}

type ConversationStats struct {
	TotalMessages     int            `json:"totalMessages"`
	AvgMessageLength  float64        `json:"avgMessageLength"`
	AvgResponseLength float64        `json:"avgResponseLength"`
	FirstMessage      *time.Time     `json:"firstMessage"`
	LastMessage       *time.Time     `json:"lastMessage"`
	Languages         map[string]int `json:"languages"`
}

func (s *Store) AppendConversation(ctx context.Context, entry ConversationEntry) (ConversationEntry, error) {
	entry.FarmID = strings.TrimSpace(entry.FarmID)
	if entry.FarmID == "" {
		return ConversationEntry{}, fmt.Errorf("farm id is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = "chat_" + uuid.NewString()
	}
	if strings.TrimSpace(entry.Language) == "" {
		entry.Language = "en"
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.CreatedAt = time.Unix(entry.CreatedAt.UTC().Unix(), 0).UTC()
	var contextJSON any
	if len(entry.ContextJSON) > 0 {
		contextJSON = string(entry.ContextJSON)
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chat_history (id, farm_id, message, response, language, source, context_json, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.FarmID,
		entry.Message,
		entry.Response,
		entry.Language,
		nullIfEmpty(entry.Source),
		contextJSON,
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return ConversationEntry{}, fmt.Errorf("insert conversation: %w", err)
	}
	return entry, nil
}

// ListConversation pages backwards from the newest exchange; each page is
// returned oldest first.
func (s *Store) ListConversation(ctx context.Context, farmID string, limit, skip int) (ConversationPage, error) {
	farmID = strings.TrimSpace(farmID)
	limit = clampLimit(limit, 50, 500)
	skip = max(skip, 0)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_history WHERE farm_id = ?`, farmID).Scan(&total); err != nil {
		return ConversationPage{}, fmt.Errorf("count conversation: %w", err)
	}
	entries, err := s.queryConversation(ctx, farmID, limit, skip, true)
	if err != nil {
		return ConversationPage{}, err
	}
	return ConversationPage{
		Entries: entries,
		Count:   len(entries),
		Total:   total,
		HasMore: skip+len(entries) < total,
	}, nil
}

// RecentConversation returns the last exchanges oldest first, without the
// stored context snapshots.
func (s *Store) RecentConversation(ctx context.Context, farmID string, exchanges int) ([]ConversationEntry, error) {
	return s.queryConversation(ctx, strings.TrimSpace(farmID), clampLimit(exchanges, 5, 100), 0, false)
}

func (s *Store) queryConversation(ctx context.Context, farmID string, limit, skip int, withContext bool) ([]ConversationEntry, error) {
	contextColumn := "NULL"
	if withContext {
		contextColumn = "context_json"
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, farm_id, message, response, language, source, `+contextColumn+`, created_at_unix
		 FROM chat_history
		 WHERE farm_id = ?
		 ORDER BY created_at_unix DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		farmID,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	entries := []ConversationEntry{}
	for rows.Next() {
		var (
			item          ConversationEntry
			source        sql.NullString
			contextJSON   sql.NullString
			createdAtUnix int64
		)
		if err := rows.Scan(&item.ID, &item.FarmID, &item.Message, &item.Response, &item.Language, &source, &contextJSON, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		item.Source = source.String
		if contextJSON.Valid && contextJSON.String != "" {
			item.ContextJSON = json.RawMessage(contextJSON.String)
		}
		item.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		entries = append(entries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *Store) ClearConversation(ctx context.Context, farmID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE farm_id = ?`, strings.TrimSpace(farmID))
	if err != nil {
		return 0, fmt.Errorf("clear conversation: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear conversation rows: %w", err)
	}
	return deleted, nil
}

func (s *Store) ConversationStats(ctx context.Context, farmID string) (ConversationStats, error) {
	farmID = strings.TrimSpace(farmID)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(AVG(LENGTH(message)), 0), COALESCE(AVG(LENGTH(response)), 0),
			MIN(created_at_unix), MAX(created_at_unix)
		 FROM chat_history
		 WHERE farm_id = ?`,
		farmID,
	)
	stats := ConversationStats{Languages: map[string]int{}}
	var first, last sql.NullInt64
	if err := row.Scan(&stats.TotalMessages, &stats.AvgMessageLength, &stats.AvgResponseLength, &first, &last); err != nil {
		return ConversationStats{}, fmt.Errorf("conversation stats: %w", err)
	}
	stats.FirstMessage = timePtr(first)
	stats.LastMessage = timePtr(last)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT language, COUNT(*) FROM chat_history WHERE farm_id = ? GROUP BY language`,
		farmID,
	)
	if err != nil {
		return ConversationStats{}, fmt.Errorf("conversation languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			language string
			count    int
		)
		if err := rows.Scan(&language, &count); err != nil {
			return ConversationStats{}, fmt.Errorf("scan conversation language: %w", err)
		}
		stats.Languages[language] = count
	}
	if err := rows.Err(); err != nil {
		return ConversationStats{}, fmt.Errorf("iterate conversation languages: %w", err)
	}
	return stats, nil
}
