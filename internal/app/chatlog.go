package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/memorylog"
	"github.com/agrisense/farm-advisor/internal/store"
)

type conversationStore interface {
	AppendConversation(ctx context.Context, entry store.ConversationEntry) (store.ConversationEntry, error)
	RecentConversation(ctx context.Context, farmID string, exchanges int) ([]store.ConversationEntry, error)
}

// conversationLog writes each exchange to the store, then to the markdown
// transcript. Only the store write can fail the append.
type conversationLog struct {
	store      conversationStore
	transcript *memorylog.Transcript
	logger     *slog.Logger
}

func newConversationLog(store conversationStore, transcript *memorylog.Transcript, logger *slog.Logger) *conversationLog {
	return &conversationLog{store: store, transcript: transcript, logger: logger}
}

func (l *conversationLog) AppendExchange(ctx context.Context, exchange advisor.Exchange) error {
	var snapshot json.RawMessage
	if exchange.Context != nil {
		raw, err := json.Marshal(exchange.Context)
		if err != nil {
			return fmt.Errorf("encode context snapshot: %w", err)
		}
		snapshot = raw
	}
	if _, err := l.store.AppendConversation(ctx, store.ConversationEntry{
		FarmID:      exchange.FarmID,
		Message:     exchange.Question,
		Response:    exchange.Answer,
		Language:    exchange.Language,
		Source:      string(exchange.Source),
		ContextJSON: snapshot,
		CreatedAt:   exchange.At,
	}); err != nil {
		return err
	}

	if !l.transcript.Enabled() {
		return nil
	}
	farmName := ""
	if exchange.Context != nil {
		farmName = exchange.Context.FarmName
	}
	for _, entry := range []memorylog.Entry{
		{Direction: memorylog.DirectionInbound, Actor: "farmer", Text: exchange.Question},
		{Direction: memorylog.DirectionOutbound, Actor: "advisor", Text: exchange.Answer, Source: string(exchange.Source)},
	} {
		entry.FarmID = exchange.FarmID
		entry.FarmName = farmName
		entry.Language = exchange.Language
		entry.Timestamp = exchange.At
		if err := l.transcript.Append(entry); err != nil {
			l.logger.Warn("failed to append chat transcript", "farm_id", exchange.FarmID, "error", err)
			break
		}
	}
	return nil
}

func (l *conversationLog) RecentExchanges(ctx context.Context, farmID string, limit int) ([]advisor.Exchange, error) {
	entries, err := l.store.RecentConversation(ctx, farmID, limit)
	if err != nil {
		return nil, err
	}
	exchanges := make([]advisor.Exchange, 0, len(entries))
	for _, entry := range entries {
		exchanges = append(exchanges, advisor.Exchange{
			FarmID:   entry.FarmID,
			Question: entry.Message,
			Answer:   entry.Response,
			Language: entry.Language,
			Source:   advisor.Source(entry.Source),
			At:       entry.CreatedAt,
		})
	}
	return exchanges, nil
}
