package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agrisense/farm-advisor/internal/advisor"
	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/memorylog"
	"github.com/agrisense/farm-advisor/internal/store"
)

func newAppTestStore(t *testing.T) *store.Store {
	t.Helper()
	sqlStore, err := store.New(filepath.Join(t.TempDir(), "farm.sqlite"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return sqlStore
}

func TestConversationLogStoresSnapshotAndTranscript(t *testing.T) {
	sqlStore := newAppTestStore(t)
	root := t.TempDir()
	transcript := memorylog.NewTranscript(root)
	log := newConversationLog(sqlStore, transcript, slog.New(slog.NewTextHandler(io.Discard, nil)))

	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fc := farmctx.Empty("farm_1", at)
	fc.FarmName = "Green Acres"
	if err := log.AppendExchange(context.Background(), advisor.Exchange{
		FarmID:   "farm_1",
		Question: "Should I water?",
		Answer:   "Not today.",
		Language: "en",
		Source:   advisor.SourceFallback,
		Context:  fc,
		At:       at,
	}); err != nil {
		t.Fatalf("append exchange: %v", err)
	}

	page, err := sqlStore.ListConversation(context.Background(), "farm_1", 10, 0)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if page.Count != 1 {
		t.Fatalf("expected one stored exchange, got %d", page.Count)
	}
	var snapshot farmctx.FarmContext
	if err := json.Unmarshal(page.Entries[0].ContextJSON, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.FarmName != "Green Acres" || page.Entries[0].Source != "fallback" {
		t.Fatalf("unexpected stored entry: %+v", page.Entries[0])
	}

	raw, err := os.ReadFile(transcript.Path("farm_1"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(raw), "Should I water?") || !strings.Contains(string(raw), "Not today.") {
		t.Fatalf("transcript missing exchange:\n%s", raw)
	}

	recent, err := log.RecentExchanges(context.Background(), "farm_1", 5)
	if err != nil {
		t.Fatalf("recent exchanges: %v", err)
	}
	if len(recent) != 1 || recent[0].Question != "Should I water?" || recent[0].Source != advisor.SourceFallback {
		t.Fatalf("unexpected recent exchanges: %+v", recent)
	}
}

func TestConversationLogWithoutTranscript(t *testing.T) {
	sqlStore := newAppTestStore(t)
	log := newConversationLog(sqlStore, memorylog.NewTranscript(""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := log.AppendExchange(context.Background(), advisor.Exchange{
		FarmID: "farm_1", Question: "q", Answer: "a", Language: "kn", At: time.Now(),
	}); err != nil {
		t.Fatalf("append exchange: %v", err)
	}
}
