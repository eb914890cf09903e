package memorylog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAppendCreatesMarkdownTranscript(t *testing.T) {
	root := t.TempDir()
	transcript := NewTranscript(root)
	err := transcript.Append(Entry{
		FarmID:    "farm_ABC",
		FarmName:  "Green Acres",
		Direction: DirectionInbound,
		Actor:     "farmer",
		Language:  "kn",
		Text:      "ನೀರು ಬೇಕೆ?",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	logPath := filepath.Join(root, "farms", "farm_abc", "chat.md")
	if transcript.Path("farm_ABC") != logPath {
		t.Fatalf("unexpected path: %s", transcript.Path("farm_ABC"))
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"# Chat Log",
		"- farm_name: `Green Acres`",
		"## 2023-11-14T22:13:20Z `INBOUND`",
		"- language: `kn`",
		"ನೀರು ಬೇಕೆ?",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %s", want, content)
		}
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	transcript := NewTranscript(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transcript.Append(Entry{FarmID: "farm_1", Direction: DirectionOutbound, Text: "answer"}); err != nil {
				t.Errorf("append failed: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(transcript.Path("farm_1"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if got := strings.Count(string(data), "# Chat Log"); got != 1 {
		t.Fatalf("expected one header, got %d", got)
	}
	if got := strings.Count(string(data), "`OUTBOUND`"); got != 8 {
		t.Fatalf("expected eight entries, got %d", got)
	}
}

func TestAppendSkipsEmptyTextAndDisabledRoot(t *testing.T) {
	root := t.TempDir()
	transcript := NewTranscript(root)
	if err := transcript.Append(Entry{FarmID: "farm_1", Text: "   "}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := os.Stat(transcript.Path("farm_1")); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty text, got err=%v", err)
	}

	disabled := NewTranscript("")
	if disabled.Enabled() {
		t.Fatal("expected empty root to disable transcript")
	}
	if err := disabled.Append(Entry{FarmID: "farm_1", Text: "hello"}); err != nil {
		t.Fatalf("disabled append should be a no-op, got %v", err)
	}
}

func TestAppendRejectsUnusableFarmID(t *testing.T) {
	transcript := NewTranscript(t.TempDir())
	if err := transcript.Append(Entry{FarmID: "../..", Text: "hello"}); err == nil {
		t.Fatal("expected error for farm id that sanitises to nothing")
	}
}
