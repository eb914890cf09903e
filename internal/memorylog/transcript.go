// Package memorylog mirrors advisor conversations into per-farm markdown
// transcripts that operators can read or version alongside the farm data.
package memorylog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

type Entry struct {
	FarmID    string
	FarmName  string
	Direction string
	Actor     string
	Language  string
	Source    string
	Text      string
	Timestamp time.Time
}

// Transcript appends entries to <root>/farms/<farm>/chat.md. A zero root
// disables it.
type Transcript struct {
	root string
	mu   sync.Mutex
}

func NewTranscript(root string) *Transcript {
	return &Transcript{root: strings.TrimSpace(root)}
}

func (t *Transcript) Enabled() bool {
	return t != nil && t.root != ""
}

var pathSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Path is the transcript file for farmID, or "" when the id sanitises away.
func (t *Transcript) Path(farmID string) string {
	segment := sanitizeSegment(farmID)
	if !t.Enabled() || segment == "" {
		return ""
	}
	return filepath.Join(t.root, "farms", segment, "chat.md")
}

func (t *Transcript) Append(entry Entry) error {
	if !t.Enabled() {
		return nil
	}
	text := strings.TrimSpace(entry.Text)
	if text == "" {
		return nil
	}
	logPath := t.Path(entry.FarmID)
	if logPath == "" {
		return fmt.Errorf("transcript: invalid farm id %q", entry.FarmID)
	}
	timestamp := entry.Timestamp.UTC()
	if entry.Timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	direction := strings.TrimSpace(strings.ToLower(entry.Direction))
	if direction == "" {
		direction = DirectionInbound
	}
	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		actor = "system"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	header := ""
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		header = fmt.Sprintf("# Chat Log\n\n- farm_id: `%s`\n- farm_name: `%s`\n\n", strings.TrimSpace(entry.FarmID), strings.TrimSpace(entry.FarmName))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "## %s `%s`\n", timestamp.Format(time.RFC3339), strings.ToUpper(direction))
	fmt.Fprintf(&body, "- direction: `%s`\n- actor: `%s`\n", direction, actor)
	if lang := strings.TrimSpace(entry.Language); lang != "" {
		fmt.Fprintf(&body, "- language: `%s`\n", lang)
	}
	if source := strings.TrimSpace(entry.Source); source != "" {
		fmt.Fprintf(&body, "- source: `%s`\n", source)
	}
	fmt.Fprintf(&body, "\n%s\n\n", text)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if header != "" {
		if _, err := file.WriteString(header); err != nil {
			return err
		}
	}
	if _, err := file.WriteString(body.String()); err != nil {
		return err
	}
	return nil
}

func sanitizeSegment(value string) string {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.ReplaceAll(trimmed, " ", "-")
	trimmed = pathSanitizer.ReplaceAllString(trimmed, "-")
	trimmed = strings.Trim(trimmed, "-.")
	return strings.ToLower(trimmed)
}
