package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrisense/farm-advisor/internal/advisor"
)

type fakeAsker struct {
	questions []advisor.Question
}

func (f *fakeAsker) Ask(ctx context.Context, q advisor.Question) (advisor.Answer, error) {
	f.questions = append(f.questions, q)
	return advisor.Answer{Text: "🌱 Crop: Tomato\nWater in the evening."}, nil
}

func newTestCommand(input string) (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd, out
}

func TestRunInteractiveAsk(t *testing.T) {
	asker := &fakeAsker{}
	cmd, out := newTestCommand("how is my crop?\n\n/exit\nignored\n")

	if err := runInteractiveAsk(cmd, asker, "farm_1", "kn", time.Second); err != nil {
		t.Fatalf("interactive ask: %v", err)
	}
	if len(asker.questions) != 1 {
		t.Fatalf("expected one question, got %d", len(asker.questions))
	}
	if got := asker.questions[0]; got.FarmID != "farm_1" || got.Language != "kn" || got.Text != "how is my crop?" {
		t.Fatalf("unexpected question: %+v", got)
	}
	if !strings.Contains(out.String(), "advisor> 🌱 Crop: Tomato\n         Water in the evening.") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestAskOncePrintsAnswer(t *testing.T) {
	asker := &fakeAsker{}
	cmd, out := newTestCommand("")
	if err := askOnce(cmd, asker, "farm_1", "en", "water?", time.Second); err != nil {
		t.Fatalf("ask once: %v", err)
	}
	if !strings.HasPrefix(out.String(), "🌱 Crop: Tomato") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestBoundedTimeout(t *testing.T) {
	if boundedTimeout(0) != defaultAskTimeout || boundedTimeout(9999) != defaultAskTimeout {
		t.Fatal("expected out of range timeouts to use the default")
	}
	if boundedTimeout(5) != 5*time.Second {
		t.Fatal("expected in range timeout to be kept")
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRoot(nil)
	for _, name := range []string{"serve", "ask", "context", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v", name, err)
		}
	}
}
