package advisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/farmerr"
	"github.com/agrisense/farm-advisor/internal/llm"
)

type fakeContexts struct {
	fc *farmctx.FarmContext
}

func (f *fakeContexts) Build(ctx context.Context, farmID string) *farmctx.FarmContext {
	return f.fc
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   chan struct{}
	prompts []string
	callCtx context.Context
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.callCtx = ctx
	g.mu.Unlock()
	if g.block != nil {
		<-g.block
	}
	return g.reply, g.err
}

func (g *fakeGenerator) Model() string { return "fake-model" }

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type fakeLog struct {
	mu        sync.Mutex
	appended  []Exchange
	recent    []Exchange
	appendErr error
	loads     int
}

func (l *fakeLog) AppendExchange(ctx context.Context, exchange Exchange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.appended = append(l.appended, exchange)
	return nil
}

func (l *fakeLog) RecentExchanges(ctx context.Context, farmID string, limit int) ([]Exchange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	return l.recent, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(generator llm.Generator, log ConversationLog) *Service {
	service := NewService(&fakeContexts{fc: tomatoContext()}, generator, log, Config{ModelTimeout: time.Second}, testLogger())
	service.SetClock(func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) })
	return service
}

func TestAskValidation(t *testing.T) {
	service := newTestService(nil, nil)
	if _, err := service.Ask(context.Background(), Question{Text: "hi"}); !errors.Is(err, farmerr.ErrFarmRequired) {
		t.Fatalf("expected ErrFarmRequired, got %v", err)
	}
	if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "   "}); !errors.Is(err, farmerr.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
}

func TestAskUsesModelReplyAndLogsSnapshot(t *testing.T) {
	generator := &fakeGenerator{reply: "  Irrigate at dawn.  "}
	log := &fakeLog{}
	service := newTestService(generator, log)

	answer, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "Should I irrigate?", Language: "HI"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()

	if answer.Text != "Irrigate at dawn." || answer.Source != SourceModel || answer.Language != "hi" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if !strings.Contains(generator.lastPrompt(), "Respond in Hindi") {
		t.Fatal("expected language instruction in prompt")
	}
	if len(log.appended) != 1 {
		t.Fatalf("expected one logged exchange, got %d", len(log.appended))
	}
	logged := log.appended[0]
	if logged.Context != answer.Context || logged.Answer != answer.Text || logged.Question != "Should I irrigate?" {
		t.Fatalf("logged exchange does not match answer: %+v", logged)
	}
}

func TestAskFallsBackOnModelError(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("503 overloaded")}
	service := newTestService(generator, nil)

	answer, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "Should I water?", Language: "fr"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.Source != SourceFallback || answer.Language != "en" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if !strings.HasPrefix(answer.Text, "**✅ Soil Moisture is Optimal**") {
		t.Fatalf("expected irrigation fallback, got %q", answer.Text)
	}
}

func TestAskWithoutGeneratorUsesFallback(t *testing.T) {
	service := newTestService(nil, nil)
	answer, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "hello"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.Source != SourceFallback || !strings.Contains(answer.Text, "📊 Your Farm Summary") {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if service.ModelConfigured() {
		t.Fatal("expected model not configured")
	}
}

func TestAskCallerCancelDoesNotCancelModelCall(t *testing.T) {
	generator := &fakeGenerator{reply: "late", block: make(chan struct{})}
	service := newTestService(generator, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Answer, 1)
	go func() {
		answer, _ := service.Ask(ctx, Question{FarmID: "farm_1", Text: "health?"})
		done <- answer
	}()

	deadline := time.Now().Add(2 * time.Second)
	for generator.lastPrompt() == "" {
		if time.Now().After(deadline) {
			t.Fatal("generator was never called")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	var answer Answer
	select {
	case answer = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ask did not return after caller cancelled")
	}
	if answer.Source != SourceFallback {
		t.Fatalf("expected fallback after cancel, got %+v", answer)
	}

	generator.mu.Lock()
	callCtx := generator.callCtx
	generator.mu.Unlock()
	if callCtx.Err() != nil {
		t.Fatalf("expected model call context to outlive the caller, got %v", callCtx.Err())
	}
	close(generator.block)
}

func TestAskFallbackPanicYieldsApology(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := MustNewMetrics(registry)
	log := &fakeLog{}
	service := newTestService(nil, log)
	service.SetMetrics(metrics)
	service.fallback = func(*farmctx.FarmContext, string) string { panic("broken table") }

	answer, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "hello", Language: "ta"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()
	if answer.Source != SourceError || answer.Text != ErrorResponse("ta") {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if len(log.appended) != 0 {
		t.Fatal("expected apology not to be logged")
	}
	if got := testutil.ToFloat64(metrics.answers.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected one error answer, got %v", got)
	}
}

func TestAskLogFailureIsSwallowed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := MustNewMetrics(registry)
	service := newTestService(nil, &fakeLog{appendErr: errors.New("disk full")})
	service.SetMetrics(metrics)

	answer, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "hello"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()
	if answer.Text == "" {
		t.Fatal("expected an answer despite log failure")
	}
	if got := testutil.ToFloat64(metrics.logWriteFailures); got != 1 {
		t.Fatalf("expected one log failure, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.answers.WithLabelValues("fallback")); got != 1 {
		t.Fatalf("expected one fallback answer, got %v", got)
	}
}

func TestAskHistoryLoadsOnceThenUsesCache(t *testing.T) {
	generator := &fakeGenerator{reply: "ok"}
	log := &fakeLog{recent: []Exchange{{Question: "stored question", Answer: "stored answer"}}}
	service := newTestService(generator, log)
	service.SetHistoryCache(NewHistoryCache(8, time.Minute))

	if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "first question"}); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(generator.lastPrompt(), "Farmer: stored question") {
		t.Fatal("expected stored history in first prompt")
	}
	if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "second question"}); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()

	prompt := generator.lastPrompt()
	if !strings.Contains(prompt, "Farmer: first question") || !strings.Contains(prompt, "Assistant: ok") {
		t.Fatalf("expected cached exchange in second prompt:\n%s", prompt)
	}
	if log.loads != 1 {
		t.Fatalf("expected history loaded once, got %d", log.loads)
	}
}

func TestForgetHistoryDropsClearedTurns(t *testing.T) {
	generator := &fakeGenerator{reply: "ok"}
	log := &fakeLog{}
	service := newTestService(generator, log)
	service.SetHistoryCache(NewHistoryCache(8, time.Minute))

	if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "private question one"}); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()
	log.mu.Lock()
	log.recent = nil
	log.mu.Unlock()
	service.ForgetHistory("farm_1")

	if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "second"}); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	service.Close()
	if prompt := generator.lastPrompt(); strings.Contains(prompt, "private question one") {
		t.Fatalf("expected cleared question to be gone from prompt:\n%s", prompt)
	}
	if log.loads != 2 {
		t.Fatalf("expected history reloaded after forget, got %d loads", log.loads)
	}
}

func TestConcurrentAsksKeepEveryExchange(t *testing.T) {
	generator := &fakeGenerator{reply: "ok"}
	service := newTestService(generator, nil)
	cache := NewHistoryCache(8, time.Minute)
	service.SetHistoryCache(cache)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Ask(context.Background(), Question{FarmID: "farm_1", Text: "question"}); err != nil {
				t.Errorf("ask failed: %v", err)
			}
		}()
	}
	wg.Wait()

	turns, ok := cache.Get("farm_1")
	if !ok || len(turns) != 6 {
		t.Fatalf("expected 6 cached turns, got %d", len(turns))
	}
}
