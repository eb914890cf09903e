package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/agrisense/farm-advisor/internal/agronomy"
	"github.com/agrisense/farm-advisor/internal/farmctx"
	"github.com/agrisense/farm-advisor/internal/farmerr"
	"github.com/agrisense/farm-advisor/internal/llm"
)

const (
	defaultModelTimeout     = 30 * time.Second
	defaultHistoryExchanges = 5
	logWriteTimeout         = 10 * time.Second
)

type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
	SourceError    Source = "error"
)

type Question struct {
	FarmID   string `json:"farmId"`
	Text     string `json:"message"`
	Language string `json:"language"`
}

type Answer struct {
	Text      string               `json:"answer"`
	Language  string               `json:"language"`
	Source    Source               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
	Context   *farmctx.FarmContext `json:"-"`
}

// Exchange is one answered question as written to the conversation log. The
// context is the same snapshot the answer was produced from.
type Exchange struct {
	FarmID   string
	Question string
	Answer   string
	Language string
	Source   Source
	Context  *farmctx.FarmContext
	At       time.Time
}

type ContextBuilder interface {
	Build(ctx context.Context, farmID string) *farmctx.FarmContext
}

type ConversationLog interface {
	AppendExchange(ctx context.Context, exchange Exchange) error
	// RecentExchanges returns up to limit exchanges, oldest first.
	RecentExchanges(ctx context.Context, farmID string, limit int) ([]Exchange, error)
}

type Config struct {
	ModelTimeout     time.Duration
	HistoryExchanges int
}

// HistoryCache holds recent turns per farm between requests.
type HistoryCache = expirable.LRU[string, []Turn]

func NewHistoryCache(size int, ttl time.Duration) *HistoryCache {
	if size < 1 {
		size = 256
	}
	return expirable.NewLRU[string, []Turn](size, nil, ttl)
}

type Service struct {
	contexts  ContextBuilder
	generator llm.Generator
	log       ConversationLog
	cfg       Config
	logger    *slog.Logger

	knowledge *agronomy.KnowledgeBase
	historyMu sync.Mutex
	history   *HistoryCache
	metrics   *Metrics
	now       func() time.Time
	fallback  func(fc *farmctx.FarmContext, question string) string

	pending sync.WaitGroup
}

// NewService wires the chat flow. generator and log may be nil: without a
// generator every answer comes from the rule-based fallback, without a log
// nothing is persisted.
func NewService(contexts ContextBuilder, generator llm.Generator, log ConversationLog, cfg Config, logger *slog.Logger) *Service {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	if cfg.HistoryExchanges < 1 {
		cfg.HistoryExchanges = defaultHistoryExchanges
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		contexts:  contexts,
		generator: generator,
		log:       log,
		cfg:       cfg,
		logger:    logger,
		knowledge: agronomy.DefaultKnowledgeBase(),
		now:       func() time.Time { return time.Now().UTC() },
		fallback:  FallbackResponse,
	}
}

func (s *Service) SetKnowledgeBase(kb *agronomy.KnowledgeBase) {
	if kb != nil {
		s.knowledge = kb
	}
}

func (s *Service) SetHistoryCache(cache *HistoryCache) {
	s.history = cache
}

func (s *Service) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ForgetHistory drops the cached turns of a farm so the next question reloads
// them from the conversation log.
func (s *Service) ForgetHistory(farmID string) {
	if s.history == nil {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history.Remove(strings.TrimSpace(farmID))
}

// ModelConfigured reports whether answers may come from the language model.
func (s *Service) ModelConfigured() bool {
	return s.generator != nil
}

// Ask answers one question. Only validation failures are returned as errors;
// every other failure degrades to the fallback or the apology text.
func (s *Service) Ask(ctx context.Context, q Question) (Answer, error) {
	farmID := strings.TrimSpace(q.FarmID)
	if farmID == "" {
		return Answer{}, farmerr.ErrFarmRequired
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Answer{}, fmt.Errorf("%w: message is required", farmerr.ErrInvalidQuestion)
	}
	lang := NormalizeLanguage(q.Language)
	logger := s.logger.With("farm_id", farmID, "language", lang)

	fc := s.contexts.Build(ctx, farmID)
	turns := s.recentTurns(ctx, farmID)
	reply, source := s.respond(ctx, logger, fc, text, lang, turns)
	s.metrics.observeAnswer(source)

	answer := Answer{
		Text:      reply,
		Language:  lang,
		Source:    source,
		Timestamp: s.now(),
		Context:   fc,
	}
	if source != SourceError {
		s.remember(farmID, text, reply)
		s.record(logger, Exchange{
			FarmID:   farmID,
			Question: text,
			Answer:   reply,
			Language: lang,
			Source:   source,
			Context:  fc,
			At:       answer.Timestamp,
		})
	}
	return answer, nil
}

func (s *Service) respond(ctx context.Context, logger *slog.Logger, fc *farmctx.FarmContext, text, lang string, turns []Turn) (string, Source) {
	if s.generator != nil {
		prompt := BuildPrompt(fc, text, lang, turns, s.knowledge)
		reply, err := s.generate(ctx, prompt)
		switch {
		case err == nil && strings.TrimSpace(reply) != "":
			return strings.TrimSpace(reply), SourceModel
		case err == nil:
			logger.Warn("model returned empty reply, using fallback", "model", s.generator.Model())
		case ctx.Err() != nil:
			logger.Info("caller gone before model reply, using fallback", "error", err)
		case errors.Is(err, llm.ErrUnavailable):
			logger.Warn("model unavailable, using fallback", "error", err)
		default:
			logger.Warn("model call failed, using fallback", "model", s.generator.Model(), "error", err)
		}
	}
	reply, err := s.safeFallback(fc, text)
	if err != nil {
		logger.Error("fallback response failed", "error", err)
		return ErrorResponse(lang), SourceError
	}
	return reply, SourceFallback
}

// generate runs the model call on a context detached from the caller so a
// disconnect neither cancels nor leaks it. The call is bounded by the model
// timeout; a reply that arrives after the caller left is dropped.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ModelTimeout)
	go func() {
		defer cancel()
		started := time.Now()
		text, err := s.callGenerator(callCtx, prompt)
		s.metrics.observeModelCall(time.Since(started), err)
		done <- result{text: text, err: err}
	}()
	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) callGenerator(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return s.generator.Generate(ctx, prompt)
}

func (s *Service) safeFallback(fc *farmctx.FarmContext, question string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback panicked: %v", r)
		}
	}()
	return s.fallback(fc, question), nil
}

func (s *Service) recentTurns(ctx context.Context, farmID string) []Turn {
	if s.history != nil {
		if turns, ok := s.history.Get(farmID); ok {
			return turns
		}
	}
	if s.log == nil {
		return nil
	}
	exchanges, err := s.log.RecentExchanges(ctx, farmID, s.cfg.HistoryExchanges)
	if err != nil {
		s.logger.Warn("conversation history unavailable", "farm_id", farmID, "error", err)
		return nil
	}
	turns := make([]Turn, 0, len(exchanges)*2)
	for _, exchange := range exchanges {
		turns = appendExchange(turns, exchange.Question, exchange.Answer)
	}
	if s.history != nil {
		s.historyMu.Lock()
		if !s.history.Contains(farmID) {
			s.history.Add(farmID, turns)
		}
		s.historyMu.Unlock()
	}
	return turns
}

func (s *Service) remember(farmID, question, answer string) {
	if s.history == nil {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	current, _ := s.history.Get(farmID)
	turns := appendExchange(append([]Turn(nil), current...), question, answer)
	if limit := s.cfg.HistoryExchanges * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	s.history.Add(farmID, turns)
}

func appendExchange(turns []Turn, question, answer string) []Turn {
	if strings.TrimSpace(question) != "" {
		turns = append(turns, Turn{Role: RoleUser, Content: question})
	}
	if strings.TrimSpace(answer) != "" {
		turns = append(turns, Turn{Role: RoleAssistant, Content: answer})
	}
	return turns
}

// record appends the exchange in the background. Failures are logged and
// counted, never returned.
func (s *Service) record(logger *slog.Logger, exchange Exchange) {
	if s.log == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("conversation log append panicked", "panic", fmt.Sprint(r))
				s.metrics.observeLogFailure()
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), logWriteTimeout)
		defer cancel()
		if err := s.log.AppendExchange(ctx, exchange); err != nil {
			logger.Error("conversation log append failed", "error", err)
			s.metrics.observeLogFailure()
		}
	}()
}

// Close waits for in-flight log writes.
func (s *Service) Close() {
	s.pending.Wait()
}
