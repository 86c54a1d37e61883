package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"yescity/internal/logger"
	"yescity/internal/metrics"
	"yescity/internal/model"
	"yescity/internal/prompts"
	"yescity/internal/repository"
)

// Stage is a step of the recommendation pipeline
type Stage string

const (
	StageStart          Stage = "start"
	StageClassified     Stage = "classified"
	StageSearched       Stage = "searched"
	StagePrompted       Stage = "prompted"
	StageModelResponded Stage = "model_responded"
	StageExtracted      Stage = "extracted"
	StageHydrated       Stage = "hydrated"
	StageDone           Stage = "done"
	StageError          Stage = "error"
)

// Streaming event names
const (
	EventClassified = "classified"
	EventSearched   = "searched"
	EventContent    = "content"
	EventExtracted  = "extracted"
)

// queryLogTimeout bounds each asynchronous query log write
const queryLogTimeout = 5 * time.Second

// ErrQueryLogDisabled is returned for feedback when no query log is configured
var ErrQueryLogDisabled = errors.New("query log is disabled")

// EventCallback is called for streaming pipeline events
type EventCallback func(event string, data any) error

// QueryLogger persists finished runs and user feedback
type QueryLogger interface {
	LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error
	LogFeedback(ctx context.Context, requestID, recordID, action string) error
}

// HealthChecker is implemented by dependencies that can report reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RecommendationOptions tunes a pipeline run
type RecommendationOptions struct {
	Temperature      float64
	MaxTokens        int
	MaxCandidates    int
	PromptCandidates int
}

// RecommendationService runs the query-to-recommendation pipeline
type RecommendationService struct {
	classifier *Classifier
	catalog    *CatalogService
	extractor  *Extractor
	hydrator   *Hydrator
	llm        TextGenerator
	prompts    *prompts.Set
	queryLog   QueryLogger
	opts       RecommendationOptions
	logger     *zap.Logger

	pending sync.WaitGroup
}

// NewRecommendationService creates the orchestrator. llm and queryLog may be nil.
func NewRecommendationService(
	classifier *Classifier,
	catalog *CatalogService,
	hydrator *Hydrator,
	llm TextGenerator,
	promptSet *prompts.Set,
	queryLog QueryLogger,
	opts RecommendationOptions,
	log *zap.Logger,
) *RecommendationService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PromptCandidates <= 0 {
		opts.PromptCandidates = DefaultPromptCandidates
	}
	return &RecommendationService{
		classifier: classifier,
		catalog:    catalog,
		extractor:  NewExtractor(log),
		hydrator:   hydrator,
		llm:        llm,
		prompts:    promptSet,
		queryLog:   queryLog,
		opts:       opts,
		logger:     log,
	}
}

// Run answers a free-text query. It always returns an envelope; failures are
// reported through Success, Error and Err.
func (s *RecommendationService) Run(ctx context.Context, query string) *model.RecommendationResult {
	return s.run(ctx, query, nil)
}

// RunStream is Run with progress events: "classified", "searched", "content"
// (model output chunks) and "extracted".
func (s *RecommendationService) RunStream(ctx context.Context, query string, callback EventCallback) *model.RecommendationResult {
	return s.run(ctx, query, callback)
}

// GetByCategory runs the pipeline for structured input by composing a query
// such as "foods in Agra category: sweets"
func (s *RecommendationService) GetByCategory(ctx context.Context, category, city string, filters map[string]string) *model.RecommendationResult {
	return s.Run(ctx, ComposeCategoryQuery(model.NormalizeCategory(category), city, filters))
}

// ComposeCategoryQuery builds the synthetic query used by GetByCategory. Filter
// keys are sorted and empty values are skipped.
func ComposeCategoryQuery(category model.Category, city string, filters map[string]string) string {
	var sb strings.Builder
	sb.WriteString(string(category))
	if city = strings.TrimSpace(city); city != "" {
		sb.WriteString(" in ")
		sb.WriteString(city)
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.TrimSpace(filters[k])
		if v == "" {
			continue
		}
		fmt.Fprintf(&sb, " %s: %s", k, v)
	}
	return sb.String()
}

// Classify exposes the classifier on its own
func (s *RecommendationService) Classify(ctx context.Context, query string) model.QueryIntent {
	return s.classifier.Classify(ctx, query)
}

// LogFeedback records a user action against a previous run
func (s *RecommendationService) LogFeedback(ctx context.Context, req *model.FeedbackRequest) error {
	if s.queryLog == nil {
		return ErrQueryLogDisabled
	}
	return s.queryLog.LogFeedback(ctx, req.RequestID, req.RecordID, req.Action)
}

// Health reports the state of the catalog store and the text generator
func (s *RecommendationService) Health(ctx context.Context) model.HealthReport {
	report := model.HealthReport{
		Status:     model.HealthOK,
		Components: map[string]model.ComponentHealth{},
	}

	if err := s.catalog.Ping(ctx); err != nil {
		report.Status = model.HealthDown
		report.Components["catalog"] = model.ComponentHealth{Status: model.HealthDown, Error: err.Error()}
	} else {
		report.Components["catalog"] = model.ComponentHealth{Status: model.HealthOK}
	}

	switch hc, ok := s.llm.(HealthChecker); {
	case s.llm == nil:
		report.Components["llm"] = model.ComponentHealth{Status: model.HealthDisabled}
	case !ok:
		report.Components["llm"] = model.ComponentHealth{Status: model.HealthOK}
	default:
		if err := hc.HealthCheck(ctx); err != nil {
			// keyword classification still works without the model
			if report.Status == model.HealthOK {
				report.Status = model.HealthDegraded
			}
			report.Components["llm"] = model.ComponentHealth{Status: model.HealthDown, Error: err.Error()}
		} else {
			report.Components["llm"] = model.ComponentHealth{Status: model.HealthOK}
		}
	}

	if s.queryLog == nil {
		report.Components["query_log"] = model.ComponentHealth{Status: model.HealthDisabled}
	} else {
		report.Components["query_log"] = model.ComponentHealth{Status: model.HealthOK}
	}
	return report
}

// Wait blocks until pending query log writes have finished
func (s *RecommendationService) Wait() {
	s.pending.Wait()
}

func (s *RecommendationService) run(ctx context.Context, query string, emit EventCallback) (result *model.RecommendationResult) {
	start := time.Now()

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.ContextWithRequestID(ctx, requestID)
	}
	log := logger.FromContext(ctx, s.logger).With(zap.String("request_id", requestID))
	ctx = logger.ContextWithLogger(ctx, log)

	result = &model.RecommendationResult{
		RequestID:       requestID,
		Query:           query,
		Parameters:      map[string]string{},
		Recommendations: []model.RecommendationPick{},
		FullData:        []model.HydratedRecord{},
	}

	stage := StageStart
	stageStart := time.Now()
	advance := func(next Stage) {
		metrics.PipelineStageDuration.WithLabelValues(string(next)).Observe(time.Since(stageStart).Seconds())
		stage, stageStart = next, time.Now()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("recommendation pipeline panicked",
				zap.String("stage", string(stage)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			fail(result, fmt.Errorf("unexpected failure after stage %s: %v: %w", stage, r, ErrInternal))
		}
		result.ProcessingTimeSeconds = model.RoundSeconds(time.Since(start).Seconds())
		s.finish(result, log)
	}()

	if strings.TrimSpace(query) == "" {
		fail(result, &UserInputError{Message: "Query must not be empty."})
		return result
	}

	// classify
	intent := s.classifier.Classify(ctx, query)
	info := intent.Category.Info()
	result.Category = intent.Category
	result.City = intent.City
	for k, v := range intent.Parameters {
		result.Parameters[k] = v
	}
	advance(StageClassified)
	if err := send(emit, EventClassified, intent); err != nil {
		fail(result, err)
		return result
	}

	if info.RequiresCity && !intent.HasCity() {
		fail(result, &UserInputError{
			Message: fmt.Sprintf("Please specify a city for %s recommendations.", intent.Category),
		})
		return result
	}

	// search
	records, err := s.catalog.Search(ctx, intent, s.opts.MaxCandidates)
	if err != nil {
		fail(result, err)
		return result
	}
	advance(StageSearched)
	log.Debug("catalog candidates found",
		zap.String("collection", info.Collection),
		zap.Int("count", len(records)),
	)
	if err := send(emit, EventSearched, map[string]any{"collection": info.Collection, "count": len(records)}); err != nil {
		fail(result, err)
		return result
	}

	// prompt
	prompt, err := RecommendationPrompt(s.prompts, query, intent, records, s.opts.PromptCandidates)
	if err != nil {
		fail(result, fmt.Errorf("%v: %w", err, ErrInternal))
		return result
	}
	advance(StagePrompted)

	// generate
	raw, err := s.generate(ctx, prompt, emit)
	if err != nil {
		fail(result, err)
		return result
	}
	advance(StageModelResponded)

	// extract
	picks := s.extractor.Extract(raw, info.NameField)
	result.Recommendations = picks
	advance(StageExtracted)
	if err := send(emit, EventExtracted, picks); err != nil {
		fail(result, err)
		return result
	}

	// hydrate
	result.FullData = s.hydrator.Hydrate(ctx, intent.Category, picks)
	advance(StageHydrated)

	result.Success = true
	advance(StageDone)
	return result
}

func (s *RecommendationService) generate(ctx context.Context, prompt string, emit EventCallback) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("no text generator configured: %w", ErrUpstreamUnavailable)
	}
	if emit != nil {
		if sg, ok := s.llm.(StreamGenerator); ok {
			return sg.GenerateStream(ctx, prompt, s.opts.Temperature, s.opts.MaxTokens, func(chunk string) error {
				return emit(EventContent, map[string]any{"content": chunk})
			})
		}
	}
	return s.llm.Generate(ctx, prompt, s.opts.Temperature, s.opts.MaxTokens)
}

// finish records metrics and the query log for a completed run
func (s *RecommendationService) finish(result *model.RecommendationResult, log *zap.Logger) {
	category := string(result.Category)
	if category == "" {
		category = "unknown"
	}
	status := "success"
	if !result.Success {
		status = ErrorKind(result.Err)
	}
	metrics.PipelineRunsTotal.WithLabelValues(category, status).Inc()

	fields := []zap.Field{
		zap.String("category", category),
		zap.String("city", ptrString(result.City)),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Float64("took_seconds", result.ProcessingTimeSeconds),
	}
	switch status {
	case "success":
		log.Info("recommendation completed", fields...)
	case "user_input":
		log.Info("recommendation rejected", append(fields, zap.String("error", result.Error))...)
	case "upstream":
		log.Warn("recommendation failed", append(fields, zap.Error(result.Err))...)
	default:
		log.Error("recommendation failed", append(fields, zap.Error(result.Err))...)
	}

	if s.queryLog == nil {
		return
	}
	entry := model.NewRecommendationLog(result)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), queryLogTimeout)
		defer cancel()
		if err := s.queryLog.LogRecommendation(ctx, entry); err != nil {
			log.Warn("failed to write query log", zap.Error(err))
		}
	}()
}

func fail(result *model.RecommendationResult, err error) {
	result.Success = false
	result.Err = err
	result.Error = err.Error()
}

func send(emit EventCallback, event string, data any) error {
	if emit == nil {
		return nil
	}
	if err := emit(event, data); err != nil {
		return fmt.Errorf("send %s event: %w", event, err)
	}
	return nil
}

func ptrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsNotFound reports whether err means a logged run does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrLogNotFound)
}
