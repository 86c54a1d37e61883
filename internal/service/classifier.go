package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"yescity/internal/logger"
	"yescity/internal/metrics"
	"yescity/internal/model"
	"yescity/internal/prompts"
	"yescity/internal/repository"
	"yescity/internal/utils"
)

// fallbackConfidence is assigned to every keyword classification and to
// model output that omits a confidence
const fallbackConfidence = 0.5

// fallbackRules is checked in order, first match wins
var fallbackRules = []utils.KeywordRule{
	{Label: string(model.CategoryFoods), Keywords: []string{"food", "restaurant", "eat", "dinner", "lunch", "breakfast", "cafe", "sweet", "petha"}},
	{Label: string(model.CategoryAccommodations), Keywords: []string{"hotel", "stay", "accommodation"}},
	{Label: string(model.CategoryActivities), Keywords: []string{"activity", "do"}},
	{Label: string(model.CategoryPlacesToVisit), Keywords: []string{"see", "visit", "attraction"}},
	{Label: string(model.CategoryShopping), Keywords: []string{"shop", "buy", "market"}},
	{Label: string(model.CategoryLocalTransports), Keywords: []string{"transport", "bus", "train"}},
	{Label: string(model.CategoryHiddenGems), Keywords: []string{"hidden", "gem", "local"}},
}

// KnownCities is the city list used when the model is unavailable
var KnownCities = []string{"Agra", "Delhi", "Mumbai", "Bangalore", "Jaipur", "Goa", "Chennai", "Kolkata", "Varanasi"}

// Classifier turns free text into a QueryIntent
type Classifier struct {
	llm         TextGenerator
	prompts     *prompts.Set
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewClassifier creates a classifier. A nil generator always uses the keyword fallback.
func NewClassifier(llm TextGenerator, promptSet *prompts.Set, temperature float64, maxTokens int, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{
		llm:         llm,
		prompts:     promptSet,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      log,
	}
}

// Classify never fails: any model or parse problem falls back to keyword matching
func (c *Classifier) Classify(ctx context.Context, query string) model.QueryIntent {
	log := logger.FromContext(ctx, c.logger)

	intent, err := c.classifyWithModel(ctx, query)
	if err != nil {
		log.Warn("classification fell back to keywords", zap.Error(err), zap.String("error_kind", ErrorKind(err)))
		intent = FallbackClassify(query)
	}

	metrics.ClassificationsTotal.WithLabelValues(intent.Source, string(intent.Category)).Inc()
	log.Debug("query classified",
		zap.String("category", string(intent.Category)),
		zap.String("city", intent.CityName()),
		zap.String("source", intent.Source),
		zap.Float64("confidence", intent.Confidence),
	)
	return intent
}

func (c *Classifier) classifyWithModel(ctx context.Context, query string) (intent model.QueryIntent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v: %w", r, ErrInternal)
		}
	}()

	if c.llm == nil {
		return model.QueryIntent{}, fmt.Errorf("no text generator configured: %w", ErrUpstreamUnavailable)
	}

	prompt, err := c.prompts.Classification(classificationData(query))
	if err != nil {
		return model.QueryIntent{}, fmt.Errorf("%v: %w", err, ErrInternal)
	}

	raw, err := c.llm.Generate(ctx, prompt, c.temperature, c.maxTokens)
	if err != nil {
		return model.QueryIntent{}, err
	}

	return ParseClassification(raw)
}

func classificationData(query string) prompts.ClassificationData {
	data := prompts.ClassificationData{Query: query}
	for _, cat := range model.AllCategories {
		data.Categories = append(data.Categories, prompts.CategoryEntry{
			Name:        string(cat),
			Description: cat.Info().Description,
		})
	}
	return data
}

// errNoJSON is returned when model output holds no object at all
var errNoJSON = errors.New("no JSON object in model output")

type rawClassification struct {
	Category   string         `json:"category"`
	CityName   any            `json:"cityName"`
	Parameters map[string]any `json:"parameters"`
	Confidence *float64       `json:"confidence"`
}

// ParseClassification reads a classification from raw model text. The payload
// is taken from the first '{' to the last '}'; a repair pass is tried before
// giving up.
func ParseClassification(raw string) (model.QueryIntent, error) {
	payload, ok := utils.ExtractOuterObject(raw)
	if !ok {
		return model.QueryIntent{}, errNoJSON
	}

	var parsed rawClassification
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		if repairErr := utils.ParseAIJSON(payload, &parsed); repairErr != nil {
			return model.QueryIntent{}, fmt.Errorf("parse classification: %w", err)
		}
	}

	category, ok := model.ParseCategory(strings.ToLower(parsed.Category))
	if !ok {
		category = model.DefaultCategory
	}

	confidence := fallbackConfidence
	if parsed.Confidence != nil {
		confidence = clamp01(*parsed.Confidence)
	}

	return model.QueryIntent{
		Category:   category,
		City:       cityValue(parsed.CityName),
		Parameters: stringParameters(parsed.Parameters),
		Confidence: confidence,
		Source:     model.IntentSourceModel,
	}, nil
}

// FallbackClassify is a pure keyword classification of the query
func FallbackClassify(query string) model.QueryIntent {
	category := model.DefaultCategory
	if label, ok := utils.MatchFirstRule(query, fallbackRules); ok {
		category = model.Category(label)
	}

	var city *string
	if name, ok := utils.MatchFirstName(query, KnownCities); ok {
		city = &name
	}

	return model.QueryIntent{
		Category:   category,
		City:       city,
		Parameters: map[string]string{},
		Confidence: fallbackConfidence,
		Source:     model.IntentSourceFallback,
	}
}

func cityValue(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if repository.IsNullSentinel(s) {
		return nil
	}
	return &s
}

func stringParameters(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[k] = strings.TrimSpace(t)
		case bool:
			out[k] = strconv.FormatBool(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
