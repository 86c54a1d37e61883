package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yescity/internal/logger"
	"yescity/internal/model"
)

const (
	classifyAgraFoods   = `{"category": "foods", "cityName": "Agra", "parameters": {}, "confidence": 0.9}`
	classifyBanarasShop = `{"category": "shopping", "cityName": "Varanasi", "parameters": {"category": "silk"}, "confidence": 0.9}`
)

func TestRun_PromptListsTwentyOfTwentyFive(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(25)...)
	llm := pipelineLLM(classifyAgraFoods, `{"recommendations": []}`)
	svc := newTestService(llm, store, nil)

	result := svc.Run(context.Background(), "Find pizza places in Agra")
	require.True(t, result.Success, result.Error)

	calls := llm.calls()
	require.Len(t, calls, 2)
	recommendPrompt := calls[1]
	assert.Equal(t, 20, strings.Count(recommendPrompt, "| Name: Pizza Place"))
	assert.Contains(t, recommendPrompt, "...and 5 more results")
}

func TestRun_EmptyRecommendations(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(3)...)
	svc := newTestService(pipelineLLM(classifyAgraFoods, `{"recommendations": []}`), store, nil)

	result := svc.Run(context.Background(), "Find pizza places in Agra")

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, model.CategoryFoods, result.Category)
	assert.Equal(t, "Agra", *result.City)
	assert.NotNil(t, result.Recommendations)
	assert.Empty(t, result.Recommendations)
	assert.NotNil(t, result.FullData)
	assert.Empty(t, result.FullData)
	assert.GreaterOrEqual(t, result.ProcessingTimeSeconds, 0.0)

	b, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"recommendations":[]`)
	assert.Contains(t, string(b), `"fullData":[]`)
	assert.NotContains(t, string(b), `"error"`)
}

func TestRun_HydratesShoppingPick(t *testing.T) {
	store := newFakeStore()
	record := model.CatalogRecord{
		"_id":        "68c7f27e20f4dc4834768b6d",
		"shops":      "JDS Banaras",
		"cityName":   "Varanasi",
		"category":   "Silk",
		"address":    "Godowlia",
		"reviews":    []any{"great sarees"},
		"flagship":   true,
		"engagement": map[string]any{"views": float64(120)},
	}
	store.add("shoppings", record)
	llm := pipelineLLM(classifyBanarasShop, `{"recommendations":[{"_id":"68c7f27e20f4dc4834768b6d","shops":"JDS Banaras"}]}`)
	svc := newTestService(llm, store, nil)

	result := svc.Run(context.Background(), "silk shops in Varanasi")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, model.CategoryShopping, result.Category)
	assert.Equal(t, map[string]string{"category": "silk"}, result.Parameters)
	assert.Equal(t, []model.RecommendationPick{pick("68c7f27e20f4dc4834768b6d", "JDS Banaras")}, result.Recommendations)
	require.Len(t, result.FullData, 1)
	assert.True(t, result.FullData[0].Found())
	assert.Nil(t, result.FullData[0].Stub)
	assert.Equal(t, record, result.FullData[0].Record)
}

func TestRun_MissingCity(t *testing.T) {
	store := newFakeStore()
	llm := pipelineLLM(`{"category": "foods", "cityName": null, "confidence": 0.8}`, `{"recommendations": []}`)
	svc := newTestService(llm, store, nil)

	result := svc.Run(context.Background(), "where can I eat pizza")

	assert.False(t, result.Success)
	assert.Equal(t, "Please specify a city for foods recommendations.", result.Error)
	assert.ErrorIs(t, result.Err, ErrUserInput)
	assert.Equal(t, model.CategoryFoods, result.Category)
	assert.Empty(t, store.queries)
	assert.Len(t, llm.calls(), 1)
}

func TestRun_CityInfosDoesNotNeedCity(t *testing.T) {
	store := newFakeStore()
	store.add("cityinfos", model.CatalogRecord{"_id": "c1", "name": "Agra", "cityName": "Agra"})
	llm := pipelineLLM(`{"category": "cityinfos", "cityName": null}`, `{"recommendations": [{"_id": "c1", "name": "Agra"}]}`)
	svc := newTestService(llm, store, nil)

	result := svc.Run(context.Background(), "tell me something nice")

	require.True(t, result.Success, result.Error)
	require.Len(t, result.FullData, 1)
	assert.True(t, result.FullData[0].Found())
}

func TestRun_ModelFailureIsUpstreamError(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(2)...)
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "travel query classifier") {
			return classifyAgraFoods, nil
		}
		return "", errors.New("model request failed: deadline exceeded: " + ErrUpstreamUnavailable.Error())
	}}
	svc := newTestService(llm, store, nil)

	result := svc.Run(context.Background(), "Find pizza places in Agra")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "deadline exceeded")
	assert.Empty(t, result.Recommendations)
	assert.Empty(t, result.FullData)
}

func TestRun_NoGeneratorFallsBackThenFails(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(2)...)
	svc := newTestService(nil, store, nil)

	result := svc.Run(context.Background(), "best food in Agra")

	assert.False(t, result.Success)
	assert.Equal(t, model.CategoryFoods, result.Category)
	assert.Equal(t, "Agra", *result.City)
	assert.ErrorIs(t, result.Err, ErrUpstreamUnavailable)
}

func TestRun_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("no reachable servers")
	svc := newTestService(pipelineLLM(classifyAgraFoods, `{"recommendations": []}`), store, nil)

	result := svc.Run(context.Background(), "Find pizza places in Agra")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrUpstreamUnavailable)
	assert.Contains(t, result.Error, "no reachable servers")
}

func TestRun_PanicBecomesFailedEnvelope(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(2)...)
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "travel query classifier") {
			return classifyAgraFoods, nil
		}
		panic("nil map write")
	}}
	svc := newTestService(llm, store, nil)

	var result *model.RecommendationResult
	assert.NotPanics(t, func() {
		result = svc.Run(context.Background(), "Find pizza places in Agra")
	})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrInternal)
	assert.Contains(t, result.Error, "nil map write")
	assert.Contains(t, result.Error, "prompted")
}

func TestRun_EmptyQuery(t *testing.T) {
	svc := newTestService(nil, newFakeStore(), nil)
	result := svc.Run(context.Background(), "   ")
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrUserInput)
}

func TestRun_RequestIDAndQueryLog(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(3)...)
	queryLog := &fakeQueryLog{}
	llm := pipelineLLM(classifyAgraFoods, `{"recommendations": [{"_id": "68c7f27e20f4dc4834768a01", "foodPlace": "Pizza Place 2"}]}`)
	svc := newTestService(llm, store, queryLog)

	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	result := svc.Run(ctx, "Find pizza places in Agra")
	svc.Wait()

	assert.Equal(t, "req-1", result.RequestID)
	require.Len(t, queryLog.entries, 1)
	entry := queryLog.entries[0]
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "foods", entry.Category)
	assert.Equal(t, model.JSONArray{"68c7f27e20f4dc4834768a01"}, entry.RecommendedIDs)
	assert.True(t, entry.Success)

	other := svc.Run(context.Background(), "Find pizza places in Agra")
	svc.Wait()
	assert.NotEmpty(t, other.RequestID)
	assert.NotEqual(t, "req-1", other.RequestID)
}

func TestRunStream_Events(t *testing.T) {
	store := newFakeStore()
	store.add("foods", agraFoods(3)...)
	svc := newTestService(pipelineLLM(classifyAgraFoods, `{"recommendations": []}`), store, nil)

	var events []string
	result := svc.RunStream(context.Background(), "Find pizza places in Agra", func(event string, _ any) error {
		events = append(events, event)
		return nil
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, []string{"classified", "searched", "extracted"}, events)
}

func TestRunStream_CallbackErrorStopsRun(t *testing.T) {
	store := newFakeStore()
	llm := pipelineLLM(classifyAgraFoods, `{"recommendations": []}`)
	svc := newTestService(llm, store, nil)

	result := svc.RunStream(context.Background(), "Find pizza places in Agra", func(string, any) error {
		return errors.New("client gone")
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "client gone")
	assert.Len(t, llm.calls(), 1)
}

func TestComposeCategoryQuery(t *testing.T) {
	q := ComposeCategoryQuery(model.CategoryShopping, " Varanasi ", map[string]string{
		"type":     "silk",
		"category": "sarees",
		"budget":   "",
	})
	assert.Equal(t, "shopping in Varanasi category: sarees type: silk", q)

	assert.Equal(t, "foods", ComposeCategoryQuery(model.CategoryFoods, "", nil))
}

func TestGetByCategory(t *testing.T) {
	store := newFakeStore()
	store.add("shoppings", model.CatalogRecord{"_id": "68c7f27e20f4dc4834768b6d", "shops": "JDS Banaras", "cityName": "Varanasi"})
	llm := pipelineLLM(classifyBanarasShop, `{"recommendations":[{"_id":"68c7f27e20f4dc4834768b6d","shops":"JDS Banaras"}]}`)
	svc := newTestService(llm, store, nil)

	result := svc.GetByCategory(context.Background(), "shoppings", "Varanasi", map[string]string{"category": "silk"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "shopping in Varanasi category: silk", result.Query)
	assert.Contains(t, llm.calls()[0], `User Query: "shopping in Varanasi category: silk"`)
}

func TestLogFeedback(t *testing.T) {
	svc := newTestService(nil, newFakeStore(), nil)
	err := svc.LogFeedback(context.Background(), &model.FeedbackRequest{RequestID: "r", RecordID: "x", Action: "click"})
	assert.ErrorIs(t, err, ErrQueryLogDisabled)

	queryLog := &fakeQueryLog{}
	svc = newTestService(nil, newFakeStore(), queryLog)
	require.NoError(t, svc.LogFeedback(context.Background(), &model.FeedbackRequest{RequestID: "r", RecordID: "x", Action: "click"}))
	assert.Equal(t, []string{"r/x/click"}, queryLog.feedback)
}

type healthyLLM struct {
	fakeLLM
	err error
}

func (h *healthyLLM) HealthCheck(context.Context) error { return h.err }

func TestHealth(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(&healthyLLM{}, store, nil)
	report := svc.Health(context.Background())
	assert.Equal(t, model.HealthOK, report.Status)
	assert.Equal(t, model.HealthDisabled, report.Components["query_log"].Status)

	svc = newTestService(&healthyLLM{err: errors.New("ollama down")}, store, nil)
	report = svc.Health(context.Background())
	assert.Equal(t, model.HealthDegraded, report.Status)
	assert.Equal(t, "ollama down", report.Components["llm"].Error)

	store.pingErr = errors.New("mongo down")
	report = svc.Health(context.Background())
	assert.Equal(t, model.HealthDown, report.Status)
	assert.Equal(t, model.HealthDown, report.Components["catalog"].Status)
}
