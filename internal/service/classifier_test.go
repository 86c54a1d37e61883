package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yescity/internal/model"
	"yescity/internal/prompts"
)

func newTestClassifier(respond func(string) (string, error)) (*Classifier, *fakeLLM) {
	llm := &fakeLLM{respond: respond}
	return NewClassifier(llm, prompts.Default(), 0.1, 1000, nil), llm
}

func TestClassifier_ModelOutput(t *testing.T) {
	c, llm := newTestClassifier(func(string) (string, error) {
		return "Sure! Here is the JSON:\n" + `{"category": "foods", "cityName": "Agra", "parameters": {"category": "pizza", "flagship": true}, "confidence": 0.92}` + "\nHope it helps.", nil
	})

	intent := c.Classify(context.Background(), "Find pizza places in Agra")

	assert.Equal(t, model.CategoryFoods, intent.Category)
	assert.Equal(t, "Agra", intent.CityName())
	assert.Equal(t, map[string]string{"category": "pizza", "flagship": "true"}, intent.Parameters)
	assert.InDelta(t, 0.92, intent.Confidence, 1e-9)
	assert.Equal(t, model.IntentSourceModel, intent.Source)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], `User Query: "Find pizza places in Agra"`)
	assert.Contains(t, calls[0], "shopping - markets")
}

func TestClassifier_UnknownCategoryBecomesCityInfos(t *testing.T) {
	c, _ := newTestClassifier(func(string) (string, error) {
		return `{"category": "nightlife", "cityName": "Goa"}`, nil
	})

	intent := c.Classify(context.Background(), "clubs in Goa")

	assert.Equal(t, model.CategoryCityInfos, intent.Category)
	assert.Equal(t, "Goa", intent.CityName())
	assert.Equal(t, 0.5, intent.Confidence)
	assert.NotNil(t, intent.Parameters)
	assert.Empty(t, intent.Parameters)
	assert.Equal(t, model.IntentSourceModel, intent.Source)
}

func TestClassifier_NullCity(t *testing.T) {
	for _, raw := range []string{
		`{"category": "foods", "cityName": null, "confidence": 0.8}`,
		`{"category": "foods", "cityName": "null", "confidence": 0.8}`,
		`{"category": "foods", "cityName": "", "confidence": 0.8}`,
		`{"category": "foods", "confidence": 0.8}`,
	} {
		c, _ := newTestClassifier(func(string) (string, error) { return raw, nil })
		intent := c.Classify(context.Background(), "good food")
		assert.False(t, intent.HasCity(), raw)
		assert.Nil(t, intent.City, raw)
	}
}

func TestClassifier_RepairsSingleQuotedJSON(t *testing.T) {
	c, _ := newTestClassifier(func(string) (string, error) {
		return `{'category': 'shopping', 'cityName': 'Varanasi', 'parameters': {'category': 'silk',}, 'confidence': 0.7}`, nil
	})

	intent := c.Classify(context.Background(), "silk sarees in Varanasi")

	assert.Equal(t, model.CategoryShopping, intent.Category)
	assert.Equal(t, "Varanasi", intent.CityName())
	assert.Equal(t, "silk", intent.Parameters["category"])
	assert.Equal(t, model.IntentSourceModel, intent.Source)
}

func TestClassifier_ConfidenceIsClamped(t *testing.T) {
	c, _ := newTestClassifier(func(string) (string, error) {
		return `{"category": "hiddengems", "cityName": "Delhi", "confidence": 7}`, nil
	})
	assert.Equal(t, 1.0, c.Classify(context.Background(), "x").Confidence)

	c, _ = newTestClassifier(func(string) (string, error) {
		return `{"category": "hiddengems", "cityName": "Delhi", "confidence": -2}`, nil
	})
	assert.Equal(t, 0.0, c.Classify(context.Background(), "x").Confidence)
}

func TestClassifier_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string) (string, error)
	}{
		{"model error", func(string) (string, error) { return "", errors.New("connection refused") }},
		{"no json", func(string) (string, error) { return "I think this is about hotels.", nil }},
		{"broken json", func(string) (string, error) { return `{"category": [}`, nil }},
		{"panic", func(string) (string, error) { panic("boom") }},
	}

	want := FallbackClassify("cheap hotels in Mumbai")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClassifier(tt.respond)
			intent := c.Classify(context.Background(), "cheap hotels in Mumbai")
			assert.Equal(t, want, intent)
			assert.Equal(t, model.CategoryAccommodations, intent.Category)
			assert.Equal(t, "Mumbai", intent.CityName())
			assert.Equal(t, model.IntentSourceFallback, intent.Source)
		})
	}
}

func TestClassifier_NilGeneratorFallsBack(t *testing.T) {
	c := NewClassifier(nil, prompts.Default(), 0.1, 1000, nil)
	intent := c.Classify(context.Background(), "where to buy souvenirs in Jaipur")
	assert.Equal(t, model.CategoryShopping, intent.Category)
	assert.Equal(t, "Jaipur", intent.CityName())
}

func TestFallbackClassify(t *testing.T) {
	tests := []struct {
		query    string
		category model.Category
		city     string
	}{
		{"best sweet shops in Agra", model.CategoryFoods, "Agra"},
		{"hotels near delhi station", model.CategoryAccommodations, "Delhi"},
		{"where can I buy souvenirs in jaipur", model.CategoryShopping, "Jaipur"},
		{"must visit attractions", model.CategoryPlacesToVisit, ""},
		{"bus routes in Chennai", model.CategoryLocalTransports, "Chennai"},
		{"hidden spots in Kolkata", model.CategoryHiddenGems, "Kolkata"},
		{"tell me about Varanasi", model.CategoryCityInfos, "Varanasi"},
		{"", model.CategoryCityInfos, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			intent := FallbackClassify(tt.query)
			assert.Equal(t, tt.category, intent.Category)
			assert.Equal(t, tt.city, intent.CityName())
			assert.Equal(t, 0.5, intent.Confidence)
			assert.Empty(t, intent.Parameters)
		})
	}
}

func TestFallbackClassify_Deterministic(t *testing.T) {
	first := FallbackClassify("Shopping markets in Goa")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, FallbackClassify("Shopping markets in Goa"))
	}
}

func TestParseClassification_NoObject(t *testing.T) {
	_, err := ParseClassification("nothing here")
	assert.Error(t, err)
}
