package service

import (
	"context"
	"strings"
	"sync"

	"yescity/internal/config"
	"yescity/internal/model"
	"yescity/internal/prompts"
)

// fakeLLM answers prompts with a canned function
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ float64, _ int) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeLLM) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// pipelineLLM answers classification prompts with classify and everything else with recommend
func pipelineLLM(classify, recommend string) *fakeLLM {
	return &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "travel query classifier") {
			return classify, nil
		}
		return recommend, nil
	}}
}

// fakeStore is an in-memory CatalogStore keyed by collection
type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]model.CatalogRecord
	queries     []model.SearchQuery

	findErr   error
	lookupErr map[string]error // keyed by id
	panicID   string
	pingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: map[string][]model.CatalogRecord{}}
}

func (f *fakeStore) add(collection string, records ...model.CatalogRecord) {
	f.collections[collection] = append(f.collections[collection], records...)
}

func (f *fakeStore) matches(q model.SearchQuery, rec model.CatalogRecord) bool {
	if q.City != "" && !strings.EqualFold(rec.String("cityName"), q.City) {
		return false
	}
	for _, flt := range q.Filters {
		switch flt.Kind {
		case model.FilterBool:
			if b, _ := rec[flt.Field].(bool); b != flt.Bool {
				return false
			}
		default:
			if !strings.Contains(strings.ToLower(rec.String(flt.Field)), strings.ToLower(flt.Text)) {
				return false
			}
		}
	}
	return true
}

func (f *fakeStore) Find(_ context.Context, q model.SearchQuery) ([]model.CatalogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []model.CatalogRecord
	for i, rec := range f.collections[q.Collection] {
		if i < q.Skip || !f.matches(q, rec) {
			continue
		}
		out = append(out, rec)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Count(_ context.Context, q model.SearchQuery) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.collections[q.Collection] {
		if f.matches(q, rec) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindByID(_ context.Context, collection, id string) (model.CatalogRecord, error) {
	if id == f.panicID && id != "" {
		panic("driver exploded")
	}
	if err := f.lookupErr[id]; err != nil {
		return nil, err
	}
	for _, rec := range f.collections[collection] {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByField(_ context.Context, collection, field, value string, caseInsensitive bool) (model.CatalogRecord, error) {
	for _, rec := range f.collections[collection] {
		v := rec.String(field)
		if v == value || (caseInsensitive && strings.EqualFold(v, value)) {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Distinct(_ context.Context, collection, field string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, rec := range f.collections[collection] {
		v := rec.String(field)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

// fakeQueryLog records log writes in memory
type fakeQueryLog struct {
	mu       sync.Mutex
	entries  []*model.RecommendationLog
	feedback []string
	err      error
}

func (f *fakeQueryLog) LogRecommendation(_ context.Context, entry *model.RecommendationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.err
}

func (f *fakeQueryLog) LogFeedback(_ context.Context, requestID, recordID, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, requestID+"/"+recordID+"/"+action)
	return f.err
}

func testSearchConfig() *config.SearchConfig {
	return &config.SearchConfig{
		MaxCandidates:    50,
		PromptCandidates: 20,
		DefaultPageLimit: 20,
		MaxPageLimit:     100,
	}
}

// newTestService wires a full pipeline over fakes. llm may be nil.
func newTestService(llm TextGenerator, store *fakeStore, queryLog QueryLogger) *RecommendationService {
	set := prompts.Default()
	return NewRecommendationService(
		NewClassifier(llm, set, 0.1, 1000, nil),
		NewCatalogService(store, testSearchConfig(), nil),
		NewHydrator(store, nil),
		llm,
		set,
		queryLog,
		RecommendationOptions{Temperature: 0.1, MaxTokens: 1000, MaxCandidates: 50, PromptCandidates: 20},
		nil,
	)
}
