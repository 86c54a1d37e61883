package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"yescity/internal/config"
	"yescity/internal/logger"
	"yescity/internal/model"
	"yescity/internal/repository"
)

// CatalogStore is the document store the pipeline reads from
type CatalogStore interface {
	Find(ctx context.Context, q model.SearchQuery) ([]model.CatalogRecord, error)
	Count(ctx context.Context, q model.SearchQuery) (int64, error)
	FindByID(ctx context.Context, collection, id string) (model.CatalogRecord, error)
	FindByField(ctx context.Context, collection, field, value string, caseInsensitive bool) (model.CatalogRecord, error)
	Distinct(ctx context.Context, collection, field string) ([]string, error)
	Ping(ctx context.Context) error
}

// CatalogService handles catalog search and browsing
type CatalogService struct {
	store  CatalogStore
	config *config.SearchConfig
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, cfg *config.SearchConfig, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{
		store:  store,
		config: cfg,
		logger: log,
	}
}

// Search returns candidate records for an intent, at most maxResults of them.
// When the extra filters match nothing the search is repeated with the city alone.
func (s *CatalogService) Search(ctx context.Context, intent model.QueryIntent, maxResults int) ([]model.CatalogRecord, error) {
	if maxResults <= 0 {
		maxResults = s.config.MaxCandidates
	}

	info := intent.Category.Info()
	q := model.SearchQuery{
		Collection: info.Collection,
		City:       intent.CityName(),
		Filters:    BuildFilters(info, intent.Parameters),
		Limit:      maxResults,
	}

	records, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", info.Collection, upstream(err))
	}

	if len(records) == 0 && len(q.Filters) > 0 {
		logger.FromContext(ctx, s.logger).Debug("no rows with extra filters, retrying with city only",
			zap.String("collection", info.Collection),
			zap.Int("filters", len(q.Filters)),
		)
		q.Filters = nil
		records, err = s.store.Find(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", info.Collection, upstream(err))
		}
	}

	if len(records) > maxResults {
		records = records[:maxResults]
	}
	return records, nil
}

// BuildFilters maps intent parameters onto the category's filter fields. Values
// that are empty or null sentinels are skipped, as are booleans that do not parse.
// Each record field is filtered at most once; the first parameter naming it wins.
func BuildFilters(info model.CategoryInfo, params map[string]string) []model.SearchFilter {
	var filters []model.SearchFilter
	used := make(map[string]bool)

	for _, pf := range info.FilterFields {
		value, ok := params[pf.Parameter]
		if !ok || used[pf.Field] {
			continue
		}
		value = strings.TrimSpace(value)
		if repository.IsNullSentinel(value) {
			continue
		}

		f := model.SearchFilter{Field: pf.Field, Kind: pf.Kind}
		switch pf.Kind {
		case model.FilterBool:
			b, err := strconv.ParseBool(strings.ToLower(value))
			if err != nil {
				continue
			}
			f.Bool = b
		default:
			f.Text = value
		}

		used[pf.Field] = true
		filters = append(filters, f)
	}
	return filters
}

// List returns one page of a category's records
func (s *CatalogService) List(ctx context.Context, category model.Category, req model.CatalogListRequest) (*model.CatalogPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.DefaultPageLimit
	}
	if limit > s.config.MaxPageLimit {
		limit = s.config.MaxPageLimit
	}
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}

	info := category.Info()
	q := model.SearchQuery{
		Collection: info.Collection,
		City:       strings.TrimSpace(req.City),
		Limit:      limit,
		Skip:       skip,
	}
	if c := strings.TrimSpace(req.Category); c != "" && !repository.IsNullSentinel(c) {
		q.Filters = []model.SearchFilter{{Field: "category", Kind: model.FilterText, Text: c}}
	}

	records, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", info.Collection, upstream(err))
	}
	total, err := s.store.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", info.Collection, upstream(err))
	}

	if records == nil {
		records = []model.CatalogRecord{}
	}
	return &model.CatalogPage{
		Records: records,
		Total:   total,
		Limit:   limit,
		Skip:    skip,
	}, nil
}

// Get resolves a record by id, then by case-insensitive display name
func (s *CatalogService) Get(ctx context.Context, category model.Category, idOrName string) (model.CatalogRecord, error) {
	info := category.Info()

	rec, err := s.store.FindByID(ctx, info.Collection, idOrName)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", info.Collection, upstream(err))
	}
	if rec != nil {
		return rec, nil
	}

	rec, err = s.store.FindByField(ctx, info.Collection, info.NameField, idOrName, true)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", info.Collection, upstream(err))
	}
	return rec, nil
}

// Cities returns the distinct city names across every city-scoped collection
func (s *CatalogService) Cities(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	cities := []string{}
	for _, c := range model.AllCategories {
		info := c.Info()
		if !info.RequiresCity {
			continue
		}
		values, err := s.store.Distinct(ctx, info.Collection, repository.CityField)
		if err != nil {
			return nil, fmt.Errorf("distinct cities in %s: %w", info.Collection, upstream(err))
		}
		for _, v := range values {
			key := strings.ToLower(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			cities = append(cities, v)
		}
	}
	sort.Strings(cities)
	return cities, nil
}

// Subcategories returns the distinct "category" values of one collection
func (s *CatalogService) Subcategories(ctx context.Context, category model.Category) ([]string, error) {
	info := category.Info()
	values, err := s.store.Distinct(ctx, info.Collection, "category")
	if err != nil {
		return nil, fmt.Errorf("distinct categories in %s: %w", info.Collection, upstream(err))
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Ping checks the store
func (s *CatalogService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return upstream(err)
	}
	return nil
}

// upstream marks store failures so they map to ErrUpstreamUnavailable
func upstream(err error) error {
	if ErrorKind(err) == "upstream" {
		return err
	}
	return fmt.Errorf("%v: %w", err, ErrUpstreamUnavailable)
}
