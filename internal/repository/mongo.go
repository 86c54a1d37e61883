package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"yescity/internal/model"
)

// CityField is the record field every catalog collection is keyed by
const CityField = "cityName"

// MongoRepository reads catalog collections from MongoDB
type MongoRepository struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoRepository connects to MongoDB and verifies the connection
func NewMongoRepository(ctx context.Context, uri, database string, maxPool uint64, timeout time.Duration) (*MongoRepository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPool).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	repo := &MongoRepository{
		client:  client,
		db:      client.Database(database),
		timeout: timeout,
	}

	if err := repo.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return repo, nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable
func (r *MongoRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

// Find returns up to q.Limit normalized records matching the query
func (r *MongoRepository) Find(ctx context.Context, q model.SearchQuery) ([]model.CatalogRecord, error) {
	filter := BuildSearchFilter(q)

	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}

	cursor, err := r.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", q.Collection, err)
	}

	records := make([]model.CatalogRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, NormalizeDocument(doc))
	}
	return records, nil
}

// Count returns the number of records matching the query, ignoring limit and skip
func (r *MongoRepository) Count(ctx context.Context, q model.SearchQuery) (int64, error) {
	total, err := r.db.Collection(q.Collection).CountDocuments(ctx, BuildSearchFilter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Collection, err)
	}
	return total, nil
}

// FindByID looks a record up by _id. Hex strings are tried as ObjectIDs first,
// then as plain string ids. Returns nil when nothing matches.
func (r *MongoRepository) FindByID(ctx context.Context, collection, id string) (model.CatalogRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		rec, err := r.findOne(ctx, collection, bson.M{"_id": oid})
		if err != nil || rec != nil {
			return rec, err
		}
	}
	return r.findOne(ctx, collection, bson.M{"_id": id})
}

// FindByField looks a record up by a field value, exactly or as a whole-value
// case-insensitive match. Returns nil when nothing matches.
func (r *MongoRepository) FindByField(ctx context.Context, collection, field, value string, caseInsensitive bool) (model.CatalogRecord, error) {
	if caseInsensitive {
		return r.findOne(ctx, collection, bson.M{field: wholeValueRegex(value)})
	}
	return r.findOne(ctx, collection, bson.M{field: value})
}

// Distinct returns the sorted distinct non-empty string values of a field
func (r *MongoRepository) Distinct(ctx context.Context, collection, field string) ([]string, error) {
	values, err := r.db.Collection(collection).Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s.%s: %w", collection, field, err)
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MongoRepository) findOne(ctx context.Context, collection string, filter bson.M) (model.CatalogRecord, error) {
	var doc bson.M
	err := r.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", collection, err)
	}
	return NormalizeDocument(doc), nil
}

// BuildSearchFilter translates a search query into a MongoDB filter.
// The city is matched as the whole field value, case-insensitively. Text
// filters are case-insensitive substring matches and skip "null"/"none".
func BuildSearchFilter(q model.SearchQuery) bson.M {
	filter := bson.M{}
	if city := strings.TrimSpace(q.City); city != "" {
		filter[CityField] = wholeValueRegex(city)
	}

	for _, f := range q.Filters {
		switch f.Kind {
		case model.FilterBool:
			filter[f.Field] = f.Bool
		default:
			text := strings.TrimSpace(f.Text)
			if IsNullSentinel(text) {
				continue
			}
			filter[f.Field] = primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		}
	}
	return filter
}

// IsNullSentinel reports whether a parameter value means "no value"
func IsNullSentinel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none":
		return true
	}
	return false
}

func wholeValueRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(value)) + "$", Options: "i"}
}
