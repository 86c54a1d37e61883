package model

import (
	"fmt"
	"strings"
)

// CatalogRecord is a normalized catalog document. All values are JSON-representable
// and "_id" is always a string.
type CatalogRecord map[string]any

// ID returns the record's _id as a string
func (r CatalogRecord) ID() string {
	return r.String("_id")
}

// DisplayName returns the value of the category's name field, falling back to "name"
func (r CatalogRecord) DisplayName(nameField string) string {
	if v := r.String(nameField); v != "" {
		return v
	}
	return r.String("name")
}

// Details returns a short description for prompt listings
func (r CatalogRecord) Details() string {
	for _, key := range []string{"famousFor", "description"} {
		if v := r.String(key); v != "" {
			return v
		}
	}
	return "No description"
}

// String returns the field as a trimmed string, or "" when missing
func (r CatalogRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// SearchFilter is one extra condition on a catalog search
type SearchFilter struct {
	Field string
	Kind  FilterKind
	Text  string
	Bool  bool
}

// SearchQuery describes a catalog search against one collection
type SearchQuery struct {
	Collection string
	City       string
	Filters    []SearchFilter
	Limit      int
	Skip       int
}

// CatalogPage is a page of records with the total match count
type CatalogPage struct {
	Records []CatalogRecord `json:"data"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Skip    int             `json:"skip"`
}
