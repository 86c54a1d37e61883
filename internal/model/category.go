package model

import (
	"strings"

	"yescity/internal/utils"
)

// Category is one of the fixed catalog categories a query can be routed to
type Category string

const (
	CategoryFoods           Category = "foods"
	CategoryAccommodations  Category = "accommodations"
	CategoryActivities      Category = "activities"
	CategoryCityInfos       Category = "cityinfos"
	CategoryLocalTransports Category = "localtransports"
	CategoryHiddenGems      Category = "hiddengems"
	CategoryConnectivities  Category = "connectivities"
	CategoryPlacesToVisit   Category = "placestovisits"
	CategoryShopping        Category = "shopping"
)

// DefaultCategory is used whenever a category cannot be determined
const DefaultCategory = CategoryCityInfos

// FilterKind describes how an intent parameter is matched against a record field
type FilterKind string

const (
	// FilterText is a case-insensitive substring match
	FilterText FilterKind = "text"
	// FilterBool is an exact boolean match
	FilterBool FilterKind = "bool"
)

// FilterField is a record field and how it is matched
type FilterField struct {
	Field string
	Kind  FilterKind
}

// CategoryInfo holds the per-category behaviour used across the pipeline
type CategoryInfo struct {
	Collection   string
	NameField    string
	RequiresCity bool
	Description  string
	// FilterFields lists the intent parameters that narrow a catalog search
	FilterFields []ParameterFilter
}

// ParameterFilter binds one intent parameter key to a record field
type ParameterFilter struct {
	Parameter string
	FilterField
}

var categoryFilter = FilterField{Field: "category", Kind: FilterText}

var categories = map[Category]CategoryInfo{
	CategoryFoods: {
		Collection:   "foods",
		NameField:    "foodPlace",
		RequiresCity: true,
		Description:  "restaurants, cafes, street food and local delicacies",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
			{Parameter: "food_type", FilterField: categoryFilter},
			{Parameter: "flagship", FilterField: FilterField{Field: "flagship", Kind: FilterBool}},
		},
	},
	CategoryAccommodations: {
		Collection:   "accommodations",
		NameField:    "name",
		RequiresCity: true,
		Description:  "rooms, hotels, hostels, guesthouses and other stays",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
			{Parameter: "type", FilterField: categoryFilter},
		},
	},
	CategoryActivities: {
		Collection:   "activities",
		NameField:    "name",
		RequiresCity: true,
		Description:  "things to do and experiences",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
			{Parameter: "type", FilterField: categoryFilter},
		},
	},
	CategoryCityInfos: {
		Collection:   "cityinfos",
		NameField:    "name",
		RequiresCity: false,
		Description:  "general city information",
	},
	CategoryLocalTransports: {
		Collection:   "localtransports",
		NameField:    "name",
		RequiresCity: true,
		Description:  "local transportation, public transport, taxis and bike rentals",
		FilterFields: []ParameterFilter{
			{Parameter: "type", FilterField: categoryFilter},
		},
	},
	CategoryHiddenGems: {
		Collection:   "hiddengems",
		NameField:    "name",
		RequiresCity: true,
		Description:  "lesser known local spots and off-the-beaten-path places",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
		},
	},
	CategoryConnectivities: {
		Collection:   "connectivities",
		NameField:    "name",
		RequiresCity: true,
		Description:  "internet, SIM cards and WiFi spots",
		FilterFields: []ParameterFilter{
			{Parameter: "type", FilterField: categoryFilter},
		},
	},
	CategoryPlacesToVisit: {
		Collection:   "placestovisits",
		NameField:    "name",
		RequiresCity: true,
		Description:  "popular tourist attractions, landmarks and must-see places",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
			{Parameter: "type", FilterField: categoryFilter},
		},
	},
	CategoryShopping: {
		Collection:   "shoppings",
		NameField:    "shops",
		RequiresCity: true,
		Description:  "markets, malls, shopping streets, local products and souvenirs",
		FilterFields: []ParameterFilter{
			{Parameter: "category", FilterField: categoryFilter},
			{Parameter: "flagship", FilterField: FilterField{Field: "flagship", Kind: FilterBool}},
		},
	},
}

// AllCategories lists every category in a stable order
var AllCategories = []Category{
	CategoryFoods,
	CategoryAccommodations,
	CategoryActivities,
	CategoryCityInfos,
	CategoryLocalTransports,
	CategoryHiddenGems,
	CategoryConnectivities,
	CategoryPlacesToVisit,
	CategoryShopping,
}

// categoryAliases resolves loose names used by API callers and older data
var categoryAliases = map[string]Category{
	"food":            CategoryFoods,
	"restaurants":     CategoryFoods,
	"accommodation":   CategoryAccommodations,
	"hotels":          CategoryAccommodations,
	"activity":        CategoryActivities,
	"cityinfo":        CategoryCityInfos,
	"city_info":       CategoryCityInfos,
	"localtransport":  CategoryLocalTransports,
	"local_transport": CategoryLocalTransports,
	"hiddengem":       CategoryHiddenGems,
	"hidden_gems":     CategoryHiddenGems,
	"connectivity":    CategoryConnectivities,
	"placestovisit":   CategoryPlacesToVisit,
	"places_to_visit": CategoryPlacesToVisit,
	"shoppings":       CategoryShopping,
	"shop":            CategoryShopping,
	"shops":           CategoryShopping,
}

// Info returns the behaviour record for c, falling back to DefaultCategory
func (c Category) Info() CategoryInfo {
	if info, ok := categories[c]; ok {
		return info
	}
	return categories[DefaultCategory]
}

// Valid reports whether c is a member of the closed set
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts only exact members of the set
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.TrimSpace(s))
	return c, c.Valid()
}

// LookupCategory resolves members and known aliases, ignoring case and separators
func LookupCategory(s string) (Category, bool) {
	for _, c := range AllCategories {
		if utils.FuzzyEqual(s, string(c)) {
			return c, true
		}
	}
	for alias, c := range categoryAliases {
		if utils.FuzzyEqual(s, alias) {
			return c, true
		}
	}
	return "", false
}

// NormalizeCategory is LookupCategory with DefaultCategory for anything unrecognised
func NormalizeCategory(s string) Category {
	if c, ok := LookupCategory(s); ok {
		return c
	}
	return DefaultCategory
}

// CategoryNames returns AllCategories as plain strings
func CategoryNames() []string {
	names := make([]string, len(AllCategories))
	for i, c := range AllCategories {
		names[i] = string(c)
	}
	return names
}
