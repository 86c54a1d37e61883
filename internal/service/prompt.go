package service

import (
	"fmt"
	"strings"

	"yescity/internal/model"
	"yescity/internal/prompts"
)

// DefaultPromptCandidates is how many records are listed in a recommendation prompt
const DefaultPromptCandidates = 20

// FormatCandidates renders the compact record listing embedded in the
// recommendation prompt. Records past limit are summarised by a count.
func FormatCandidates(records []model.CatalogRecord, nameField string, limit int) string {
	if len(records) == 0 {
		return "No results found."
	}
	if limit <= 0 {
		limit = DefaultPromptCandidates
	}

	shown := records
	if len(shown) > limit {
		shown = shown[:limit]
	}

	var sb strings.Builder
	for i, rec := range shown {
		category := rec.String("category")
		if category == "" {
			category = "N/A"
		}
		name := rec.DisplayName(nameField)
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. ID: %s | Name: %s | Category: %s | Details: %s\n",
			i+1, rec.ID(), name, category, rec.Details())
	}

	if rest := len(records) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "...and %d more results.", rest)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RecommendationPrompt renders the full prompt for one run
func RecommendationPrompt(set *prompts.Set, query string, intent model.QueryIntent, records []model.CatalogRecord, limit int) (string, error) {
	info := intent.Category.Info()
	return set.Recommendation(prompts.RecommendationData{
		Query:      query,
		City:       intent.CityName(),
		NameField:  info.NameField,
		Candidates: FormatCandidates(records, info.NameField, limit),
		MaxPicks:   model.MaxPicks,
	})
}
