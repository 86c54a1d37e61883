package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"yescity/internal/metrics"
	"yescity/internal/model"
	"yescity/internal/utils"
)

// pickStrategy tries to read picks from raw model output. ok is false when the
// strategy could not recognise the output at all; an empty slice with ok true
// means the model explicitly returned no recommendations.
type pickStrategy struct {
	name    string
	extract func(raw, nameKey string) (picks []model.RecommendationPick, ok bool)
}

var pickStrategies = []pickStrategy{
	{name: "strict_json", extract: strictJSONPicks},
	{name: "quoted_pairs", extract: quotedPairPicks},
	{name: "repaired_json", extract: repairedJSONPicks},
	{name: "lenient_pairs", extract: lenientPairPicks},
}

// Extractor reads recommendation picks out of raw model text
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an extractor
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{logger: log}
}

// Extract returns at most model.MaxPicks picks. It never fails; unreadable output
// yields an empty slice.
func (e *Extractor) Extract(raw, nameKey string) []model.RecommendationPick {
	picks, strategy := ExtractPicks(raw, nameKey)
	metrics.ExtractionsTotal.WithLabelValues(strategy).Inc()
	if strategy == "none" {
		e.logger.Warn("no recommendations extracted from model output",
			zap.String("name_key", nameKey),
			zap.String("raw_output", truncate(raw, 500)),
		)
	}
	return picks
}

// ExtractPicks runs the strategies in order and reports which one produced the
// result, or "none"
func ExtractPicks(raw, nameKey string) (picks []model.RecommendationPick, strategy string) {
	defer func() {
		if r := recover(); r != nil {
			picks, strategy = []model.RecommendationPick{}, "none"
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return []model.RecommendationPick{}, "none"
	}

	for _, s := range pickStrategies {
		found, ok := s.extract(raw, nameKey)
		if !ok {
			continue
		}
		if len(found) > model.MaxPicks {
			found = found[:model.MaxPicks]
		}
		return found, s.name
	}
	return []model.RecommendationPick{}, "none"
}

type recommendationEnvelope struct {
	Recommendations []any `json:"recommendations"`
}

func strictJSONPicks(raw, nameKey string) ([]model.RecommendationPick, bool) {
	payload, ok := utils.ExtractOuterObject(raw)
	if !ok {
		return nil, false
	}
	var env recommendationEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, false
	}
	return envelopePicks(env, nameKey)
}

func repairedJSONPicks(raw, nameKey string) ([]model.RecommendationPick, bool) {
	var env recommendationEnvelope
	if err := utils.ParseAIJSON(raw, &env); err != nil {
		return nil, false
	}
	return envelopePicks(env, nameKey)
}

// envelopePicks accepts the envelope when it holds a recommendations array.
// Entries that are not objects or lack an id or name are dropped.
func envelopePicks(env recommendationEnvelope, nameKey string) ([]model.RecommendationPick, bool) {
	if env.Recommendations == nil {
		return nil, false
	}
	picks := make([]model.RecommendationPick, 0, len(env.Recommendations))
	for _, raw := range env.Recommendations {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(item, "_id", "id")
		name := firstString(item, nameKey, "name")
		if id == "" || name == "" {
			continue
		}
		picks = append(picks, model.RecommendationPick{ID: id, DisplayName: name})
	}
	if len(picks) == 0 && len(env.Recommendations) > 0 {
		return nil, false
	}
	return picks, true
}

func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case map[string]any:
			// {"$oid": "..."} as printed by some Mongo tooling
			if oid, ok := t["$oid"].(string); ok {
				s = oid
			}
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func quotedPairPicks(raw, nameKey string) ([]model.RecommendationPick, bool) {
	re := quotedPairRegex(nameKey)
	matches := re.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, false
	}
	picks := make([]model.RecommendationPick, 0, len(matches))
	for _, m := range matches {
		picks = append(picks, model.RecommendationPick{
			ID:          strings.TrimSpace(m[1]),
			DisplayName: strings.TrimSpace(m[2]),
		})
	}
	return picks, true
}

func lenientPairPicks(raw, nameKey string) ([]model.RecommendationPick, bool) {
	re := lenientPairRegex(nameKey)
	matches := re.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil, false
	}
	picks := make([]model.RecommendationPick, 0, len(matches))
	for _, m := range matches {
		name := strings.Trim(strings.TrimSpace(m[2]), `"'`)
		if name == "" {
			continue
		}
		picks = append(picks, model.RecommendationPick{ID: m[1], DisplayName: name})
	}
	if len(picks) == 0 {
		return nil, false
	}
	return picks, true
}

func nameAlternatives(nameKey string) string {
	if nameKey == "" || nameKey == "name" {
		return "name"
	}
	return regexp.QuoteMeta(nameKey) + "|name"
}

func quotedPairRegex(nameKey string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)"_?id"\s*:\s*"([^"]+)"\s*,\s*"(?:` + nameAlternatives(nameKey) + `)"\s*:\s*"([^"]+)"`)
}

func lenientPairRegex(nameKey string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)_?id["']?\s*:\s*["']?([a-f0-9]{24})["']?\s*,?\s*["']?(?:` + nameAlternatives(nameKey) + `)["']?\s*:\s*["']?([^,\n\r}]+)`)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
