package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// CategoryEntry is one line of the category list in the classification prompt
type CategoryEntry struct {
	Name        string
	Description string
}

// ClassificationData feeds the classification template
type ClassificationData struct {
	Query      string
	Categories []CategoryEntry
}

// CategoryNames returns the category names in order
func (d ClassificationData) CategoryNames() []string {
	names := make([]string, len(d.Categories))
	for i, c := range d.Categories {
		names[i] = c.Name
	}
	return names
}

// RecommendationData feeds the recommendation template
type RecommendationData struct {
	Query      string
	City       string
	NameField  string
	Candidates string
	MaxPicks   int
}

// Set holds the compiled prompt templates
type Set struct {
	Version        int
	classification *template.Template
	recommendation *template.Template
}

type rawSet struct {
	Version        int    `yaml:"version"`
	Classification string `yaml:"classification"`
	Recommendation string `yaml:"recommendation"`
}

var funcs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

// Load reads the prompt set from path, or the built-in set when path is empty
func Load(path string) (*Set, error) {
	data := defaultPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Default returns the built-in prompt set
func Default() *Set {
	s, err := Parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("built-in prompts are invalid: %v", err))
	}
	return s
}

// Parse compiles a YAML prompt document
func Parse(data []byte) (*Set, error) {
	var raw rawSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal prompts: %w", err)
	}
	if strings.TrimSpace(raw.Classification) == "" || strings.TrimSpace(raw.Recommendation) == "" {
		return nil, fmt.Errorf("prompts must define classification and recommendation")
	}

	classification, err := template.New("classification").Funcs(funcs).Option("missingkey=error").Parse(raw.Classification)
	if err != nil {
		return nil, fmt.Errorf("parse classification prompt: %w", err)
	}
	recommendation, err := template.New("recommendation").Funcs(funcs).Option("missingkey=error").Parse(raw.Recommendation)
	if err != nil {
		return nil, fmt.Errorf("parse recommendation prompt: %w", err)
	}

	return &Set{
		Version:        raw.Version,
		classification: classification,
		recommendation: recommendation,
	}, nil
}

// Classification renders the classification prompt
func (s *Set) Classification(data ClassificationData) (string, error) {
	return render(s.classification, data)
}

// Recommendation renders the recommendation prompt
func (s *Set) Recommendation(data RecommendationData) (string, error) {
	return render(s.recommendation, data)
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
