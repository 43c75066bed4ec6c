package llm

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template categories.
const (
	StoryGeneration    = "story_generation"
	DecisionEvaluation = "decision_evaluation"
	RealmDevelopment   = "realm_development"
	TimeAnomalies      = "time_anomalies"
)

//go:embed templates.yaml
var catalogYAML []byte

var (
	catalog  map[string]map[string]string
	compiled map[string]*template.Template
)

func init() {
	var err error
	catalog, compiled, err = loadCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("llm: load prompt catalog: %v", err))
	}
}

func loadCatalog(data []byte) (map[string]map[string]string, map[string]*template.Template, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse catalog: %w", err)
	}
	funcs := template.FuncMap{"join": strings.Join}
	out := make(map[string]*template.Template)
	for category, names := range raw {
		for name, body := range names {
			key := category + "." + name
			t, err := template.New(key).Funcs(funcs).Option("missingkey=zero").Parse(body)
			if err != nil {
				return nil, nil, fmt.Errorf("parse template %s: %w", key, err)
			}
			out[key] = t
		}
	}
	return raw, out, nil
}

// Template returns the raw body of a named template.
func Template(category, name string) (string, bool) {
	body, ok := catalog[category][name]
	return body, ok
}

// Render executes a named template against data.
func Render(category, name string, data any) (string, error) {
	t, ok := compiled[category+"."+name]
	if !ok {
		return "", fmt.Errorf("template %s.%s not found", category, name)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s.%s: %w", category, name, err)
	}
	return b.String(), nil
}
