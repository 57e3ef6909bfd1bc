package catalog

import (
	_ "embed"
	"fmt"
	"ithakabot/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold applies to rubrics that leave threshold unset
const DefaultThreshold = 0.6

//go:embed rubric.yaml
var defaultRubrics []byte

// DefaultRubrics returns the built-in grading rubrics
func DefaultRubrics() map[string]model.Rubric {
	r, err := LoadRubrics(defaultRubrics)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded rubrics are invalid: %v", err))
	}
	return r
}

// LoadRubrics parses a rubric file keyed by rubric key
func LoadRubrics(data []byte) (map[string]model.Rubric, error) {
	var f struct {
		Rubrics map[string]model.Rubric `yaml:"rubrics"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rubrics: %w", err)
	}
	for key, r := range f.Rubrics {
		if len(r.Criteria) == 0 {
			return nil, fmt.Errorf("rubric %s has no criteria", key)
		}
		if r.Threshold == 0 {
			r.Threshold = DefaultThreshold
		}
		if r.Threshold < 0 || r.Threshold > 1 {
			return nil, fmt.Errorf("rubric %s: threshold %.2f outside 0..1", key, r.Threshold)
		}
		f.Rubrics[key] = r
	}
	return f.Rubrics, nil
}
