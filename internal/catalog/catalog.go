package catalog

import (
	_ "embed"
	"fmt"
	"ithakabot/internal/model"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultMinEvaluativeLength is the mechanical floor for evaluative answers
const DefaultMinEvaluativeLength = 20

//go:embed questions.yaml
var defaultQuestions []byte

type catalogFile struct {
	Questions []model.QuestionDefinition `yaml:"questions"`
}

// Catalog is the ordered, read-only set of wizard questions
type Catalog struct {
	questions []model.QuestionDefinition
	index     map[int]int
	byField   map[string]int
}

// Default returns the built-in Ithaka catalog
func Default() *Catalog {
	c, err := Load(defaultQuestions)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded questions are invalid: %v", err))
	}
	return c
}

// Load parses and checks a YAML catalog
func Load(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Questions)
}

// New builds a catalog from definitions in any order
func New(questions []model.QuestionDefinition) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}

	qs := make([]model.QuestionDefinition, len(questions))
	copy(qs, questions)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Number < qs[j].Number })

	c := &Catalog{
		questions: qs,
		index:     make(map[int]int, len(qs)),
		byField:   make(map[string]int, len(qs)),
	}
	for i := range qs {
		q := &qs[i]
		if q.Number < 1 {
			return nil, fmt.Errorf("question %q: number must be positive", q.FieldName)
		}
		if _, dup := c.index[q.Number]; dup {
			return nil, fmt.Errorf("duplicate question number %d", q.Number)
		}
		if q.FieldName == "" {
			return nil, fmt.Errorf("question %d: missing field name", q.Number)
		}
		if _, dup := c.byField[q.FieldName]; dup {
			return nil, fmt.Errorf("duplicate field name %q", q.FieldName)
		}
		switch q.Validation {
		case model.ValidationChoice, model.ValidationMultiChoice:
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("question %d: %s needs options", q.Number, q.Validation)
			}
		case model.ValidationEvaluative:
			if q.MinLength == 0 {
				q.MinLength = DefaultMinEvaluativeLength
			}
		case model.ValidationTextMin:
			if q.MinLength <= 0 {
				return nil, fmt.Errorf("question %d: text_min_length needs minLength", q.Number)
			}
		case model.ValidationName, model.ValidationEmail, model.ValidationPhone, model.ValidationDocumentID,
			model.ValidationLocation, model.ValidationOptional, model.ValidationYesNo:
		default:
			return nil, fmt.Errorf("question %d: unknown validation %q", q.Number, q.Validation)
		}
		if q.Conditional != nil {
			if _, ok := c.byField[q.Conditional.DependsOnField]; !ok {
				return nil, fmt.Errorf("question %d: depends on unknown or later field %q", q.Number, q.Conditional.DependsOnField)
			}
		}
		c.index[q.Number] = i
		c.byField[q.FieldName] = i
	}
	return c, nil
}

// Get returns the question with the given number
func (c *Catalog) Get(n int) (*model.QuestionDefinition, bool) {
	i, ok := c.index[n]
	if !ok {
		return nil, false
	}
	return &c.questions[i], true
}

// ByField returns the question that stores the given field
func (c *Catalog) ByField(field string) (*model.QuestionDefinition, bool) {
	i, ok := c.byField[field]
	if !ok {
		return nil, false
	}
	return &c.questions[i], true
}

// Questions returns every definition in order
func (c *Catalog) Questions() []model.QuestionDefinition {
	out := make([]model.QuestionDefinition, len(c.questions))
	copy(out, c.questions)
	return out
}

// First is the lowest question number
func (c *Catalog) First() int {
	return c.questions[0].Number
}

// PastEnd is the cursor value meaning the wizard is finished
func (c *Catalog) PastEnd() int {
	return c.questions[len(c.questions)-1].Number + 1
}

// IsApplicable reports whether question n should be asked given prior answers.
// Unknown numbers are not applicable.
func (c *Catalog) IsApplicable(n int, answers map[string]model.AnswerValue) bool {
	q, ok := c.Get(n)
	if !ok {
		return false
	}
	return applicable(q, answers)
}

func applicable(q *model.QuestionDefinition, answers map[string]model.AnswerValue) bool {
	if q.Conditional == nil {
		return true
	}
	v, ok := answers[q.Conditional.DependsOnField]
	if !ok {
		return false
	}
	return v.Matches(q.Conditional.AllowedValues)
}

// NextApplicable scans forward from n+1. Returns PastEnd when nothing is left.
func (c *Catalog) NextApplicable(n int, answers map[string]model.AnswerValue) int {
	for i := range c.questions {
		q := &c.questions[i]
		if q.Number <= n {
			continue
		}
		if applicable(q, answers) {
			return q.Number
		}
	}
	return c.PastEnd()
}

// PrevApplicable scans backward from n-1. Returns 0 when nothing is earlier.
func (c *Catalog) PrevApplicable(n int, answers map[string]model.AnswerValue) int {
	for i := len(c.questions) - 1; i >= 0; i-- {
		q := &c.questions[i]
		if q.Number >= n {
			continue
		}
		if applicable(q, answers) {
			return q.Number
		}
	}
	return 0
}

// FirstUnanswered is where a resumed session picks up
func (c *Catalog) FirstUnanswered(answers map[string]model.AnswerValue) int {
	for i := range c.questions {
		q := &c.questions[i]
		if !applicable(q, answers) {
			continue
		}
		if _, done := answers[q.FieldName]; !done {
			return q.Number
		}
	}
	return c.PastEnd()
}

// Prune deletes answers whose question is no longer applicable and returns the
// removed field names. Runs in question order so dependent chains collapse.
func (c *Catalog) Prune(answers map[string]model.AnswerValue) []string {
	var removed []string
	for i := range c.questions {
		q := &c.questions[i]
		if _, ok := answers[q.FieldName]; !ok {
			continue
		}
		if !applicable(q, answers) {
			delete(answers, q.FieldName)
			removed = append(removed, q.FieldName)
		}
	}
	return removed
}
