package model

// ValidationType selects the rule set applied to a raw answer
type ValidationType string

const (
	ValidationName        ValidationType = "name"
	ValidationEmail       ValidationType = "email"
	ValidationPhone       ValidationType = "phone"
	ValidationDocumentID  ValidationType = "document_id"
	ValidationLocation    ValidationType = "location"
	ValidationTextMin     ValidationType = "text_min_length" // MinLength holds the minimum
	ValidationOptional    ValidationType = "optional_text"
	ValidationChoice      ValidationType = "enumerated_choice"
	ValidationMultiChoice ValidationType = "multi_choice"
	ValidationEvaluative  ValidationType = "evaluative" // Gated by the rubric after the length check
	ValidationYesNo       ValidationType = "yes_no"
)

// QuestionKind groups questions by their role in the application
type QuestionKind string

const (
	KindPersonal    QuestionKind = "personal"
	KindOptional    QuestionKind = "optional"
	KindEvaluative  QuestionKind = "evaluative"
	KindInformative QuestionKind = "informative"
)

// Conditional makes a question applicable only when a prior answer matches
type Conditional struct {
	DependsOnField string   `json:"dependsOnField" yaml:"dependsOnField"`
	AllowedValues  []string `json:"allowedValues" yaml:"allowedValues"`
}

// AssistRule asks the text generator to extract a clean value from the raw answer
type AssistRule struct {
	Instruction    string   `json:"instruction" yaml:"instruction"`
	BypassKeywords []string `json:"bypassKeywords,omitempty" yaml:"bypassKeywords,omitempty"` // Accept raw input without a model call
	BypassMinChars int      `json:"bypassMinChars,omitempty" yaml:"bypassMinChars,omitempty"`
	BypassHint     string   `json:"bypassHint,omitempty" yaml:"bypassHint,omitempty"` // Shown when a bypass answer is too short
}

// QuestionDefinition is one static step of the wizard
type QuestionDefinition struct {
	Number      int            `json:"number" yaml:"number"`
	Text        string         `json:"text" yaml:"text"`
	FieldName   string         `json:"fieldName" yaml:"fieldName"`
	Kind        QuestionKind   `json:"kind" yaml:"kind"`
	Validation  ValidationType `json:"validation" yaml:"validation"`
	MinLength   int            `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	Options     []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool           `json:"required" yaml:"required"`
	Conditional *Conditional   `json:"conditional,omitempty" yaml:"conditional,omitempty"`
	Note        string         `json:"note,omitempty" yaml:"note,omitempty"`
	RubricKey   string         `json:"rubricKey,omitempty" yaml:"rubricKey,omitempty"`
	Assist      *AssistRule    `json:"assist,omitempty" yaml:"assist,omitempty"`
}

// IsEvaluative reports whether the answer goes through the evaluation gate
func (q *QuestionDefinition) IsEvaluative() bool {
	return q.Validation == ValidationEvaluative
}
