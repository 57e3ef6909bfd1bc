package model

// Assessment is the evaluation gate's verdict on an evaluative answer
type Assessment struct {
	Acceptable          bool     `json:"is_acceptable"`
	Score               float64  `json:"score"` // 0-1
	Feedback            string   `json:"feedback"`
	Suggestions         []string `json:"suggestions,omitempty"`
	Strengths           []string `json:"strengths,omitempty"`
	AreasForImprovement []string `json:"areas_for_improvement,omitempty"`
	Fallback            bool     `json:"-"` // Produced without a model verdict
}

// ExtractionOutcome classifies an AI-assisted validation result
type ExtractionOutcome string

const (
	ExtractionAccepted          ExtractionOutcome = "accepted"
	ExtractionNeedsConfirmation ExtractionOutcome = "needs_confirmation"
	ExtractionRejected          ExtractionOutcome = "rejected"
)

// Extraction is the AI-assisted validator's result
type Extraction struct {
	Outcome ExtractionOutcome `json:"outcome"`
	Value   string            `json:"value,omitempty"`  // Accepted or proposed value
	Reason  string            `json:"reason,omitempty"` // Rejection reason in the user's language
}

// Rubric describes how an evaluative question is graded
type Rubric struct {
	Title     string   `json:"title" yaml:"title"`
	Criteria  []string `json:"criteria" yaml:"criteria"`
	Guidance  string   `json:"guidance" yaml:"guidance"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
}
